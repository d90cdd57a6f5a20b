package domain

// ProviderDiscord is the external identity provider recognized by the claims
// hook for subject-id merging.
const ProviderDiscord = "discord"

// ClaimsEvent is the identity provider's in-flight authentication event. The
// claims hook mutates Claims before the session token is finalized; the rest
// of the event is passed through untouched.
type ClaimsEvent struct {
	UserID       string         `json:"user_id"`
	Provider     string         `json:"provider,omitempty"`
	Claims       map[string]any `json:"claims"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// Clone returns a deep-enough copy of the event for safe mutation: the top
// level and the claims/app_metadata maps are copied, payload values are
// shared.
func (e ClaimsEvent) Clone() ClaimsEvent {
	out := e
	if e.Claims != nil {
		out.Claims = make(map[string]any, len(e.Claims))
		for k, v := range e.Claims {
			out.Claims[k] = v
		}
		if meta, ok := e.Claims["app_metadata"].(map[string]any); ok {
			copied := make(map[string]any, len(meta))
			for k, v := range meta {
				copied[k] = v
			}
			out.Claims["app_metadata"] = copied
		}
	}
	return out
}
