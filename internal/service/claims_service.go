package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/license-service/internal/domain"
	"github.com/spec-kit/license-service/internal/repository"
)

// ClaimsService augments authentication events with the caller's
// authorization role before the session token is finalized. Augment is total:
// it never returns an error and never panics out to the caller; any internal
// failure yields the input event unchanged so a role lookup problem cannot
// break login.
type ClaimsService struct {
	roles  repository.RoleRepository
	logger *zap.Logger
}

// NewClaimsService builds the service.
func NewClaimsService(roles repository.RoleRepository, logger *zap.Logger) *ClaimsService {
	return &ClaimsService{roles: roles, logger: logger}
}

// Augment resolves the user's role and merges it into the event's claims.
// When no role row exists the identity-provider baseline role
// "authenticated" applies, not the application default "user".
func (s *ClaimsService) Augment(ctx context.Context, event domain.ClaimsEvent) (out domain.ClaimsEvent) {
	out = event
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("claims augmentation panicked", zap.Any("panic", r))
			out = event
		}
	}()

	if event.Claims == nil {
		return event
	}
	if _, err := uuid.Parse(event.UserID); err != nil {
		return event
	}

	role := domain.RoleAuthenticated
	row, err := s.roles.GetByUserID(ctx, event.UserID)
	switch {
	case err == nil:
		role = row.RoleName
	case err == pgx.ErrNoRows:
		// no row, baseline role applies
	default:
		s.logger.Warn("role lookup failed, leaving claims untouched",
			zap.String("user_id", event.UserID), zap.Error(err))
		return event
	}

	augmented := event.Clone()
	claims := augmented.Claims
	claims["role"] = string(role)

	meta, ok := claims["app_metadata"].(map[string]any)
	if !ok {
		meta = map[string]any{}
		claims["app_metadata"] = meta
	}

	if event.Provider == domain.ProviderDiscord {
		meta["provider"] = domain.ProviderDiscord
		if subject := externalSubject(event.UserMetadata); subject != "" {
			meta["provider_id"] = subject
		}
	}

	meta["role"] = string(role)
	if role.IsAdmin() {
		meta["is_admin"] = true
	}

	return augmented
}

// externalSubject pulls the provider's opaque subject id, trying the primary
// field then the fallback.
func externalSubject(userMetadata map[string]any) string {
	if userMetadata == nil {
		return ""
	}
	if id, ok := userMetadata["provider_id"].(string); ok && id != "" {
		return id
	}
	if sub, ok := userMetadata["sub"].(string); ok && sub != "" {
		return sub
	}
	return ""
}
