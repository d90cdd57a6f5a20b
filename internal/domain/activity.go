package domain

import "time"

// ActivityEventType enumerates audited license lifecycle events.
type ActivityEventType string

const (
	ActivityLicenseGenerated ActivityEventType = "license_generated"
	ActivityHWIDBound        ActivityEventType = "hwid_bound"
	ActivityHWIDReset        ActivityEventType = "hwid_reset"
	ActivityLicenseExtended  ActivityEventType = "license_extended"
	ActivityLicenseRevoked   ActivityEventType = "license_revoked"
	ActivityLicenseDeleted   ActivityEventType = "license_deleted"
)

// ActivityLog is a best-effort audit record. Writes are fire-and-forget;
// a lost row never fails the operation that produced it.
type ActivityLog struct {
	ID        string
	UserID    string
	EventType ActivityEventType
	Details   string
	Metadata  map[string]any
	CreatedAt time.Time
}
