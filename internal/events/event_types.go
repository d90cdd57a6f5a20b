package events

import (
	"time"

	"github.com/spec-kit/license-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLicenseGenerated EventType = "license_generated"
	EventHWIDBound        EventType = "hwid_bound"
	EventHWIDReset        EventType = "hwid_reset"
	EventLicenseExtended  EventType = "license_extended"
	EventLicenseRevoked   EventType = "license_revoked"
	EventLicenseDeleted   EventType = "license_deleted"
)

// Event represents a license lifecycle event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	LicenseID string      `json:"license_id"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// LicenseGeneratedPayload payload.
type LicenseGeneratedPayload struct {
	LicenseKey  string     `json:"license_key"`
	ProductName string     `json:"product_name"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// HWIDBoundPayload payload.
type HWIDBoundPayload struct {
	HWID string `json:"hwid"`
}

// HWIDResetPayload payload.
type HWIDResetPayload struct {
	PreviousHWID string `json:"previous_hwid,omitempty"`
}

// LicenseExtendedPayload payload.
type LicenseExtendedPayload struct {
	OldExpiresAt *time.Time `json:"old_expires_at,omitempty"`
	NewExpiresAt *time.Time `json:"new_expires_at,omitempty"`
}

// LicenseRevokedPayload payload.
type LicenseRevokedPayload struct {
	LicenseKey string `json:"license_key"`
}

// LicenseDeletedPayload payload.
type LicenseDeletedPayload struct {
	LicenseKey  string `json:"license_key"`
	ProductName string `json:"product_name"`
}

// ActivityEventType maps a dispatcher event type onto its audit counterpart.
func (t EventType) ActivityEventType() domain.ActivityEventType {
	return domain.ActivityEventType(t)
}
