package dto

import (
	"time"

	"github.com/spec-kit/license-service/internal/domain"
)

// VerifyLicenseRequest payload for license verification.
type VerifyLicenseRequest struct {
	LicenseKey string `json:"license_key"`
	HWID       string `json:"hwid,omitempty"`
}

// VerifiedLicense is the license view returned on successful verification.
type VerifiedLicense struct {
	ID          string `json:"id"`
	ProductName string `json:"product_name"`
	HWID        string `json:"hwid"`
	Active      bool   `json:"active"`
}

// VerifyLicenseResponse is the wire contract for verification results.
type VerifyLicenseResponse struct {
	Valid     bool             `json:"valid"`
	Message   string           `json:"message"`
	License   *VerifiedLicense `json:"license,omitempty"`
	Token     string           `json:"token,omitempty"`
	ExpiresAt string           `json:"expires_at,omitempty"`
}

// ResetHWIDRequest payload for HWID resets.
type ResetHWIDRequest struct {
	LicenseID string `json:"license_id"`
	UserID    string `json:"user_id"`
}

// ResetHWIDResponse is the wire contract for HWID resets.
type ResetHWIDResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// GenerateLicenseRequest payload for license generation.
type GenerateLicenseRequest struct {
	UserID      string `json:"userId"`
	ProductName string `json:"productName"`
	ExpiresAt   string `json:"expiresAt,omitempty"`
}

// GenerateLicenseResponse is the wire contract for license generation.
type GenerateLicenseResponse struct {
	Success bool             `json:"success"`
	License *LicenseResponse `json:"license,omitempty"`
	Message string           `json:"message"`
}

// ExtendLicenseRequest payload for expiry updates. A null expiresAt clears
// the expiry.
type ExtendLicenseRequest struct {
	ExpiresAt *string `json:"expiresAt"`
}

// LicenseResponse is the full license view for administrative endpoints.
type LicenseResponse struct {
	ID            string     `json:"id"`
	LicenseKey    string     `json:"license_key"`
	ProductName   string     `json:"product_name"`
	Active        bool       `json:"active"`
	HWID          string     `json:"hwid"`
	LastResetDate *time.Time `json:"last_reset_date,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	UserID        string     `json:"user_id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ActivityLogResponse is the wire view of one audit row.
type ActivityLogResponse struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	EventType string         `json:"event_type"`
	Details   string         `json:"details"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewActivityLogResponse maps an audit row to its wire view.
func NewActivityLogResponse(log *domain.ActivityLog) *ActivityLogResponse {
	return &ActivityLogResponse{
		ID:        log.ID,
		UserID:    log.UserID,
		EventType: string(log.EventType),
		Details:   log.Details,
		Metadata:  log.Metadata,
		CreatedAt: log.CreatedAt,
	}
}

// NewLicenseResponse maps the domain model to its wire view.
func NewLicenseResponse(license *domain.License) *LicenseResponse {
	hwid := ""
	if license.HWID != nil {
		hwid = *license.HWID
	}
	return &LicenseResponse{
		ID:            license.ID,
		LicenseKey:    license.LicenseKey,
		ProductName:   license.ProductName,
		Active:        license.Active,
		HWID:          hwid,
		LastResetDate: license.LastResetDate,
		ExpiresAt:     license.ExpiresAt,
		UserID:        license.UserID,
		CreatedAt:     license.CreatedAt,
		UpdatedAt:     license.UpdatedAt,
	}
}

// NewVerifiedLicense maps the domain model to the verification view.
func NewVerifiedLicense(license *domain.License) *VerifiedLicense {
	hwid := ""
	if license.HWID != nil {
		hwid = *license.HWID
	}
	return &VerifiedLicense{
		ID:          license.ID,
		ProductName: license.ProductName,
		HWID:        hwid,
		Active:      license.Active,
	}
}
