package domain

import "time"

// License is the domain model for an issued software license. A license is
// bound to at most one hardware identity at a time; HWID and LastResetDate
// are mutated only through the reset/bind flows.
type License struct {
	ID            string
	LicenseKey    string
	ProductName   string
	Active        bool
	HWID          *string
	LastResetDate *time.Time
	ExpiresAt     *time.Time
	UserID        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Expired reports whether the license carries an expiry in the past.
// Licenses without an expiry never expire.
func (l *License) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

// BoundTo reports whether the license is already bound to the given HWID.
func (l *License) BoundTo(hwid string) bool {
	return l.HWID != nil && *l.HWID == hwid
}

// HasHWID reports whether any non-empty hardware identity is bound.
func (l *License) HasHWID() bool {
	return l.HWID != nil && *l.HWID != ""
}
