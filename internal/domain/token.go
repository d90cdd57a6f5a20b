package domain

// LicenseTokenPayload is the ephemeral bearer token body scoping a caller to
// one license. It is encoded on the wire, never persisted.
type LicenseTokenPayload struct {
	LicenseID   string `json:"license_id"`
	ProductName string `json:"product_name"`
	UserID      string `json:"user_id"`
	Exp         int64  `json:"exp"`
}
