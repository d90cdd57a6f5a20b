package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/spec-kit/license-service/internal/domain"
	apperrors "github.com/spec-kit/license-service/pkg/util"
)

const bearerPrefix = "Bearer "

// LicenseTokenCodec issues and verifies the short-lived bearer tokens that
// scope a caller to a single license. The payload is base64url-encoded JSON;
// when a secret is configured an HMAC-SHA256 tag is appended and required on
// verification, leaving the payload fields unchanged on the wire.
type LicenseTokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewLicenseTokenCodec builds a codec. An empty secret keeps tokens unsigned.
func NewLicenseTokenCodec(secret string, ttl time.Duration) *LicenseTokenCodec {
	if ttl <= 0 {
		ttl = time.Hour
	}
	codec := &LicenseTokenCodec{ttl: ttl, now: time.Now}
	if secret != "" {
		codec.secret = []byte(secret)
	}
	return codec
}

// Issue encodes a token scoping the caller to the given license and returns
// it together with its expiry instant.
func (c *LicenseTokenCodec) Issue(license *domain.License) (string, time.Time, error) {
	expiresAt := c.now().Add(c.ttl)
	payload := domain.LicenseTokenPayload{
		LicenseID:   license.ID,
		ProductName: license.ProductName,
		UserID:      license.UserID,
		Exp:         expiresAt.Unix(),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}

	token := base64.RawURLEncoding.EncodeToString(raw)
	if len(c.secret) > 0 {
		token = token + "." + c.sign(token)
	}
	return token, expiresAt, nil
}

// Verify decodes a token and checks its structure and expiry. It is pure and
// read-only; verifying the same token twice yields the same result until the
// token expires.
func (c *LicenseTokenCodec) Verify(token string) (*domain.LicenseTokenPayload, error) {
	encoded := token
	if len(c.secret) > 0 {
		body, tag, found := strings.Cut(token, ".")
		if !found || !hmac.Equal([]byte(c.sign(body)), []byte(tag)) {
			return nil, apperrors.NewUnauthorized("invalid token")
		}
		encoded = body
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}

	var payload domain.LicenseTokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	if payload.Exp == 0 {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	if payload.Exp <= c.now().Unix() {
		return nil, apperrors.NewUnauthorized("token expired")
	}
	if payload.LicenseID == "" || payload.ProductName == "" {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	return &payload, nil
}

func (c *LicenseTokenCodec) sign(body string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// ExtractBearer returns the token following the Bearer prefix of an
// Authorization header value. Pure parsing, no side effects.
func ExtractBearer(header string) (string, bool) {
	if len(header) <= len(bearerPrefix) {
		return "", false
	}
	if !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	return header[len(bearerPrefix):], true
}
