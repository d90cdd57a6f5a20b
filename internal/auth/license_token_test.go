package auth

import (
	"encoding/base64"
	"strconv"
	"testing"
	"time"

	"github.com/spec-kit/license-service/internal/domain"
)

func testLicense() *domain.License {
	return &domain.License{
		ID:          "lic-1",
		ProductName: "Autovoter",
		UserID:      "user-1",
		Active:      true,
	}
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	codec := NewLicenseTokenCodec("", time.Hour)
	license := testLicense()

	token, expiresAt, err := codec.Issue(license)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if remaining := time.Until(expiresAt); remaining < 59*time.Minute {
		t.Errorf("expiry too close: %v", remaining)
	}

	payload, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if payload.LicenseID != license.ID {
		t.Errorf("license_id = %q, want %q", payload.LicenseID, license.ID)
	}
	if payload.ProductName != license.ProductName {
		t.Errorf("product_name = %q, want %q", payload.ProductName, license.ProductName)
	}
	if payload.UserID != license.UserID {
		t.Errorf("user_id = %q, want %q", payload.UserID, license.UserID)
	}
	if payload.Exp != expiresAt.Unix() {
		t.Errorf("exp = %d, want %d", payload.Exp, expiresAt.Unix())
	}

	// verification is idempotent
	again, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("second Verify failed: %v", err)
	}
	if *again != *payload {
		t.Errorf("second Verify returned different payload")
	}
}

func TestVerify_Expired(t *testing.T) {
	codec := NewLicenseTokenCodec("", time.Hour)
	token, _, err := codec.Issue(testLicense())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	codec.now = func() time.Time { return time.Now().Add(time.Hour + time.Second) }
	if _, err := codec.Verify(token); err == nil {
		t.Fatal("expected expired token to fail verification")
	}
}

func TestVerify_MalformedTokens(t *testing.T) {
	codec := NewLicenseTokenCodec("", time.Hour)
	exp := time.Now().Add(time.Hour).Unix()

	cases := []struct {
		name  string
		token string
	}{
		{"garbage", "not-base64!!!"},
		{"not json", base64.RawURLEncoding.EncodeToString([]byte("hello"))},
		{"missing exp", encodeJSON(t, `{"license_id":"a","product_name":"b","user_id":"c"}`)},
		{"missing license_id", encodeJSON(t, `{"product_name":"b","user_id":"c","exp":`+itoa(exp)+`}`)},
		{"missing product_name", encodeJSON(t, `{"license_id":"a","user_id":"c","exp":`+itoa(exp)+`}`)},
		{"empty", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := codec.Verify(tc.token); err == nil {
				t.Errorf("expected token %q to be invalid", tc.token)
			}
		})
	}
}

func TestVerify_SignedModeRejectsTampering(t *testing.T) {
	signed := NewLicenseTokenCodec("topsecret", time.Hour)
	token, _, err := signed.Issue(testLicense())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := signed.Verify(token); err != nil {
		t.Fatalf("Verify of signed token failed: %v", err)
	}

	// strip the tag
	unsignedOnly := token[:len(token)-10]
	if _, err := signed.Verify(unsignedOnly); err == nil {
		t.Error("expected truncated signed token to fail")
	}

	// wrong key
	other := NewLicenseTokenCodec("different", time.Hour)
	if _, err := other.Verify(token); err == nil {
		t.Error("expected token signed with another key to fail")
	}
}

func TestExtractBearer(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
		{"abc", "", false},
	}

	for _, tc := range cases {
		got, ok := ExtractBearer(tc.header)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ExtractBearer(%q) = (%q, %v), want (%q, %v)", tc.header, got, ok, tc.want, tc.ok)
		}
	}
}

func encodeJSON(t *testing.T, raw string) string {
	t.Helper()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
