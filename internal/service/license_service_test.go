package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/license-service/internal/auth"
	"github.com/spec-kit/license-service/internal/config"
	"github.com/spec-kit/license-service/internal/domain"
	apperrors "github.com/spec-kit/license-service/pkg/util"
)

// mockLicenseRepo is an in-memory LicenseRepository.
type mockLicenseRepo struct {
	byID    map[string]*domain.License
	seq     int
	bindErr error
}

func newMockLicenseRepo() *mockLicenseRepo {
	return &mockLicenseRepo{byID: make(map[string]*domain.License)}
}

func cloneLicense(l *domain.License) *domain.License {
	out := *l
	if l.HWID != nil {
		v := *l.HWID
		out.HWID = &v
	}
	if l.LastResetDate != nil {
		v := *l.LastResetDate
		out.LastResetDate = &v
	}
	if l.ExpiresAt != nil {
		v := *l.ExpiresAt
		out.ExpiresAt = &v
	}
	return &out
}

func (m *mockLicenseRepo) Create(_ context.Context, license *domain.License) error {
	m.seq++
	license.ID = fmt.Sprintf("lic-%d", m.seq)
	license.CreatedAt = time.Now()
	license.UpdatedAt = license.CreatedAt
	m.byID[license.ID] = cloneLicense(license)
	return nil
}

func (m *mockLicenseRepo) Update(_ context.Context, license *domain.License) error {
	if _, ok := m.byID[license.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.byID[license.ID] = cloneLicense(license)
	return nil
}

func (m *mockLicenseRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.byID, id)
	return nil
}

func (m *mockLicenseRepo) GetByID(_ context.Context, id string) (*domain.License, error) {
	if l, ok := m.byID[id]; ok {
		return cloneLicense(l), nil
	}
	return nil, pgx.ErrNoRows
}

func (m *mockLicenseRepo) GetByKey(_ context.Context, key string) (*domain.License, error) {
	for _, l := range m.byID {
		if l.LicenseKey == key {
			return cloneLicense(l), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockLicenseRepo) GetByIDAndUser(_ context.Context, id, userID string) (*domain.License, error) {
	if l, ok := m.byID[id]; ok && l.UserID == userID {
		return cloneLicense(l), nil
	}
	return nil, pgx.ErrNoRows
}

func (m *mockLicenseRepo) ListByUser(_ context.Context, userID string) ([]*domain.License, error) {
	var out []*domain.License
	for _, l := range m.byID {
		if l.UserID == userID {
			out = append(out, cloneLicense(l))
		}
	}
	return out, nil
}

func (m *mockLicenseRepo) BindHWID(_ context.Context, id, hwid string) error {
	if m.bindErr != nil {
		return m.bindErr
	}
	l, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if l.HWID != nil && *l.HWID != "" && *l.HWID != hwid {
		return pgx.ErrNoRows
	}
	bound := hwid
	l.HWID = &bound
	l.UpdatedAt = time.Now()
	return nil
}

func (m *mockLicenseRepo) ResetHWID(_ context.Context, id string, now time.Time) error {
	l, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	cleared := ""
	l.HWID = &cleared
	l.LastResetDate = &now
	l.UpdatedAt = now
	return nil
}

func (m *mockLicenseRepo) KeyExists(_ context.Context, key string) (bool, error) {
	for _, l := range m.byID {
		if l.LicenseKey == key {
			return true, nil
		}
	}
	return false, nil
}

func newTestLicenseService(repo *mockLicenseRepo) *LicenseService {
	cfg := config.LicenseConfig{
		TokenTTLSeconds:  3600,
		ResetCooldownDay: 7,
		KeyAttempts:      5,
	}
	return NewLicenseService(cfg, LicenseDependencies{
		LicenseRepo: repo,
		Codec:       auth.NewLicenseTokenCodec("", cfg.TokenTTL()),
	}, zap.NewNop())
}

func TestVerify_BindsThenRejectsSecondDevice(t *testing.T) {
	repo := newMockLicenseRepo()
	svc := newTestLicenseService(repo)
	ctx := context.Background()

	license, err := svc.Generate(ctx, "user-1", "Autovoter", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.HasPrefix(license.LicenseKey, "AUT-") {
		t.Errorf("license key %q missing AUT prefix", license.LicenseKey)
	}

	verified, token, expiresAt, err := svc.Verify(ctx, license.LicenseKey, "device-1")
	if err != nil {
		t.Fatalf("first Verify failed: %v", err)
	}
	if verified.HWID == nil || *verified.HWID != "device-1" {
		t.Errorf("license not bound to device-1: %+v", verified.HWID)
	}
	if token == "" {
		t.Error("expected a bearer token")
	}
	if remaining := time.Until(expiresAt); remaining < 59*time.Minute || remaining > time.Hour {
		t.Errorf("token lifetime out of range: %v", remaining)
	}

	// same device again is idempotent
	if _, _, _, err := svc.Verify(ctx, license.LicenseKey, "device-1"); err != nil {
		t.Fatalf("repeat Verify failed: %v", err)
	}

	// a second device is rejected
	_, _, _, err = svc.Verify(ctx, license.LicenseKey, "device-2")
	if err == nil {
		t.Fatal("expected HWID mismatch")
	}
	if !apperrors.IsCode(err, "CONFLICT") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestVerify_InactiveAndExpired(t *testing.T) {
	repo := newMockLicenseRepo()
	svc := newTestLicenseService(repo)
	ctx := context.Background()

	license, err := svc.Generate(ctx, "user-1", "Autovoter", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, err := svc.Revoke(ctx, license.ID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, _, _, err := svc.Verify(ctx, license.LicenseKey, ""); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("revoked license: unexpected error %v", err)
	}

	past := time.Now().Add(-time.Hour)
	expired, err := svc.Generate(ctx, "user-1", "Other", &past)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, _, _, err := svc.Verify(ctx, expired.LicenseKey, ""); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("expired license: unexpected error %v", err)
	}
}

func TestVerify_UnknownKeyAndMissingKey(t *testing.T) {
	svc := newTestLicenseService(newMockLicenseRepo())
	ctx := context.Background()

	if _, _, _, err := svc.Verify(ctx, "", "device-1"); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Errorf("missing key: unexpected error %v", err)
	}
	if _, _, _, err := svc.Verify(ctx, "AUT-0000-0000-0000-0000", ""); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Errorf("unknown key: unexpected error %v", err)
	}
}

func TestVerify_BindPersistFailureIsNonCritical(t *testing.T) {
	repo := newMockLicenseRepo()
	svc := newTestLicenseService(repo)
	ctx := context.Background()

	license, err := svc.Generate(ctx, "user-1", "Autovoter", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	repo.bindErr = errors.New("store down")
	_, token, _, err := svc.Verify(ctx, license.LicenseKey, "device-1")
	if err != nil {
		t.Fatalf("Verify should tolerate bind persistence failure, got: %v", err)
	}
	if token == "" {
		t.Error("expected a bearer token despite bind failure")
	}
}

func TestResetHWID_CooldownBoundaries(t *testing.T) {
	repo := newMockLicenseRepo()
	svc := newTestLicenseService(repo)
	ctx := context.Background()

	license, err := svc.Generate(ctx, "user-1", "Autovoter", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, _, _, err := svc.Verify(ctx, license.LicenseKey, "device-1"); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	t0 := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return t0 }

	reset, err := svc.ResetHWID(ctx, license.ID, "user-1")
	if err != nil {
		t.Fatalf("first reset failed: %v", err)
	}
	if reset.HWID == nil || *reset.HWID != "" {
		t.Errorf("hwid not cleared: %+v", reset.HWID)
	}

	// immediate second reset: rate limited, exactly 7 day(s) remaining
	_, err = svc.ResetHWID(ctx, license.ID, "user-1")
	if err == nil {
		t.Fatal("expected rate limit")
	}
	domainErr := apperrors.ToDomainError(err)
	if domainErr.Code != "RATE_LIMITED" {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(domainErr.Message, "7 day(s)") {
		t.Errorf("message %q should cite 7 day(s)", domainErr.Message)
	}
	if days, ok := domainErr.Details["remaining_days"].(int64); !ok || days != 7 {
		t.Errorf("remaining_days = %v, want 7", domainErr.Details["remaining_days"])
	}

	// one millisecond before the window closes: still rate limited
	svc.now = func() time.Time { return t0.Add(7*24*time.Hour - time.Millisecond) }
	if _, err := svc.ResetHWID(ctx, license.ID, "user-1"); !apperrors.IsCode(err, "RATE_LIMITED") {
		t.Errorf("expected rate limit at window minus 1ms, got %v", err)
	}

	// exactly seven days elapsed: allowed
	svc.now = func() time.Time { return t0.Add(7 * 24 * time.Hour) }
	if _, err := svc.ResetHWID(ctx, license.ID, "user-1"); err != nil {
		t.Errorf("expected reset at exactly 7 days, got %v", err)
	}
}

func TestResetHWID_WrongUserOrLicense(t *testing.T) {
	repo := newMockLicenseRepo()
	svc := newTestLicenseService(repo)
	ctx := context.Background()

	license, err := svc.Generate(ctx, "user-1", "Autovoter", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	_, err = svc.ResetHWID(ctx, license.ID, "someone-else")
	if !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg := apperrors.ToDomainError(err).Message; msg != "License not found or does not belong to the user" {
		t.Errorf("unexpected message %q", msg)
	}

	if _, err := svc.ResetHWID(ctx, "", "user-1"); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Errorf("missing ids: unexpected error %v", err)
	}
}

func TestExtendAndDelete(t *testing.T) {
	repo := newMockLicenseRepo()
	svc := newTestLicenseService(repo)
	ctx := context.Background()

	license, err := svc.Generate(ctx, "user-1", "Autovoter", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	future := time.Now().Add(30 * 24 * time.Hour)
	extended, err := svc.Extend(ctx, license.ID, &future)
	if err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	if extended.ExpiresAt == nil || !extended.ExpiresAt.Equal(future) {
		t.Errorf("expiry not updated: %v", extended.ExpiresAt)
	}

	if err := svc.Delete(ctx, license.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := svc.Delete(ctx, license.ID); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Errorf("second delete: unexpected error %v", err)
	}
}
