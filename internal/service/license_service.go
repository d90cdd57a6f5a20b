package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/license-service/internal/auth"
	"github.com/spec-kit/license-service/internal/config"
	"github.com/spec-kit/license-service/internal/domain"
	"github.com/spec-kit/license-service/internal/events"
	"github.com/spec-kit/license-service/internal/keygen"
	"github.com/spec-kit/license-service/internal/persistence"
	"github.com/spec-kit/license-service/internal/repository"
	apperrors "github.com/spec-kit/license-service/pkg/util"
)

// LicenseService orchestrates the license lifecycle: generation, verification
// with HWID binding, HWID resets under a cool-down, and the administrative
// extend/revoke/delete operations. Each call is a stateless unit of work;
// consistency is delegated to conditional updates at the store.
type LicenseService struct {
	licenses   repository.LicenseRepository
	keys       *keygen.Generator
	codec      *auth.LicenseTokenCodec
	dispatcher events.Dispatcher
	cache      *persistence.Redis
	cacheTTL   time.Duration
	cooldown   time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// LicenseDependencies encapsulates collaborator requirements.
type LicenseDependencies struct {
	LicenseRepo repository.LicenseRepository
	Codec       *auth.LicenseTokenCodec
	Dispatcher  events.Dispatcher
	Cache       *persistence.Redis
}

// NewLicenseService builds the service.
func NewLicenseService(cfg config.LicenseConfig, deps LicenseDependencies, logger *zap.Logger) *LicenseService {
	return &LicenseService{
		licenses:   deps.LicenseRepo,
		keys:       keygen.NewGenerator(deps.LicenseRepo, cfg.KeyAttempts),
		codec:      deps.Codec,
		dispatcher: deps.Dispatcher,
		cache:      deps.Cache,
		cacheTTL:   cfg.CacheTTL(),
		cooldown:   cfg.ResetCooldown(),
		logger:     logger,
		now:        time.Now,
	}
}

// Generate creates a license with a fresh product-prefixed key.
func (s *LicenseService) Generate(ctx context.Context, userID, productName string, expiresAt *time.Time) (*domain.License, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("userId is required", nil)
	}
	if productName == "" {
		return nil, apperrors.NewValidationError("productName is required", nil)
	}

	key, err := s.keys.Generate(ctx, productName)
	if err != nil {
		return nil, err
	}

	license := &domain.License{
		LicenseKey:  key,
		ProductName: productName,
		Active:      true,
		ExpiresAt:   expiresAt,
		UserID:      userID,
	}
	if err := s.licenses.Create(ctx, license); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventLicenseGenerated, license, events.LicenseGeneratedPayload{
		LicenseKey:  license.LicenseKey,
		ProductName: license.ProductName,
		ExpiresAt:   license.ExpiresAt,
	})
	return license, nil
}

// Verify validates a license key, binds the supplied HWID when the license is
// unbound, and mints a bearer token scoped to the license.
func (s *LicenseService) Verify(ctx context.Context, licenseKey, hwid string) (*domain.License, string, time.Time, error) {
	if licenseKey == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("license_key is required", nil)
	}

	license, err := s.loadByKey(ctx, licenseKey)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", time.Time{}, apperrors.NewNotFoundMessage("License not found")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	if !license.Active {
		return nil, "", time.Time{}, apperrors.NewForbidden("License is revoked")
	}
	if license.Expired(s.now()) {
		return nil, "", time.Time{}, apperrors.NewForbidden("License has expired")
	}

	if hwid != "" {
		if license.HasHWID() && !license.BoundTo(hwid) {
			return nil, "", time.Time{}, apperrors.NewConflict(
				"License is already in use on another device", nil)
		}
		if !license.BoundTo(hwid) {
			// Bind failure is non-critical: log and continue, the mismatch
			// check on the next call catches a racing second device.
			if err := s.licenses.BindHWID(ctx, license.ID, hwid); err != nil {
				s.logger.Warn("failed to persist hwid binding",
					zap.String("license_id", license.ID), zap.Error(err))
			} else {
				bound := hwid
				license.HWID = &bound
				s.invalidate(ctx, license.LicenseKey)
				s.publish(ctx, events.EventHWIDBound, license, events.HWIDBoundPayload{HWID: hwid})
			}
		}
	}

	token, expiresAt, err := s.codec.Issue(license)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return license, token, expiresAt, nil
}

// ResetHWID clears the bound hardware identity for a license owned by the
// given user, enforcing the reset cool-down.
func (s *LicenseService) ResetHWID(ctx context.Context, licenseID, userID string) (*domain.License, error) {
	if licenseID == "" || userID == "" {
		return nil, apperrors.NewValidationError("license_id and user_id are required", nil)
	}

	license, err := s.licenses.GetByIDAndUser(ctx, licenseID, userID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFoundMessage("License not found or does not belong to the user")
		}
		return nil, apperrors.MapError(err)
	}

	now := s.now()
	if license.LastResetDate != nil {
		elapsed := now.Sub(*license.LastResetDate)
		if elapsed < s.cooldown {
			days := remainingDays(s.cooldown - elapsed)
			return nil, apperrors.NewRateLimited(
				fmt.Sprintf("HWID was reset recently, try again in %d day(s)", days),
				map[string]any{"remaining_days": days})
		}
	}

	previous := ""
	if license.HWID != nil {
		previous = *license.HWID
	}

	if err := s.licenses.ResetHWID(ctx, license.ID, now); err != nil {
		return nil, apperrors.MapError(err)
	}

	cleared := ""
	license.HWID = &cleared
	license.LastResetDate = &now
	s.invalidate(ctx, license.LicenseKey)
	s.publish(ctx, events.EventHWIDReset, license, events.HWIDResetPayload{PreviousHWID: previous})
	return license, nil
}

// Extend updates the expiry of a license.
func (s *LicenseService) Extend(ctx context.Context, licenseID string, expiresAt *time.Time) (*domain.License, error) {
	license, err := s.licenses.GetByID(ctx, licenseID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("license", nil)
		}
		return nil, apperrors.MapError(err)
	}

	old := license.ExpiresAt
	license.ExpiresAt = expiresAt
	if err := s.licenses.Update(ctx, license); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.invalidate(ctx, license.LicenseKey)
	s.publish(ctx, events.EventLicenseExtended, license, events.LicenseExtendedPayload{
		OldExpiresAt: old,
		NewExpiresAt: expiresAt,
	})
	return license, nil
}

// Revoke deactivates a license; revoked licenses fail verification
// regardless of expiry.
func (s *LicenseService) Revoke(ctx context.Context, licenseID string) (*domain.License, error) {
	license, err := s.licenses.GetByID(ctx, licenseID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("license", nil)
		}
		return nil, apperrors.MapError(err)
	}

	license.Active = false
	if err := s.licenses.Update(ctx, license); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.invalidate(ctx, license.LicenseKey)
	s.publish(ctx, events.EventLicenseRevoked, license, events.LicenseRevokedPayload{
		LicenseKey: license.LicenseKey,
	})
	return license, nil
}

// Delete removes a license permanently.
func (s *LicenseService) Delete(ctx context.Context, licenseID string) error {
	license, err := s.licenses.GetByID(ctx, licenseID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("license", nil)
		}
		return apperrors.MapError(err)
	}

	if err := s.licenses.Delete(ctx, license.ID); err != nil {
		return apperrors.MapError(err)
	}

	s.invalidate(ctx, license.LicenseKey)
	s.publish(ctx, events.EventLicenseDeleted, license, events.LicenseDeletedPayload{
		LicenseKey:  license.LicenseKey,
		ProductName: license.ProductName,
	})
	return nil
}

// Resolve loads the license referenced by a verified bearer token payload.
func (s *LicenseService) Resolve(ctx context.Context, payload *domain.LicenseTokenPayload) (*domain.License, error) {
	return s.Get(ctx, payload.LicenseID)
}

// Get loads a license by id.
func (s *LicenseService) Get(ctx context.Context, licenseID string) (*domain.License, error) {
	license, err := s.licenses.GetByID(ctx, licenseID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("license", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return license, nil
}

// ListByUser returns a user's licenses for the admin surface.
func (s *LicenseService) ListByUser(ctx context.Context, userID string) ([]*domain.License, error) {
	licenses, err := s.licenses.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return licenses, nil
}

// loadByKey reads through the verify-path cache when one is configured.
func (s *LicenseService) loadByKey(ctx context.Context, licenseKey string) (*domain.License, error) {
	if s.cacheEnabled() {
		if raw, err := s.cache.Client.Get(ctx, cacheKey(licenseKey)).Bytes(); err == nil {
			var cached domain.License
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	license, err := s.licenses.GetByKey(ctx, licenseKey)
	if err != nil {
		return nil, err
	}

	if s.cacheEnabled() {
		if raw, err := json.Marshal(license); err == nil {
			if err := s.cache.Client.Set(ctx, cacheKey(licenseKey), raw, s.cacheTTL).Err(); err != nil {
				s.logger.Debug("license cache write failed", zap.Error(err))
			}
		}
	}
	return license, nil
}

func (s *LicenseService) invalidate(ctx context.Context, licenseKey string) {
	if !s.cacheEnabled() {
		return
	}
	if err := s.cache.Client.Del(ctx, cacheKey(licenseKey)).Err(); err != nil {
		s.logger.Debug("license cache invalidation failed", zap.Error(err))
	}
}

func (s *LicenseService) cacheEnabled() bool {
	return s.cache != nil && s.cache.Client != nil && s.cacheTTL > 0
}

func (s *LicenseService) publish(ctx context.Context, eventType events.EventType, license *domain.License, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		LicenseID: license.ID,
		UserID:    license.UserID,
		Timestamp: s.now(),
		Payload:   payload,
	})
}

func cacheKey(licenseKey string) string {
	return "license:key:" + licenseKey
}

// remainingDays is the ceiling of the remaining cool-down in whole days.
func remainingDays(remaining time.Duration) int64 {
	const dayMillis = 24 * 60 * 60 * 1000
	return int64(math.Ceil(float64(remaining.Milliseconds()) / float64(dayMillis)))
}
