package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/license-service/internal/api/dto"
	"github.com/spec-kit/license-service/internal/auth"
	"github.com/spec-kit/license-service/internal/service"
	apperrors "github.com/spec-kit/license-service/pkg/util"
)

// LicensesHandler exposes the license lifecycle endpoints.
type LicensesHandler struct {
	licenses *service.LicenseService
	activity *service.ActivityService
	logger   *zap.Logger
}

// NewLicensesHandler constructs handler.
func NewLicensesHandler(licenses *service.LicenseService, activity *service.ActivityService, logger *zap.Logger) *LicensesHandler {
	return &LicensesHandler{licenses: licenses, activity: activity, logger: logger}
}

// Verify handles POST /licenses/verify. Failures keep the fixed
// {valid,message} contract rather than the generic error envelope.
func (h *LicensesHandler) Verify(c *fiber.Ctx) error {
	var req dto.VerifyLicenseRequest
	if err := c.BodyParser(&req); err != nil {
		return h.verifyFailure(c, apperrors.NewValidationError("invalid payload", nil))
	}

	license, token, expiresAt, err := h.licenses.Verify(c.Context(), req.LicenseKey, req.HWID)
	if err != nil {
		return h.verifyFailure(c, err)
	}

	return c.JSON(dto.VerifyLicenseResponse{
		Valid:     true,
		Message:   "License verified successfully",
		License:   dto.NewVerifiedLicense(license),
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}

// ResetHWID handles POST /licenses/reset-hwid.
func (h *LicensesHandler) ResetHWID(c *fiber.Ctx) error {
	var req dto.ResetHWIDRequest
	if err := c.BodyParser(&req); err != nil {
		return h.resetFailure(c, apperrors.NewValidationError("invalid payload", nil))
	}

	license, err := h.licenses.ResetHWID(c.Context(), req.LicenseID, req.UserID)
	if err != nil {
		return h.resetFailure(c, err)
	}

	return c.JSON(dto.ResetHWIDResponse{
		Success: true,
		Message: "HWID reset successfully",
		Data:    dto.NewLicenseResponse(license),
	})
}

// Generate handles POST /admin/licenses.
func (h *LicensesHandler) Generate(c *fiber.Ctx) error {
	var req dto.GenerateLicenseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			return apperrors.NewValidationError("expiresAt must be an ISO-8601 timestamp", nil)
		}
		expiresAt = &parsed
	}

	license, err := h.licenses.Generate(c.Context(), req.UserID, req.ProductName, expiresAt)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.GenerateLicenseResponse{
		Success: true,
		License: dto.NewLicenseResponse(license),
		Message: "License generated successfully",
	})
}

// Extend handles POST /admin/licenses/:id/extend.
func (h *LicensesHandler) Extend(c *fiber.Ctx) error {
	var req dto.ExtendLicenseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		parsed, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			return apperrors.NewValidationError("expiresAt must be an ISO-8601 timestamp", nil)
		}
		expiresAt = &parsed
	}

	license, err := h.licenses.Extend(c.Context(), c.Params("id"), expiresAt)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLicenseResponse(license)})
}

// Revoke handles POST /admin/licenses/:id/revoke.
func (h *LicensesHandler) Revoke(c *fiber.Ctx) error {
	license, err := h.licenses.Revoke(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLicenseResponse(license)})
}

// Delete handles DELETE /admin/licenses/:id.
func (h *LicensesHandler) Delete(c *fiber.Ctx) error {
	if err := h.licenses.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Get handles GET /admin/licenses/:id.
func (h *LicensesHandler) Get(c *fiber.Ctx) error {
	license, err := h.licenses.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLicenseResponse(license)})
}

// ListForUser handles GET /admin/users/:id/licenses.
func (h *LicensesHandler) ListForUser(c *fiber.Ctx) error {
	licenses, err := h.licenses.ListByUser(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	out := make([]*dto.LicenseResponse, 0, len(licenses))
	for _, license := range licenses {
		out = append(out, dto.NewLicenseResponse(license))
	}
	return c.JSON(fiber.Map{"data": out})
}

// ActivityForUser handles GET /admin/users/:id/activity.
func (h *LicensesHandler) ActivityForUser(c *fiber.Ctx) error {
	logs, err := h.activity.RecentForUser(c.Context(), c.Params("id"), c.QueryInt("limit", 50))
	if err != nil {
		return apperrors.MapError(err)
	}

	out := make([]*dto.ActivityLogResponse, 0, len(logs))
	for _, log := range logs {
		out = append(out, dto.NewActivityLogResponse(log))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Me handles GET /licenses/me for license-token-scoped callers.
func (h *LicensesHandler) Me(c *fiber.Ctx) error {
	payload, ok := auth.LicenseTokenFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("missing license token")
	}

	license, err := h.licenses.Resolve(c.Context(), payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLicenseResponse(license)})
}

func (h *LicensesHandler) verifyFailure(c *fiber.Ctx, err error) error {
	domainErr := apperrors.ToDomainError(err)
	if domainErr.HTTPStatus >= 500 {
		h.logger.Error("license verification failed", zap.Error(domainErr))
	}
	return c.Status(domainErr.HTTPStatus).JSON(dto.VerifyLicenseResponse{
		Valid:   false,
		Message: domainErr.Message,
	})
}

func (h *LicensesHandler) resetFailure(c *fiber.Ctx, err error) error {
	domainErr := apperrors.ToDomainError(err)
	if domainErr.HTTPStatus >= 500 {
		h.logger.Error("hwid reset failed", zap.Error(domainErr))
	}
	return c.Status(domainErr.HTTPStatus).JSON(dto.ResetHWIDResponse{
		Success: false,
		Message: domainErr.Message,
	})
}
