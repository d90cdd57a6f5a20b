package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/license-service/internal/domain"
	"github.com/spec-kit/license-service/internal/service"
)

// HooksHandler exposes the identity-provider claims augmentation hook.
type HooksHandler struct {
	claims *service.ClaimsService
}

// NewHooksHandler constructs handler.
func NewHooksHandler(claims *service.ClaimsService) *HooksHandler {
	return &HooksHandler{claims: claims}
}

// Claims handles POST /hooks/claims. The hook is fail-open: a malformed body
// or any internal failure returns the event as-received so authentication at
// the identity provider never breaks on our account.
func (h *HooksHandler) Claims(c *fiber.Ctx) error {
	var event domain.ClaimsEvent
	if err := c.BodyParser(&event); err != nil {
		return c.Send(c.Body())
	}

	augmented := h.claims.Augment(c.Context(), event)
	return c.JSON(augmented)
}
