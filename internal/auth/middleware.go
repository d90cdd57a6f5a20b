package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/license-service/internal/domain"
	"github.com/spec-kit/license-service/internal/repository"
	apperrors "github.com/spec-kit/license-service/pkg/util"
)

const (
	principalKey    = "auth_principal"
	licenseTokenKey = "license_token"
)

// Principal represents the authenticated caller of a session-protected route.
type Principal struct {
	User *domain.User
	Role domain.RoleName
}

// Middleware validates bearer credentials and loads principals.
type Middleware struct {
	tokens *TokenManager
	codec  *LicenseTokenCodec
	users  repository.UserRepository
	roles  repository.RoleRepository
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, codec *LicenseTokenCodec, users repository.UserRepository, roles repository.RoleRepository) *Middleware {
	return &Middleware{tokens: tokens, codec: codec, users: users, roles: roles}
}

// RequireSession enforces a valid session JWT and resolves the caller's
// current role from the role store.
func (m *Middleware) RequireSession(c *fiber.Ctx) error {
	token, ok := ExtractBearer(c.Get("Authorization"))
	if !ok {
		return apperrors.NewUnauthorized("missing or invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	user, err := m.users.GetByID(c.Context(), claims.UserID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}

	role := domain.RoleUser
	if row, err := m.roles.GetByUserID(c.Context(), user.ID); err == nil {
		role = row.RoleName
	}

	c.Locals(principalKey, &Principal{User: user, Role: role})
	return c.Next()
}

// RequireLicenseToken enforces a valid license bearer token. The decoded
// payload is stored for downstream handlers; no state is mutated.
func (m *Middleware) RequireLicenseToken(c *fiber.Ctx) error {
	token, ok := ExtractBearer(c.Get("Authorization"))
	if !ok {
		return apperrors.NewUnauthorized("missing or invalid authorization header")
	}

	payload, err := m.codec.Verify(token)
	if err != nil {
		return err
	}

	c.Locals(licenseTokenKey, payload)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated session principal.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// LicenseTokenFromContext retrieves the verified license token payload.
func LicenseTokenFromContext(c *fiber.Ctx) (*domain.LicenseTokenPayload, bool) {
	val := c.Locals(licenseTokenKey)
	if val == nil {
		return nil, false
	}
	payload, ok := val.(*domain.LicenseTokenPayload)
	return payload, ok
}
