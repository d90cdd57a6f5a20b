package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/license-service/internal/auth"
	"github.com/spec-kit/license-service/internal/config"
	"github.com/spec-kit/license-service/internal/domain"
	"github.com/spec-kit/license-service/internal/repository"
)

const providerPassword = "password"

// AuthService coordinates registration and login flows. Session claims run
// through the claims hook before signing so every issued session carries the
// caller's resolved role and app_metadata.
type AuthService struct {
	users      repository.UserRepository
	claims     *ClaimsService
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates collaborator requirements.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Claims   *ClaimsService
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		claims:     deps.Claims,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// RegisterUser creates a new account and issues a session.
func (s *AuthService) RegisterUser(ctx context.Context, name, email, password string) (*domain.User, string, time.Time, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, errors.New("email already registered")
	} else if err != nil && err != pgx.ErrNoRows {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// LoginUser authenticates an account and issues a session.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if user.Status != domain.UserStatusActive {
		return nil, "", time.Time{}, errors.New("account suspended")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, errors.New("invalid credentials")
	}

	token, exp, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// issueSession builds a claims event, runs it through the hook and signs the
// resulting claims into a session JWT.
func (s *AuthService) issueSession(ctx context.Context, user *domain.User) (string, time.Time, error) {
	event := domain.ClaimsEvent{
		UserID:   user.ID,
		Provider: providerPassword,
		Claims:   map[string]any{},
	}
	augmented := s.claims.Augment(ctx, event)

	role := domain.RoleAuthenticated
	if name, ok := augmented.Claims["role"].(string); ok && name != "" {
		role = domain.RoleName(name)
	}
	meta, _ := augmented.Claims["app_metadata"].(map[string]any)

	return s.tokenMgr.GenerateToken(user.ID, role, meta)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
