package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/license-service/internal/config"
	"github.com/spec-kit/license-service/internal/domain"
)

// mockUserRepo is an in-memory UserRepository.
type mockUserRepo struct {
	byID    map[string]*domain.User
	byEmail map[string]*domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]*domain.User),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user *domain.User) error {
	user.ID = uuid.NewString()
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user
	return nil
}

func (m *mockUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := m.byID[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func newTestAuthService(users *mockUserRepo, roles *mockRoleRepo) *AuthService {
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 60,
			BcryptCost:            4,
		},
	}
	return NewAuthService(cfg, AuthDependencies{
		UserRepo: users,
		Claims:   NewClaimsService(roles, zap.NewNop()),
	})
}

func TestRegisterAndLogin_SessionCarriesRole(t *testing.T) {
	users := newMockUserRepo()
	roles := &mockRoleRepo{}
	svc := newTestAuthService(users, roles)
	ctx := context.Background()

	user, token, _, err := svc.RegisterUser(ctx, "Alice", "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}

	claims, err := svc.TokenManager().ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("user_id = %q, want %q", claims.UserID, user.ID)
	}
	if claims.Role != domain.RoleAuthenticated {
		t.Errorf("role = %q, want authenticated", claims.Role)
	}

	// promote to admin, login again
	if err := roles.Upsert(ctx, &domain.AuthorizationRole{UserID: user.ID, RoleName: domain.RoleAdmin}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	_, token, _, err = svc.LoginUser(ctx, "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("LoginUser failed: %v", err)
	}
	claims, err = svc.TokenManager().ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.Role != domain.RoleAdmin {
		t.Errorf("role = %q, want admin", claims.Role)
	}
	if claims.AppMetadata["is_admin"] != true {
		t.Errorf("app_metadata.is_admin = %v, want true", claims.AppMetadata["is_admin"])
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(users, &mockRoleRepo{})
	ctx := context.Background()

	if _, _, _, err := svc.RegisterUser(ctx, "Bob", "bob@example.com", "correct"); err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}

	if _, _, _, err := svc.LoginUser(ctx, "bob@example.com", "wrong"); err == nil {
		t.Error("expected login with wrong password to fail")
	}
	if _, _, _, err := svc.LoginUser(ctx, "nobody@example.com", "x"); err == nil {
		t.Error("expected login for unknown email to fail")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(users, &mockRoleRepo{})
	ctx := context.Background()

	if _, _, _, err := svc.RegisterUser(ctx, "Bob", "bob@example.com", "pw"); err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
	if _, _, _, err := svc.RegisterUser(ctx, "Bob2", "bob@example.com", "pw"); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}
