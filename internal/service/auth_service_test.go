package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"golang.org/x/crypto/bcrypt"

	"github.com/academia-sur/academy-api/internal/models"
	appErrors "github.com/academia-sur/academy-api/pkg/errors"
)

type mockAuthRepo struct {
	users   map[string]models.User
	byEmail map[string]string
	tokens  map[string]models.RefreshToken
	revoked []string
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		users:   make(map[string]models.User),
		byEmail: make(map[string]string),
		tokens:  make(map[string]models.RefreshToken),
	}
}

func (m *mockAuthRepo) addUser(user models.User) {
	m.users[user.ID] = user
	m.byEmail[user.Email] = user.ID
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if id, ok := m.byEmail[email]; ok {
		u := m.users[id]
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
		m.users[id] = u
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.tokens[token.Token] = *token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.tokens[token]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for key, t := range m.tokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
			m.tokens[key] = t
		}
	}
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "academy-api",
	}
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLoginIssuesTokensAndIdentity(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(models.User{
		ID:           "user-1",
		Email:        "ada@example.com",
		PasswordHash: hashPassword(t, "secret-password"),
		FullName:     "Ada",
		Role:         models.RoleTeacher,
		Active:       true,
	})
	svc := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "secret-password"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.RoleTeacher, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(models.User{
		ID:           "user-1",
		Email:        "ada@example.com",
		PasswordHash: hashPassword(t, "secret-password"),
		Active:       true,
	})
	svc := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "wrong"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(models.User{
		ID:           "user-1",
		Email:        "ada@example.com",
		PasswordHash: hashPassword(t, "secret-password"),
		Active:       false,
	})
	svc := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "secret-password"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
}

func TestResolveIdentityReadsStoredRole(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(models.User{
		ID:       "user-1",
		Email:    "ada@example.com",
		FullName: "Ada",
		Role:     models.RoleAdmin,
		Active:   true,
	})
	svc := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	identity, err := svc.ResolveIdentity(context.Background(), &models.JWTClaims{UserID: "user-1", Email: "stale@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, identity.Role)
	assert.Equal(t, "ada@example.com", identity.Email)
}

func TestResolveIdentityDefaultsToStudent(t *testing.T) {
	svc := NewAuthService(newMockAuthRepo(), nil, zap.NewNop(), testAuthConfig())

	identity, err := svc.ResolveIdentity(context.Background(), &models.JWTClaims{UserID: "ghost", Email: "ghost@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, identity.Role)
	assert.Equal(t, "ghost", identity.UserID)
}

func TestRefreshRejectsRevokedToken(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(models.User{ID: "user-1", Email: "ada@example.com", Active: true})
	repo.tokens["stale"] = models.RefreshToken{
		ID:        "tok-1",
		UserID:    "user-1",
		Token:     "stale",
		ExpiresAt: time.Now().Add(time.Hour),
		Revoked:   true,
	}
	svc := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(models.User{
		ID:           "user-1",
		Email:        "ada@example.com",
		PasswordHash: hashPassword(t, "old-password"),
		Active:       true,
	})
	svc := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "old-password",
		NewPassword: "brand-new-password",
	})
	require.NoError(t, err)
	assert.Contains(t, repo.revoked, "user-1")

	err = bcrypt.CompareHashAndPassword([]byte(repo.users["user-1"].PasswordHash), []byte("brand-new-password"))
	assert.NoError(t, err)
}
