package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/preicfes-api/internal/models"
	appErrors "github.com/noah-isme/preicfes-api/pkg/errors"
)

type mockAuthRepo struct {
	user             *models.User
	findErr          error
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.user == nil || m.user.Username != username {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.user.PasswordHash = passwordHash
	return nil
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newAuthFixture(t *testing.T, user *models.User) (*AuthService, *mockAuthRepo) {
	t.Helper()
	repo := &mockAuthRepo{user: user}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "preicfes-api"})
	return svc, repo
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	municipality := "mun-1"
	svc, repo := newAuthFixture(t, &models.User{
		ID: "u1", Username: "cartera", PasswordHash: hashed(t, "password123"), Active: true,
		Role: models.RoleCollections, MunicipalityID: &municipality,
	})

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "cartera", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, "mun-1", res.User.MunicipalityID)
	assert.True(t, repo.lastLoginUpdated)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleCollections, claims.Role)
	assert.Equal(t, "mun-1", claims.MunicipalityID)
}

func TestAuthServiceLoginRejectsBadCredentials(t *testing.T) {
	svc, repo := newAuthFixture(t, &models.User{ID: "u1", Username: "cartera", PasswordHash: hashed(t, "password123"), Active: true})

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "cartera", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "nobody", Password: "password123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.lastLoginUpdated)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	svc, _ := newAuthFixture(t, &models.User{ID: "u1", Username: "cartera", PasswordHash: hashed(t, "password123"), Active: false})

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "cartera", Password: "password123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceChangePassword(t *testing.T) {
	oldHash := hashed(t, "old-password")
	svc, repo := newAuthFixture(t, &models.User{ID: "u1", Username: "cartera", PasswordHash: oldHash, Active: true})

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "nope", NewPassword: "newpassword"})
	assertAppError(t, err, "FORBIDDEN")

	err = svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "old-password", NewPassword: "newpassword"})
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, repo.user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.user.PasswordHash), []byte("newpassword")))
}

func TestAuthServiceValidateTokenRejectsForeignIssuer(t *testing.T) {
	svc, _ := newAuthFixture(t, nil)
	other := NewAuthService(&mockAuthRepo{}, nil, nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "someone-else"})

	token, err := other.generateAccessToken(&models.User{ID: "u1", Role: models.RoleSuperuser}, time.Now())
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assertAppError(t, err, appErrors.ErrUnauthorized.Code)
}
