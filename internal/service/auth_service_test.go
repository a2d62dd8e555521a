package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusops/uniops-api/internal/models"
	"github.com/campusops/uniops-api/pkg/config"
	appErrors "github.com/campusops/uniops-api/pkg/errors"
)

type mockAuthUserRepo struct {
	users map[string]*models.User
}

func (m *mockAuthUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "uniops-test"}
}

func seedUser(t *testing.T, password string, active bool) *mockAuthUserRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	studentID := "stu-1"
	return &mockAuthUserRepo{users: map[string]*models.User{
		"usr-1": {
			ID:           "usr-1",
			Email:        "ana@example.edu",
			PasswordHash: string(hash),
			FullName:     "Ana Silva",
			Role:         models.RoleStudent,
			StudentID:    &studentID,
			Active:       active,
		},
	}}
}

func TestAuthServiceLoginIssuesValidToken(t *testing.T) {
	repo := seedUser(t, "s3cret!", true)
	svc := NewAuthService(repo, nil, zap.NewNop(), testJWTConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@example.edu", Password: "s3cret!"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "usr-1", resp.User.ID)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	require.NotNil(t, claims.StudentID)
	assert.Equal(t, "stu-1", *claims.StudentID)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := seedUser(t, "s3cret!", true)
	svc := NewAuthService(repo, nil, zap.NewNop(), testJWTConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@example.edu", Password: "nope"})
	require.Error(t, err)
	appErr := asAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	repo := seedUser(t, "s3cret!", true)
	svc := NewAuthService(repo, nil, zap.NewNop(), testJWTConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.edu", Password: "s3cret!"})
	require.Error(t, err)
	appErr := asAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := seedUser(t, "s3cret!", false)
	svc := NewAuthService(repo, nil, zap.NewNop(), testJWTConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@example.edu", Password: "s3cret!"})
	require.Error(t, err)
	appErr := asAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceValidateTokenRejectsTampering(t *testing.T) {
	repo := seedUser(t, "s3cret!", true)
	svc := NewAuthService(repo, nil, zap.NewNop(), testJWTConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@example.edu", Password: "s3cret!"})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, zap.NewNop(), config.JWTConfig{Secret: "different", Expiration: time.Hour})
	_, err = other.ValidateToken(resp.AccessToken)
	require.Error(t, err)
}

func TestAuthServiceMe(t *testing.T) {
	repo := seedUser(t, "s3cret!", true)
	svc := NewAuthService(repo, nil, zap.NewNop(), testJWTConfig())

	info, err := svc.Me(context.Background(), "usr-1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.edu", info.Email)

	_, err = svc.Me(context.Background(), "usr-404")
	require.Error(t, err)
	appErr := asAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
