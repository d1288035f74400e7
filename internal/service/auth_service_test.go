package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/skooldesk/skooldesk-api/internal/models"
	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
)

type fakeUserRepo struct {
	user      *models.User
	err       error
	createErr error
	tokens    map[string]*models.RefreshToken
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func (f *fakeUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.tokens == nil {
		f.tokens = make(map[string]*models.RefreshToken)
	}
	f.tokens[token.Token] = token
	return nil
}

func (f *fakeUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := f.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *rt
	return &copied, nil
}

func (f *fakeUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, rt := range f.tokens {
		if rt.ID == id {
			rt.Revoked = true
			rt.RevokedAt = &revokedAt
		}
	}
	return nil
}

func testUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	profileID := "tch-1"
	return &models.User{
		ID:           "user-1",
		Username:     "msmith",
		PasswordHash: string(hash),
		Role:         models.RoleTeacher,
		ProfileID:    &profileID,
		Active:       true,
	}
}

func TestAuthLoginAndValidateRoundTrip(t *testing.T) {
	repo := &fakeUserRepo{user: testUser(t, "secret")}
	svc := NewAuthService(repo, nil, nil, AuthConfig{Secret: "test-secret", Expiration: time.Hour})

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "msmith", Password: "secret"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, models.RoleTeacher, resp.Role)
	require.Equal(t, "tch-1", resp.ProfileID)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)

	actor := claims.Actor()
	require.Equal(t, models.RoleTeacher, actor.Role)
	require.Equal(t, "tch-1", actor.ProfileID)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	repo := &fakeUserRepo{user: testUser(t, "secret")}
	svc := NewAuthService(repo, nil, nil, AuthConfig{Secret: "test-secret"})

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "msmith", Password: "wrong"})
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, typed.Code)
}

func TestAuthLoginUnknownUser(t *testing.T) {
	repo := &fakeUserRepo{err: sql.ErrNoRows}
	svc := NewAuthService(repo, nil, nil, AuthConfig{Secret: "test-secret"})

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ghost", Password: "secret"})
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, typed.Code)
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	user := testUser(t, "secret")
	user.Active = false
	svc := NewAuthService(&fakeUserRepo{user: user}, nil, nil, AuthConfig{Secret: "test-secret"})

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "msmith", Password: "secret"})
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrUnauthorized.Code, typed.Code)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	repo := &fakeUserRepo{user: testUser(t, "secret")}
	svc := NewAuthService(repo, nil, nil, AuthConfig{Secret: "test-secret"})

	login, err := svc.Login(context.Background(), models.LoginRequest{Username: "msmith", Password: "secret"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The used token is revoked; replaying it must fail.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrUnauthorized.Code, typed.Code)

	// The rotated token still works.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: refreshed.RefreshToken})
	require.NoError(t, err)
}

func TestAuthRefreshUnknownToken(t *testing.T) {
	repo := &fakeUserRepo{user: testUser(t, "secret")}
	svc := NewAuthService(repo, nil, nil, AuthConfig{Secret: "test-secret"})

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "unknown"})
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrUnauthorized.Code, typed.Code)
}

func TestAuthRefreshExpiredToken(t *testing.T) {
	repo := &fakeUserRepo{
		user: testUser(t, "secret"),
		tokens: map[string]*models.RefreshToken{
			"stale": {ID: "rt-1", UserID: "user-1", Token: "stale", ExpiresAt: time.Now().UTC().Add(-time.Hour)},
		},
	}
	svc := NewAuthService(repo, nil, nil, AuthConfig{Secret: "test-secret"})

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrUnauthorized.Code, typed.Code)
}

func TestAuthRefreshInactiveAccount(t *testing.T) {
	user := testUser(t, "secret")
	repo := &fakeUserRepo{
		user: user,
		tokens: map[string]*models.RefreshToken{
			"live": {ID: "rt-1", UserID: user.ID, Token: "live", ExpiresAt: time.Now().UTC().Add(time.Hour)},
		},
	}
	svc := NewAuthService(repo, nil, nil, AuthConfig{Secret: "test-secret"})
	user.Active = false

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "live"})
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrUnauthorized.Code, typed.Code)
}

func TestAuthRefreshReplacementFailureIsPartialMutation(t *testing.T) {
	user := testUser(t, "secret")
	repo := &fakeUserRepo{
		user: user,
		tokens: map[string]*models.RefreshToken{
			"live": {ID: "rt-1", UserID: user.ID, Token: "live", ExpiresAt: time.Now().UTC().Add(time.Hour)},
		},
	}
	svc := NewAuthService(repo, nil, nil, AuthConfig{Secret: "test-secret", Expiration: time.Hour})
	repo.createErr = errors.New("insert failed")

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "live"})
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrPartialMutation.Code, typed.Code)

	// The presented token was revoked before issuance failed, so the
	// session cannot be exchanged again.
	require.True(t, repo.tokens["live"].Revoked)
}

func TestAuthValidateRejectsForeignSignature(t *testing.T) {
	repo := &fakeUserRepo{user: testUser(t, "secret")}
	issuer := NewAuthService(repo, nil, nil, AuthConfig{Secret: "issuer-secret"})
	verifier := NewAuthService(repo, nil, nil, AuthConfig{Secret: "other-secret"})

	resp, err := issuer.Login(context.Background(), models.LoginRequest{Username: "msmith", Password: "secret"})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(resp.AccessToken)
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrUnauthorized.Code, typed.Code)
}
