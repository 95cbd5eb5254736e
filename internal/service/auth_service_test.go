package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/hostel-out-api/internal/models"
	appErrors "github.com/noah-isme/hostel-out-api/pkg/errors"
)

// accountsFake keeps users and refresh tokens in memory.
type accountsFake struct {
	users         map[string]*models.User
	tokens        map[string]*models.RefreshToken
	audits        []*models.AuditLog
	lastLogin     map[string]time.Time
	revokedAllFor []string
}

func newAccountsFake(users ...*models.User) *accountsFake {
	f := &accountsFake{
		users:     map[string]*models.User{},
		tokens:    map[string]*models.RefreshToken{},
		lastLogin: map[string]time.Time{},
	}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *accountsFake) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *accountsFake) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *accountsFake) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	f.lastLogin[id] = ts
	return nil
}

func (f *accountsFake) UpdatePassword(_ context.Context, id, hash string, _ time.Time) error {
	f.users[id].PasswordHash = hash
	return nil
}

func (f *accountsFake) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	f.revokedAllFor = append(f.revokedAllFor, userID)
	for _, t := range f.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (f *accountsFake) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	f.tokens[token.Token] = token
	return nil
}

func (f *accountsFake) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := f.tokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (f *accountsFake) RevokeRefreshToken(_ context.Context, id string, at time.Time) error {
	for _, t := range f.tokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &at
		}
	}
	return nil
}

func (f *accountsFake) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	f.audits = append(f.audits, log)
	return nil
}

var testAuthConfig = AuthConfig{
	AccessTokenSecret:  "secret",
	AccessTokenExpiry:  time.Hour,
	RefreshTokenExpiry: 24 * time.Hour,
	Issuer:             "hostel-out",
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthServiceLogin(t *testing.T) {
	warden := &models.User{ID: "w1", Email: "warden@hostel.test", FullName: "Meera", Role: models.RoleWarden, Active: true}
	inactive := &models.User{ID: "s9", Email: "gone@hostel.test", Role: models.RoleStudent, Active: false}

	cases := []struct {
		name     string
		email    string
		password string
		role     models.UserRole
		wantErr  *appErrors.Error
	}{
		{name: "matching endpoint", email: warden.Email, password: "pw", role: models.RoleWarden},
		{name: "wrong endpoint", email: warden.Email, password: "pw", role: models.RoleStudent, wantErr: appErrors.ErrInvalidCredentials},
		{name: "wrong password", email: warden.Email, password: "nope", role: models.RoleWarden, wantErr: appErrors.ErrInvalidCredentials},
		{name: "unknown email", email: "who@hostel.test", password: "pw", role: models.RoleWarden, wantErr: appErrors.ErrInvalidCredentials},
		{name: "inactive account", email: inactive.Email, password: "pw", role: models.RoleStudent, wantErr: appErrors.ErrInactiveAccount},
		{name: "bad payload", email: "not-an-email", password: "pw", role: models.RoleWarden, wantErr: appErrors.ErrValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, in := *warden, *inactive
			w.PasswordHash = hashed(t, "pw")
			in.PasswordHash = hashed(t, "pw")
			repo := newAccountsFake(&w, &in)
			svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig)

			res, err := svc.Login(context.Background(), models.LoginRequest{Email: tc.email, Password: tc.password, Role: tc.role})
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
				assert.Empty(t, repo.tokens)
				assert.Empty(t, repo.lastLogin)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.RoleWarden, res.User.Role)
			assert.Equal(t, "Meera", res.User.FullName)
			assert.Equal(t, int64(3600), res.ExpiresIn)
			assert.Contains(t, repo.tokens, res.RefreshToken)
			assert.Contains(t, repo.lastLogin, "w1")
			require.Len(t, repo.audits, 1)
			assert.Equal(t, models.AuditActionLogin, repo.audits[0].Action)
			assert.JSONEq(t, `{"status":"success","role":"WARDEN"}`, string(repo.audits[0].NewValues))
		})
	}
}

func TestAuthServiceSingleSessionRevokesEarlierTokens(t *testing.T) {
	repo := newAccountsFake(&models.User{ID: "t1", Email: "t@hostel.test", PasswordHash: hashed(t, "pw"), Role: models.RoleTeacher, Active: true})
	cfg := testAuthConfig
	cfg.SingleSession = true
	svc := NewAuthService(repo, nil, nil, cfg)

	first, err := svc.Login(context.Background(), models.LoginRequest{Email: "t@hostel.test", Password: "pw", Role: models.RoleTeacher})
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "t@hostel.test", Password: "pw", Role: models.RoleTeacher})
	require.NoError(t, err)

	assert.True(t, repo.tokens[first.RefreshToken].Revoked)
	assert.Equal(t, []string{"t1", "t1"}, repo.revokedAllFor)
}

func TestAuthServiceRefreshTokenRotates(t *testing.T) {
	repo := newAccountsFake(&models.User{ID: "w1", Email: "w@hostel.test", Role: models.RoleWarden, Active: true})
	repo.tokens["old"] = &models.RefreshToken{ID: "rt1", UserID: "w1", Token: "old", ExpiresAt: time.Now().Add(time.Hour)}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old"})
	require.NoError(t, err)
	assert.NotEqual(t, "old", res.RefreshToken)
	assert.True(t, repo.tokens["old"].Revoked)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old"})
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceRefreshTokenRejects(t *testing.T) {
	repo := newAccountsFake(&models.User{ID: "s1", Role: models.RoleStudent, Active: true})
	repo.tokens["expired"] = &models.RefreshToken{ID: "rt1", UserID: "s1", Token: "expired", ExpiresAt: time.Now().Add(-time.Minute)}
	repo.tokens["orphan"] = &models.RefreshToken{ID: "rt2", UserID: "ghost", Token: "orphan", ExpiresAt: time.Now().Add(time.Hour)}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig)

	for _, token := range []string{"expired", "orphan", "unknown"} {
		_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: token})
		assert.True(t, errors.Is(err, appErrors.ErrUnauthorized), token)
	}
}

func TestAuthServiceLogout(t *testing.T) {
	repo := newAccountsFake(&models.User{ID: "s1", Role: models.RoleStudent, Active: true})
	repo.tokens["r"] = &models.RefreshToken{ID: "rt1", UserID: "s1", Token: "r", ExpiresAt: time.Now().Add(time.Hour)}
	svc := NewAuthService(repo, nil, nil, testAuthConfig)

	err := svc.Logout(context.Background(), "r", "s2", models.LoginRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.False(t, repo.tokens["r"].Revoked)

	require.NoError(t, svc.Logout(context.Background(), "r", "s1", models.LoginRequest{IP: "10.0.0.4"}))
	assert.True(t, repo.tokens["r"].Revoked)
	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionLogout, repo.audits[0].Action)
	assert.Equal(t, "10.0.0.4", repo.audits[0].IPAddress)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := newAccountsFake(&models.User{ID: "s1", PasswordHash: hashed(t, "old-password"), Role: models.RoleStudent, Active: true})
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig)

	err := svc.ChangePassword(context.Background(), "s1", models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "new-password"})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	require.NoError(t, svc.ChangePassword(context.Background(), "s1", models.ChangePasswordRequest{OldPassword: "old-password", NewPassword: "new-password"}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users["s1"].PasswordHash), []byte("new-password")))
	assert.Equal(t, []string{"s1"}, repo.revokedAllFor)
}

func TestAuthServiceMe(t *testing.T) {
	repo := newAccountsFake(&models.User{ID: "s1", Email: "s@hostel.test", FullName: "Asha", Role: models.RoleStudent})
	svc := NewAuthService(repo, nil, nil, AuthConfig{})

	info, err := svc.Me(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, info.Role)
	assert.Equal(t, "Asha", info.FullName)

	_, err = svc.Me(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService(newAccountsFake(), nil, nil, testAuthConfig)
	now := time.Now().UTC()

	token, err := svc.signAccessToken(&models.User{ID: "t1", Email: "t@hostel.test", Role: models.RoleTeacher}, now)
	require.NoError(t, err)
	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "t1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, "hostel-out", claims.Issuer)

	_, err = svc.ValidateToken(token + "x")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	roleless, err := svc.signAccessToken(&models.User{ID: "x1"}, now)
	require.NoError(t, err)
	_, err = svc.ValidateToken(roleless)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	expired, err := svc.signAccessToken(&models.User{ID: "t1", Role: models.RoleTeacher}, now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	other := jwt.NewWithClaims(jwt.SigningMethodHS512, &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher})
	signed, err := other.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
