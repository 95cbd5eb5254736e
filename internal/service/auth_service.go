package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/hostel-out-api/internal/models"
	appErrors "github.com/noah-isme/hostel-out-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuthConfig controls token lifetimes and signing.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
	Audience           []string
	// SingleSession revokes every earlier refresh token on login.
	SingleSession bool
}

// AuthService signs students, teachers and wardens in and out.
type AuthService struct {
	repo      authUserRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(repo authUserRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// issued is the token pair handed back by Login and RefreshToken.
type issued struct {
	access    string
	refresh   string
	expiresIn int64
	at        time.Time
}

// Login checks credentials against the role of the endpoint the caller used.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid login payload")
	}

	badCredentials := appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")

	user, err := s.repo.FindByEmail(ctx, req.Email)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, badCredentials
	case err != nil:
		return nil, appErrors.Internal(err, "failed to fetch user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, badCredentials
	}
	// A warden account cannot sign in through the student endpoint and so on.
	if req.Role != "" && user.Role != req.Role {
		s.logger.Info("login role mismatch",
			zap.String("user_id", user.ID),
			zap.String("account_role", string(user.Role)),
			zap.String("endpoint_role", string(req.Role)))
		return nil, badCredentials
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	if s.config.SingleSession {
		if err := s.repo.RevokeUserRefreshTokens(ctx, user.ID); err != nil {
			s.logger.Warn("failed to revoke previous refresh tokens", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	tokens, err := s.issue(ctx, user, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, tokens.at); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	s.audit(ctx, user.ID, models.AuditActionLogin, `{"status":"success","role":"`+string(user.Role)+`"}`, req.IP, req.UserAgent)

	return &models.LoginResponse{
		AccessToken:  tokens.access,
		RefreshToken: tokens.refresh,
		ExpiresIn:    tokens.expiresIn,
		IssuedAt:     tokens.at,
		User:         userInfo(user),
	}, nil
}

// RefreshToken rotates a refresh token. The presented token is revoked and a
// fresh pair is issued for its owner.
func (s *AuthService) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid refresh payload")
	}

	stored, err := s.findRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	if !stored.Usable(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or revoked")
	}

	user, err := s.repo.FindByID(ctx, stored.UserID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "associated user no longer exists")
	case err != nil:
		return nil, appErrors.Internal(err, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	if err := s.repo.RevokeRefreshToken(ctx, stored.ID, s.now()); err != nil {
		s.logger.Warn("failed to revoke used refresh token", zap.String("token_id", stored.ID), zap.Error(err))
	}

	tokens, err := s.issue(ctx, user, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, user.ID, models.AuditActionLogin, `{"refresh":"rotated"}`, req.IP, req.UserAgent)

	return &models.RefreshTokenResponse{
		AccessToken:  tokens.access,
		RefreshToken: tokens.refresh,
		ExpiresIn:    tokens.expiresIn,
		IssuedAt:     tokens.at,
	}, nil
}

// Logout revokes one refresh token belonging to userID.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, userID string, meta models.LoginRequest) error {
	stored, err := s.findRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	if stored.UserID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "token does not belong to user")
	}
	if err := s.repo.RevokeRefreshToken(ctx, stored.ID, s.now()); err != nil {
		return appErrors.Internal(err, "failed to revoke refresh token")
	}
	s.audit(ctx, userID, models.AuditActionLogout, `{"status":"logout"}`, meta.IP, meta.UserAgent)
	return nil
}

// ChangePassword replaces the password after checking the old one. Every
// outstanding refresh token of the user is revoked.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Invalid(err, "invalid change password payload")
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)) != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "old password does not match")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Internal(err, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hash), s.now()); err != nil {
		return appErrors.Internal(err, "failed to update password")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke refresh tokens after password change", zap.String("user_id", userID), zap.Error(err))
	}
	s.audit(ctx, userID, models.AuditActionPasswordChange, `{"status":"changed"}`, "", "")
	return nil
}

// ValidateToken verifies an access token and returns its claims. Tokens that
// carry a role outside student, teacher and warden are refused.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	if !token.Valid || !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Me returns the profile behind the current token.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := userInfo(user)
	return &info, nil
}

func (s *AuthService) loadUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	case err != nil:
		return nil, appErrors.Internal(err, "failed to load user")
	}
	return user, nil
}

func (s *AuthService) findRefreshToken(ctx context.Context, value string) (*models.RefreshToken, error) {
	stored, err := s.repo.FindRefreshToken(ctx, value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found")
	case err != nil:
		return nil, appErrors.Internal(err, "failed to load refresh token")
	}
	return stored, nil
}

// issue signs an access token and persists a new refresh token for user.
func (s *AuthService) issue(ctx context.Context, user *models.User, ip, userAgent string) (issued, error) {
	at := s.now()
	access, err := s.signAccessToken(user, at)
	if err != nil {
		return issued{}, appErrors.Internal(err, "failed to create access token")
	}
	value, err := randomToken()
	if err != nil {
		return issued{}, appErrors.Internal(err, "failed to create refresh token")
	}
	if err := s.repo.CreateRefreshToken(ctx, &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     value,
		ExpiresAt: at.Add(s.config.RefreshTokenExpiry),
		CreatedAt: at,
		IPAddress: ip,
		UserAgent: userAgent,
	}); err != nil {
		return issued{}, appErrors.Internal(err, "failed to persist refresh token")
	}
	return issued{
		access:    access,
		refresh:   value,
		expiresIn: int64(s.config.AccessTokenExpiry.Seconds()),
		at:        at,
	}, nil
}

func (s *AuthService) signAccessToken(user *models.User, at time.Time) (string, error) {
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Role:     user.Role,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			Audience:  s.config.Audience,
			IssuedAt:  jwt.NewNumericDate(at),
			NotBefore: jwt.NewNumericDate(at),
			ExpiresAt: jwt.NewNumericDate(at.Add(s.config.AccessTokenExpiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
}

// audit records an auth event. Failures are logged and never surface.
func (s *AuthService) audit(ctx context.Context, userID string, action, values, ip, userAgent string) {
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "auth",
		ResourceID: &userID,
		NewValues:  []byte(values),
		IPAddress:  ip,
		UserAgent:  userAgent,
	}); err != nil {
		s.logger.Warn("failed to record auth audit log", zap.String("action", action), zap.Error(err))
	}
}

func userInfo(u *models.User) models.UserInfo {
	return models.UserInfo{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role}
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
