package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/hostel-out-api/internal/dto"
	"github.com/noah-isme/hostel-out-api/internal/models"
	"github.com/noah-isme/hostel-out-api/internal/repository"
	appErrors "github.com/noah-isme/hostel-out-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService handles account registration and profile lookups.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// RegisterStudent creates a student account. It is the only public sign-up.
func (s *UserService) RegisterStudent(ctx context.Context, req dto.RegisterStudentRequest, meta Actor) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid student registration payload")
	}
	user := &models.User{
		Email:              req.Email,
		FullName:           strings.TrimSpace(req.Name),
		Role:               models.RoleStudent,
		Phone:              req.Phone,
		Department:         optional(req.Department),
		RegistrationNumber: optional(req.RegistrationNumber),
		GuardianPhone:      optional(req.GuardianPhone),
		RoomNumber:         optional(req.RoomNumber),
	}
	return s.create(ctx, user, req.Password, "", meta)
}

// CreateTeacher provisions a teacher account on behalf of a warden.
func (s *UserService) CreateTeacher(ctx context.Context, req dto.CreateTeacherRequest, actor Actor) (*models.User, error) {
	if err := requireRole(actor, models.RoleWarden); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid teacher payload")
	}
	user := &models.User{
		Email:      req.Email,
		FullName:   strings.TrimSpace(req.Name),
		Role:       models.RoleTeacher,
		Phone:      req.Phone,
		Department: optional(req.Department),
	}
	return s.create(ctx, user, req.Password, actor.ID, actor)
}

// CreateWarden provisions another warden account.
func (s *UserService) CreateWarden(ctx context.Context, req dto.CreateWardenRequest, actor Actor) (*models.User, error) {
	if err := requireRole(actor, models.RoleWarden); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid warden payload")
	}
	user := &models.User{
		Email:    req.Email,
		FullName: strings.TrimSpace(req.Name),
		Role:     models.RoleWarden,
		Phone:    req.Phone,
	}
	return s.create(ctx, user, req.Password, actor.ID, actor)
}

// GetStudent returns a student profile. Students may only read themselves.
func (s *UserService) GetStudent(ctx context.Context, id string, actor Actor) (*models.User, error) {
	if err := requireSelfOrStaff(actor, id); err != nil {
		return nil, err
	}
	return s.getWithRole(ctx, id, models.RoleStudent, "student not found")
}

// GetTeacher returns a teacher profile.
func (s *UserService) GetTeacher(ctx context.Context, id string, actor Actor) (*models.User, error) {
	if actor.Role == models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot read staff profiles")
	}
	return s.getWithRole(ctx, id, models.RoleTeacher, "teacher not found")
}

// GetWarden returns a warden profile.
func (s *UserService) GetWarden(ctx context.Context, id string, actor Actor) (*models.User, error) {
	if actor.Role == models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot read staff profiles")
	}
	return s.getWithRole(ctx, id, models.RoleWarden, "warden not found")
}

func (s *UserService) getWithRole(ctx context.Context, id string, role models.UserRole, notFound string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, notFound)
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	if user.Role != role {
		return nil, appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return user, nil
}

func (s *UserService) create(ctx context.Context, user *models.User, password, actorID string, meta Actor) (*models.User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if _, err := s.repo.FindByEmail(ctx, user.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to check email uniqueness")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.PasswordHash = string(passwordHash)
	user.Active = true
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email or registration number already exists")
		}
		return nil, appErrors.Internal(err, "failed to create user")
	}

	if actorID == "" {
		actorID = user.ID
	}
	newPayload, _ := json.Marshal(map[string]interface{}{"id": user.ID, "email": user.Email, "role": user.Role})
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionUserCreate,
		Resource:   "users",
		ResourceID: &user.ID,
		NewValues:  newPayload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record user create audit log", zap.Error(err))
	}

	s.logger.Info("account created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
