package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-out-api/internal/dto"
	"github.com/noah-isme/hostel-out-api/internal/models"
	appErrors "github.com/noah-isme/hostel-out-api/pkg/errors"
)

type complaintRepository interface {
	Create(ctx context.Context, complaint *models.Complaint) error
	FindByID(ctx context.Context, id string) (*models.Complaint, error)
	List(ctx context.Context, studentID *string) ([]models.Complaint, error)
	UpdateStatus(ctx context.Context, id, status string, updatedAt time.Time) error
}

// ComplaintService lets students raise complaints and wardens track them.
type ComplaintService struct {
	repo      complaintRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewComplaintService constructs a ComplaintService.
func NewComplaintService(repo complaintRepository, validate *validator.Validate, logger *zap.Logger) *ComplaintService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ComplaintService{repo: repo, validator: validate, logger: logger}
}

// Create files a complaint for the calling student with status Pending.
func (s *ComplaintService) Create(ctx context.Context, req dto.CreateComplaintRequest, actor Actor) (*models.Complaint, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid complaint payload")
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message is required")
	}

	complaint := &models.Complaint{
		StudentID: actor.ID,
		Message:   message,
		Status:    models.ComplaintStatusPending,
	}
	if err := s.repo.Create(ctx, complaint); err != nil {
		return nil, appErrors.Internal(err, "failed to create complaint")
	}
	return complaint, nil
}

// List returns a student's own complaints or, for wardens, every complaint.
func (s *ComplaintService) List(ctx context.Context, actor Actor) ([]models.Complaint, error) {
	var filter *string
	switch actor.Role {
	case models.RoleStudent:
		id := actor.ID
		filter = &id
	case models.RoleWarden:
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "complaints are visible to students and wardens only")
	}

	complaints, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list complaints")
	}
	return complaints, nil
}

// UpdateStatus sets the free-text status of a complaint.
func (s *ComplaintService) UpdateStatus(ctx context.Context, id string, req dto.UpdateComplaintStatusRequest, actor Actor) (*models.Complaint, error) {
	if err := requireRole(actor, models.RoleWarden); err != nil {
		return nil, err
	}
	req.Status = strings.TrimSpace(req.Status)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid complaint status")
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, req.Status, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Internal(err, "failed to update complaint")
	}

	complaint, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Internal(err, "failed to load complaint")
	}
	s.logger.Info("complaint status updated", zap.String("complaint_id", id), zap.String("status", req.Status), zap.String("by", actor.ID))
	return complaint, nil
}
