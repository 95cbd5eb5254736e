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
	"github.com/noah-isme/hostel-out-api/pkg/cache"
	appErrors "github.com/noah-isme/hostel-out-api/pkg/errors"
)

type noticeRepository interface {
	Create(ctx context.Context, notice *models.Notice) error
	List(ctx context.Context) ([]models.Notice, error)
	Delete(ctx context.Context, id string) error
}

// NoticeService manages the warden's notice board.
type NoticeService struct {
	repo      noticeRepository
	audit     auditRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNoticeService constructs a NoticeService.
func NewNoticeService(repo noticeRepository, audit auditRepository, cacheSvc *CacheService, validate *validator.Validate, logger *zap.Logger) *NoticeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &NoticeService{repo: repo, audit: audit, cache: cacheSvc, validator: validate, logger: logger}
}

// List returns notices newest first. Teachers do not see the board.
func (s *NoticeService) List(ctx context.Context, actor Actor) ([]models.Notice, bool, error) {
	if err := requireRole(actor, models.RoleStudent, models.RoleWarden); err != nil {
		return nil, false, err
	}
	return cachedLoad(ctx, s.cache, cache.Key("notices"), func(ctx context.Context) ([]models.Notice, error) {
		notices, err := s.repo.List(ctx)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to list notices")
		}
		return notices, nil
	})
}

// Publish adds a notice. wardenID comes from the route and must be the caller.
func (s *NoticeService) Publish(ctx context.Context, wardenID string, req dto.PublishNoticeRequest, actor Actor) (*models.Notice, error) {
	if err := requireRole(actor, models.RoleWarden); err != nil {
		return nil, err
	}
	if err := requireSelf(actor, wardenID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid notice payload")
	}
	notice := &models.Notice{
		Title:     strings.TrimSpace(req.Title),
		Body:      strings.TrimSpace(req.Body),
		CreatedBy: actor.ID,
		CreatedAt: time.Now().UTC(),
	}
	if notice.Title == "" || notice.Body == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title and body are required")
	}
	if err := s.repo.Create(ctx, notice); err != nil {
		return nil, appErrors.Internal(err, "failed to publish notice")
	}
	s.invalidate(ctx)
	s.recordAudit(ctx, actor, models.AuditActionNoticePublish, notice.ID)
	return notice, nil
}

// Delete removes a notice.
func (s *NoticeService) Delete(ctx context.Context, id string, actor Actor) error {
	if err := requireRole(actor, models.RoleWarden); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return appErrors.Internal(err, "failed to delete notice")
	}
	s.invalidate(ctx)
	s.recordAudit(ctx, actor, models.AuditActionNoticeDelete, id)
	return nil
}

func (s *NoticeService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, cache.Key("notices")); err != nil {
		s.logger.Warn("failed to invalidate notice cache", zap.Error(err))
	}
}

func (s *NoticeService) recordAudit(ctx context.Context, actor Actor, action, noticeID string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     action,
		Resource:   "notices",
		ResourceID: &noticeID,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record notice audit log", zap.Error(err))
	}
}
