package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-out-api/internal/dto"
	"github.com/noah-isme/hostel-out-api/internal/models"
	"github.com/noah-isme/hostel-out-api/internal/workflow"
	"github.com/noah-isme/hostel-out-api/pkg/cache"
	appErrors "github.com/noah-isme/hostel-out-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type leaveRepository interface {
	Create(ctx context.Context, leave *models.LeaveRequest) error
	FindByID(ctx context.Context, id string) (*models.LeaveRequest, error)
	List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error)
	ApplyDecision(ctx context.Context, d models.LeaveDecision) error
}

type auditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// LeaveService runs the leave application and approval workflow.
type LeaveService struct {
	repo      leaveRepository
	audit     auditRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewLeaveService constructs a LeaveService. cache and metrics may be nil.
func NewLeaveService(repo leaveRepository, audit auditRepository, cacheSvc *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *LeaveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LeaveService{
		repo:      repo,
		audit:     audit,
		cache:     cacheSvc,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Apply records a new leave request for the calling student.
func (s *LeaveService) Apply(ctx context.Context, req dto.ApplyLeaveRequest, actor Actor) (*models.LeaveRequest, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid leave payload")
	}
	from, err := time.Parse(dateLayout, req.FromDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fromDate must be YYYY-MM-DD")
	}
	to, err := time.Parse(dateLayout, req.ToDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "toDate must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "toDate must not be before fromDate")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reason is required")
	}

	now := s.now()
	leave := &models.LeaveRequest{
		StudentID:   actor.ID,
		FromDate:    from,
		ToDate:      to,
		Reason:      reason,
		Status:      models.LeaveStatusApplied,
		AppliedDate: now,
		UpdatedAt:   now,
	}
	start := time.Now()
	err = s.repo.Create(ctx, leave)
	s.metrics.ObserveDBQuery("leave_create", time.Since(start))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create leave request")
	}

	s.metrics.RecordLeaveApplied()
	s.invalidate(ctx)
	s.recordAudit(ctx, actor, models.AuditActionLeaveApply, leave.ID, nil, map[string]interface{}{"status": leave.Status})
	return leave, nil
}

// Inbox returns the role-scoped leave list: a student's own requests, the
// Applied queue for teachers and the Approved by Teacher queue for wardens.
func (s *LeaveService) Inbox(ctx context.Context, actor Actor) ([]models.LeaveRequest, bool, error) {
	var (
		filter models.LeaveFilter
		key    string
	)
	switch actor.Role {
	case models.RoleStudent:
		id := actor.ID
		filter.StudentID = &id
		key = cache.Key("leaves", "student", actor.ID)
	case models.RoleTeacher, models.RoleWarden:
		status, _ := workflow.ActionableStatus(actor.Role)
		filter.Status = &status
		key = cache.Key("leaves", "inbox", string(actor.Role))
	default:
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "role not permitted for this operation")
	}

	leaves, hit, err := cachedLoad(ctx, s.cache, key, func(ctx context.Context) ([]models.LeaveRequest, error) {
		return s.list(ctx, "leave_inbox", filter)
	})
	if err != nil {
		return nil, false, err
	}
	return leaves, hit, nil
}

// ListByStudent returns every request of a student.
func (s *LeaveService) ListByStudent(ctx context.Context, studentID string, actor Actor) ([]models.LeaveRequest, error) {
	if err := requireSelfOrStaff(actor, studentID); err != nil {
		return nil, err
	}
	return s.list(ctx, "leave_by_student", models.LeaveFilter{StudentID: &studentID})
}

// Get returns a single request. Students may only read their own.
func (s *LeaveService) Get(ctx context.Context, id string, actor Actor) (*models.LeaveRequest, error) {
	leave, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireSelfOrStaff(actor, leave.StudentID); err != nil {
		return nil, err
	}
	return leave, nil
}

// Decide applies an approve or reject decision. role is the stage named by the
// route and deciderID the path identifier, which must be the caller.
func (s *LeaveService) Decide(ctx context.Context, id string, role models.UserRole, deciderID string, approve bool, actor Actor) (*models.LeaveRequest, error) {
	if err := requireRole(actor, role); err != nil {
		return nil, err
	}
	if err := requireSelf(actor, deciderID); err != nil {
		return nil, err
	}

	leave, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	to, err := workflow.Next(actor.Role, leave.Status, approve)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidTransition.Code, appErrors.ErrInvalidTransition.Status,
			"leave request in status "+string(leave.Status)+" cannot be decided by "+strings.ToLower(string(actor.Role)))
	}

	decision := models.LeaveDecision{
		LeaveID:   leave.ID,
		From:      leave.Status,
		To:        to,
		DecidedBy: actor.ID,
		DecidedAt: s.now(),
		ByRole:    actor.Role,
	}
	start := time.Now()
	err = s.repo.ApplyDecision(ctx, decision)
	s.metrics.ObserveDBQuery("leave_decide", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "leave request was decided concurrently")
		}
		return nil, appErrors.Internal(err, "failed to record leave decision")
	}

	leave.Status = to
	leave.UpdatedAt = decision.DecidedAt
	decidedAt := decision.DecidedAt
	switch actor.Role {
	case models.RoleTeacher:
		leave.ApprovedByTeacher = &decision.DecidedBy
		leave.TeacherDecidedAt = &decidedAt
	case models.RoleWarden:
		leave.ApprovedByWarden = &decision.DecidedBy
		leave.WardenDecidedAt = &decidedAt
	}

	s.metrics.RecordLeaveDecision(actor.Role, to)
	s.invalidate(ctx)
	s.recordAudit(ctx, actor, models.AuditActionLeaveDecide, leave.ID,
		map[string]interface{}{"status": decision.From},
		map[string]interface{}{"status": decision.To, workflow.Decider(actor.Role): actor.ID})
	s.logger.Info("leave decided",
		zap.String("leave_id", leave.ID),
		zap.String("from", string(decision.From)),
		zap.String("to", string(decision.To)),
		zap.String("by", actor.ID))
	return leave, nil
}

func (s *LeaveService) find(ctx context.Context, id string) (*models.LeaveRequest, error) {
	start := time.Now()
	leave, err := s.repo.FindByID(ctx, id)
	s.metrics.ObserveDBQuery("leave_get", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Internal(err, "failed to load leave request")
	}
	return leave, nil
}

func (s *LeaveService) list(ctx context.Context, label string, filter models.LeaveFilter) ([]models.LeaveRequest, error) {
	start := time.Now()
	leaves, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery(label, time.Since(start))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list leave requests")
	}
	return leaves, nil
}

func (s *LeaveService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, cache.Pattern("leaves")); err != nil {
		s.logger.Warn("failed to invalidate leave cache", zap.Error(err))
	}
}

func (s *LeaveService) recordAudit(ctx context.Context, actor Actor, action, resourceID string, oldValues, newValues map[string]interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &actor.ID,
		Action:     action,
		Resource:   "leave_requests",
		ResourceID: &resourceID,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}
	if oldValues != nil {
		entry.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		entry.NewValues, _ = json.Marshal(newValues)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record leave audit log", zap.String("action", action), zap.Error(err))
	}
}
