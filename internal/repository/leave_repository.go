package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hostel-out-api/internal/models"
)

const leaveSelect = `SELECT l.id, l.student_id, u.full_name AS student_name, l.from_date, l.to_date, l.reason, l.status,
l.approved_by_teacher, l.approved_by_warden, l.teacher_decided_at, l.warden_decided_at, l.applied_date, l.updated_at
FROM leave_requests l LEFT JOIN users u ON u.id = l.student_id`

// LeaveRepository persists leave requests.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs the repository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// Create inserts a new leave request.
func (r *LeaveRepository) Create(ctx context.Context, leave *models.LeaveRequest) error {
	if leave.ID == "" {
		leave.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if leave.AppliedDate.IsZero() {
		leave.AppliedDate = now
	}
	leave.UpdatedAt = now
	if leave.Status == "" {
		leave.Status = models.LeaveStatusApplied
	}

	const query = `INSERT INTO leave_requests (id, student_id, from_date, to_date, reason, status, applied_date, updated_at)
VALUES (:id, :student_id, :from_date, :to_date, :reason, :status, :applied_date, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, leave); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// FindByID returns a leave request by id.
func (r *LeaveRepository) FindByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	var leave models.LeaveRequest
	if err := r.db.GetContext(ctx, &leave, leaveSelect+` WHERE l.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find leave request: %w", err)
	}
	return &leave, nil
}

// List returns leave requests matching filter, newest first.
func (r *LeaveRepository) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error) {
	var conditions []string
	var args []interface{}

	if filter.StudentID != nil {
		args = append(args, *filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("l.student_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("l.status = $%d", len(args)))
	}
	if filter.AppliedFrom != nil {
		args = append(args, *filter.AppliedFrom)
		conditions = append(conditions, fmt.Sprintf("l.applied_date >= $%d", len(args)))
	}
	if filter.AppliedTo != nil {
		args = append(args, *filter.AppliedTo)
		conditions = append(conditions, fmt.Sprintf("l.applied_date < $%d", len(args)))
	}

	query := leaveSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY l.applied_date DESC, l.id DESC"

	leaves := make([]models.LeaveRequest, 0)
	if err := r.db.SelectContext(ctx, &leaves, query, args...); err != nil {
		return nil, fmt.Errorf("list leave requests: %w", err)
	}
	return leaves, nil
}

// ApplyDecision moves a request from d.From to d.To and records who decided.
// The update only matches while the row is still in d.From; sql.ErrNoRows
// signals that another decision won.
func (r *LeaveRepository) ApplyDecision(ctx context.Context, d models.LeaveDecision) error {
	var query string
	switch d.ByRole {
	case models.RoleTeacher:
		query = `UPDATE leave_requests SET status = $1, approved_by_teacher = $2, teacher_decided_at = $3, updated_at = $3 WHERE id = $4 AND status = $5`
	case models.RoleWarden:
		query = `UPDATE leave_requests SET status = $1, approved_by_warden = $2, warden_decided_at = $3, updated_at = $3 WHERE id = $4 AND status = $5`
	default:
		return fmt.Errorf("apply leave decision: role %q cannot decide", d.ByRole)
	}

	res, err := r.db.ExecContext(ctx, query, d.To, d.DecidedBy, d.DecidedAt, d.LeaveID, d.From)
	if err != nil {
		return fmt.Errorf("apply leave decision: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply leave decision rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
