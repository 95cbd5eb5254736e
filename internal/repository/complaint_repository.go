package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hostel-out-api/internal/models"
)

const complaintSelect = `SELECT c.id, c.student_id, u.full_name AS student_name, c.message, c.status, c.created_at, c.updated_at
FROM complaints c LEFT JOIN users u ON u.id = c.student_id`

// ComplaintRepository persists student complaints.
type ComplaintRepository struct {
	db *sqlx.DB
}

// NewComplaintRepository constructs the repository.
func NewComplaintRepository(db *sqlx.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

// Create inserts a complaint.
func (r *ComplaintRepository) Create(ctx context.Context, complaint *models.Complaint) error {
	if complaint.ID == "" {
		complaint.ID = uuid.NewString()
	}
	if complaint.Status == "" {
		complaint.Status = models.ComplaintStatusPending
	}
	now := time.Now().UTC()
	if complaint.CreatedAt.IsZero() {
		complaint.CreatedAt = now
	}
	complaint.UpdatedAt = now

	const query = `INSERT INTO complaints (id, student_id, message, status, created_at, updated_at)
VALUES (:id, :student_id, :message, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, complaint); err != nil {
		return fmt.Errorf("create complaint: %w", err)
	}
	return nil
}

// FindByID returns a complaint by id.
func (r *ComplaintRepository) FindByID(ctx context.Context, id string) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := r.db.GetContext(ctx, &complaint, complaintSelect+` WHERE c.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find complaint: %w", err)
	}
	return &complaint, nil
}

// List returns complaints newest first, limited to one student when studentID is set.
func (r *ComplaintRepository) List(ctx context.Context, studentID *string) ([]models.Complaint, error) {
	query := complaintSelect
	var args []interface{}
	if studentID != nil {
		query += ` WHERE c.student_id = $1`
		args = append(args, *studentID)
	}
	query += ` ORDER BY c.created_at DESC, c.id DESC`

	complaints := make([]models.Complaint, 0)
	if err := r.db.SelectContext(ctx, &complaints, query, args...); err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	return complaints, nil
}

// UpdateStatus sets the free-text status. A missing row yields sql.ErrNoRows.
func (r *ComplaintRepository) UpdateStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	const query = `UPDATE complaints SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, updatedAt)
	if err != nil {
		return fmt.Errorf("update complaint status: %w", err)
	}
	return requireAffected(res, "update complaint status")
}

func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
