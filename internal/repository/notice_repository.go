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

// NoticeRepository persists warden notices.
type NoticeRepository struct {
	db *sqlx.DB
}

// NewNoticeRepository constructs the repository.
func NewNoticeRepository(db *sqlx.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

// Create inserts a notice.
func (r *NoticeRepository) Create(ctx context.Context, notice *models.Notice) error {
	if notice.ID == "" {
		notice.ID = uuid.NewString()
	}
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notices (id, title, body, created_by, created_at) VALUES (:id, :title, :body, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notice); err != nil {
		return fmt.Errorf("create notice: %w", err)
	}
	return nil
}

// FindByID returns a notice by id.
func (r *NoticeRepository) FindByID(ctx context.Context, id string) (*models.Notice, error) {
	const query = `SELECT id, title, body, created_by, created_at FROM notices WHERE id = $1`
	var notice models.Notice
	if err := r.db.GetContext(ctx, &notice, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find notice: %w", err)
	}
	return &notice, nil
}

// List returns all notices, newest first.
func (r *NoticeRepository) List(ctx context.Context) ([]models.Notice, error) {
	const query = `SELECT id, title, body, created_by, created_at FROM notices ORDER BY created_at DESC, id DESC`
	notices := make([]models.Notice, 0)
	if err := r.db.SelectContext(ctx, &notices, query); err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	return notices, nil
}

// Delete removes a notice. A missing row yields sql.ErrNoRows.
func (r *NoticeRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notice: %w", err)
	}
	return requireAffected(res, "delete notice")
}
