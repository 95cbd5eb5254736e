package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-out-api/internal/models"
)

func TestNoticeRepositoryCreateAndList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNoticeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notices")).
		WithArgs(sqlmock.AnyArg(), "Water cut", "No water 10-12", "w1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	notice := &models.Notice{Title: "Water cut", Body: "No water 10-12", CreatedBy: "w1"}
	require.NoError(t, repo.Create(context.Background(), notice))
	assert.NotEmpty(t, notice.ID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, body, created_by, created_at FROM notices ORDER BY created_at DESC, id DESC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "body", "created_by", "created_at"}).
			AddRow(notice.ID, notice.Title, notice.Body, "w1", time.Now()))
	notices, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, notices, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoticeRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNoticeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notices WHERE id = $1")).WithArgs("n1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notices WHERE id = $1")).WithArgs("n1").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "n1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "n1"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
