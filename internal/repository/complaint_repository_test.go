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

var complaintRowColumns = []string{"id", "student_id", "student_name", "message", "status", "created_at", "updated_at"}

func TestComplaintRepositoryCreateDefaultsPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO complaints")).
		WithArgs(sqlmock.AnyArg(), "s1", "Fan broken", "Pending", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	complaint := &models.Complaint{StudentID: "s1", Message: "Fan broken"}
	require.NoError(t, repo.Create(context.Background(), complaint))
	assert.Equal(t, models.ComplaintStatusPending, complaint.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintRepositoryListScopes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.student_id = $1 ORDER BY c.created_at DESC")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(complaintRowColumns).AddRow("c1", "s1", "Asha", "Fan broken", "Pending", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM complaints c LEFT JOIN users u ON u.id = c.student_id ORDER BY c.created_at DESC")).
		WillReturnRows(sqlmock.NewRows(complaintRowColumns))

	student := "s1"
	own, err := repo.List(context.Background(), &student)
	require.NoError(t, err)
	assert.Len(t, own, 1)

	all, err := repo.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintRepositoryUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE complaints SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("missing", "Resolved", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", "Resolved", time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
