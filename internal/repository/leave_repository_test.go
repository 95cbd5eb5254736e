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

var leaveRowColumns = []string{"id", "student_id", "student_name", "from_date", "to_date", "reason", "status", "approved_by_teacher", "approved_by_warden", "teacher_decided_at", "warden_decided_at", "applied_date", "updated_at"}

func TestLeaveRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	from := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leave_requests")).
		WithArgs(sqlmock.AnyArg(), "student-1", from, from.AddDate(0, 0, 2), "Family function", "Applied", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	leave := &models.LeaveRequest{StudentID: "student-1", FromDate: from, ToDate: from.AddDate(0, 0, 2), Reason: "Family function"}
	require.NoError(t, repo.Create(context.Background(), leave))
	assert.NotEmpty(t, leave.ID)
	assert.Equal(t, models.LeaveStatusApplied, leave.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryListByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(leaveRowColumns).
		AddRow("l2", "s1", "Asha", now, now, "trip", "Applied", nil, nil, nil, nil, now, now).
		AddRow("l1", "s2", "Ravi", now, now, "exam", "Applied", nil, nil, nil, nil, now.Add(-time.Hour), now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE l.status = $1 ORDER BY l.applied_date DESC, l.id DESC")).
		WithArgs("Applied").
		WillReturnRows(rows)

	status := models.LeaveStatusApplied
	leaves, err := repo.List(context.Background(), models.LeaveFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, leaves, 2)
	assert.Equal(t, "l2", leaves[0].ID)
	require.NotNil(t, leaves[0].StudentName)
	assert.Equal(t, "Asha", *leaves[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryListByStudentAndRange(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	student := "s1"
	mock.ExpectQuery(regexp.QuoteMeta("WHERE l.student_id = $1 AND l.applied_date >= $2 AND l.applied_date < $3")).
		WithArgs(student, from, to).
		WillReturnRows(sqlmock.NewRows(leaveRowColumns))

	leaves, err := repo.List(context.Background(), models.LeaveFilter{StudentID: &student, AppliedFrom: &from, AppliedTo: &to})
	require.NoError(t, err)
	assert.Empty(t, leaves)
	assert.NotNil(t, leaves)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryApplyDecision(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE leave_requests SET status = $1, approved_by_teacher = $2, teacher_decided_at = $3, updated_at = $3 WHERE id = $4 AND status = $5")).
		WithArgs("Approved by Teacher", "teacher-1", now, "leave-1", "Applied").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ApplyDecision(context.Background(), models.LeaveDecision{
		LeaveID:   "leave-1",
		From:      models.LeaveStatusApplied,
		To:        models.LeaveStatusApprovedByTeacher,
		DecidedBy: "teacher-1",
		DecidedAt: now,
		ByRole:    models.RoleTeacher,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryApplyDecisionLostRace(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("approved_by_warden = $2")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ApplyDecision(context.Background(), models.LeaveDecision{
		LeaveID: "leave-1",
		From:    models.LeaveStatusApprovedByTeacher,
		To:      models.LeaveStatusRejectedByWarden,
		ByRole:  models.RoleWarden,
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryApplyDecisionRejectsStudent(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	err := repo.ApplyDecision(context.Background(), models.LeaveDecision{ByRole: models.RoleStudent})
	assert.Error(t, err)
}
