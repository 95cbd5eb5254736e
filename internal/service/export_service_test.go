package service

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-out-api/internal/models"
	"github.com/noah-isme/hostel-out-api/pkg/storage"
)

type registerSourceStub struct {
	leaves []models.LeaveRequest
	last   models.LeaveFilter
}

func (r *registerSourceStub) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error) {
	r.last = filter
	return r.leaves, nil
}

type userLookupStub map[string]*models.User

func (u userLookupStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func strPtr(s string) *string { return &s }

func registerFixture() *registerSourceStub {
	from := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	return &registerSourceStub{leaves: []models.LeaveRequest{
		{
			ID: "l1", StudentID: "s1", StudentName: strPtr("Asha Rao"),
			FromDate: from, ToDate: from.AddDate(0, 0, 2), Reason: "Family function",
			Status: models.LeaveStatusApprovedByWarden, ApprovedByTeacher: strPtr("t1"), ApprovedByWarden: strPtr("w1"),
			AppliedDate: from.AddDate(0, 0, -3),
		},
		{
			ID: "l2", StudentID: "s2", FromDate: from, ToDate: from, Reason: "Medical",
			Status: models.LeaveStatusApplied, AppliedDate: from.AddDate(0, 0, -1),
		},
	}}
}

func newExportServiceForTest(t *testing.T, source *registerSourceStub) (*ExportService, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	users := userLookupStub{"t1": {ID: "t1", FullName: "Ravi Kumar"}}
	svc := NewExportService(source, users, store, signer, ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}, zap.NewNop())
	return svc, dir
}

func TestExportServiceGenerateCSV(t *testing.T) {
	source := registerFixture()
	svc, dir := newExportServiceForTest(t, source)
	status := models.LeaveStatusApprovedByWarden
	job := &models.ReportJob{
		ID:     "job-1",
		Type:   models.ReportTypeLeaveRegister,
		Params: models.ReportJobParams{Format: models.ReportFormatCSV, Status: &status, From: strPtr("2024-03-01"), To: strPtr("2024-03-31")},
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/export/"))
	assert.True(t, strings.HasSuffix(result.RelativePath, ".csv"))

	require.NotNil(t, source.last.AppliedTo)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), *source.last.AppliedTo)
	assert.Equal(t, &status, source.last.Status)

	raw, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(result.RelativePath)))
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, "Student,From,To,Days")
	assert.Contains(t, body, "Asha Rao,2024-03-10,2024-03-12,3,Family function,Approved by Warden,approved,Ravi Kumar,w1")
	assert.Contains(t, body, "s2,2024-03-10,2024-03-10,1,Medical,Applied,pending,,")
}

func TestExportServiceGeneratePDF(t *testing.T) {
	svc, dir := newExportServiceForTest(t, registerFixture())
	job := &models.ReportJob{ID: "job-2", Type: models.ReportTypeLeaveRegister, Params: models.ReportJobParams{Format: models.ReportFormatPDF}}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatPDF, result.Format)

	info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(result.RelativePath)))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-2", jobID)
	assert.Equal(t, result.RelativePath, relPath)
}

func TestExportServiceRejectsUnknownInput(t *testing.T) {
	svc, _ := newExportServiceForTest(t, registerFixture())

	_, err := svc.Generate(context.Background(), &models.ReportJob{ID: "x", Type: "attendance", Params: models.ReportJobParams{Format: models.ReportFormatCSV}})
	assert.Error(t, err)
	_, err = svc.Generate(context.Background(), &models.ReportJob{ID: "x", Type: models.ReportTypeLeaveRegister, Params: models.ReportJobParams{Format: "xlsx"}})
	assert.Error(t, err)
	_, err = svc.Generate(context.Background(), nil)
	assert.Error(t, err)
}
