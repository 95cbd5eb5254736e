package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-out-api/internal/dto"
	"github.com/noah-isme/hostel-out-api/internal/models"
	"github.com/noah-isme/hostel-out-api/internal/repository"
	appErrors "github.com/noah-isme/hostel-out-api/pkg/errors"
	"github.com/noah-isme/hostel-out-api/pkg/jobs"
)

type reportRepoStub struct {
	jobs map[string]*models.ReportJob
}

func newReportRepoStub() *reportRepoStub {
	return &reportRepoStub{jobs: map[string]*models.ReportJob{}}
}

func (r *reportRepoStub) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *reportRepoStub) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (r *reportRepoStub) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return errors.New("not found")
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *reportRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	var queued []models.ReportJob
	for _, job := range r.jobs {
		if job.Status == models.ReportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *reportRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	var done []models.ReportJob
	for _, job := range r.jobs {
		if job.Status == models.ReportStatusFinished && job.ResultURL != nil && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			done = append(done, *job)
		}
	}
	return done, nil
}

func (r *reportRepoStub) ClearResult(ctx context.Context, id string) error {
	if job, ok := r.jobs[id]; ok {
		job.ResultURL = nil
	}
	return nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func newReportServiceForTest(t *testing.T) (*ReportService, *reportRepoStub, *queueStub, *ExportService) {
	t.Helper()
	repo := newReportRepoStub()
	queue := &queueStub{}
	exportSvc, _ := newExportServiceForTest(t, registerFixture())
	service := NewReportService(repo, queue, exportSvc, zap.NewNop(), ReportServiceConfig{
		ResultTTL:       time.Hour,
		CleanupInterval: time.Hour,
		MaxRetries:      3,
	})
	return service, repo, queue, exportSvc
}

func TestReportServiceCreateLeaveRegisterJob(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t)
	resp, err := svc.CreateLeaveRegisterJob(context.Background(), dto.LeaveReportRequest{
		Format: models.ReportFormatCSV,
		Status: strPtr("approved by warden"),
		From:   strPtr("2024-03-01"),
	}, actorWarden)
	require.NoError(t, err)
	require.NotEmpty(t, resp.ID)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, string(models.ReportTypeLeaveRegister), queue.jobs[0].Type)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)

	stored := repo.jobs[resp.ID]
	require.NotNil(t, stored.Params.Status)
	assert.Equal(t, models.LeaveStatusApprovedByWarden, *stored.Params.Status)
	assert.Equal(t, "w1", stored.CreatedBy)
}

func TestReportServiceCreateJobValidation(t *testing.T) {
	svc, _, queue, _ := newReportServiceForTest(t)
	ctx := context.Background()

	_, err := svc.CreateLeaveRegisterJob(ctx, dto.LeaveReportRequest{Format: models.ReportFormatCSV}, actorTeacher)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.CreateLeaveRegisterJob(ctx, dto.LeaveReportRequest{Format: "xlsx"}, actorWarden)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.CreateLeaveRegisterJob(ctx, dto.LeaveReportRequest{Format: models.ReportFormatPDF, Status: strPtr("Pending")}, actorWarden)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.CreateLeaveRegisterJob(ctx, dto.LeaveReportRequest{Format: models.ReportFormatPDF, From: strPtr("2024-03-10"), To: strPtr("2024-03-01")}, actorWarden)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, queue.jobs)
}

func TestReportServiceCreateJobEnqueueFailure(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t)
	queue.err = jobs.ErrNotStarted

	_, err := svc.CreateLeaveRegisterJob(context.Background(), dto.LeaveReportRequest{Format: models.ReportFormatCSV}, actorWarden)
	require.Error(t, err)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ReportStatusFailed, job.Status)
	}
}

func TestReportServiceGetStatus(t *testing.T) {
	svc, repo, _, _ := newReportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeLeaveRegister,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		Status:    models.ReportStatusFinished,
		Progress:  100,
		CreatedBy: "w1",
	}
	repo.jobs[job.ID] = job
	resp, err := svc.GetStatus(context.Background(), job.ID, actorWarden)
	require.NoError(t, err)
	assert.Equal(t, job.Status, resp.Status)
	assert.Equal(t, job.Progress, resp.Progress)

	_, err = svc.GetStatus(context.Background(), "missing", actorWarden)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	_, err = svc.GetStatus(context.Background(), job.ID, actorStudent)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestReportServiceResolveDownload(t *testing.T) {
	svc, repo, _, exportSvc := newReportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-download",
		Type:      models.ReportTypeLeaveRegister,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		Status:    models.ReportStatusFinished,
		Progress:  100,
		CreatedBy: "w1",
	}
	repo.jobs[job.ID] = job
	result, err := exportSvc.Generate(context.Background(), job)
	require.NoError(t, err)
	job.ResultURL = &result.URL
	now := time.Now()
	job.FinishedAt = &now

	download, err := svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(result.RelativePath), download.Filename)
	download.File.Close()

	_, err = svc.ResolveDownload(context.Background(), "garbage")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

type exportStub struct {
	result *ExportResult
	err    error
}

func (e exportStub) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func TestReportWorkerHandleSuccess(t *testing.T) {
	repo := &reportRepoStub{
		jobs: map[string]*models.ReportJob{
			"job-1": {
				ID:        "job-1",
				Type:      models.ReportTypeLeaveRegister,
				Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
				Status:    models.ReportStatusQueued,
				CreatedBy: "w1",
			},
		},
	}
	exporter := exportStub{result: &ExportResult{URL: "/api/v1/export/token"}}
	worker := NewReportWorker(repo, exporter, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusFinished, repo.jobs["job-1"].Status)
	require.Equal(t, 100, repo.jobs["job-1"].Progress)
}

func TestReportWorkerHandleFailureRetries(t *testing.T) {
	repo := &reportRepoStub{
		jobs: map[string]*models.ReportJob{
			"job-1": {
				ID:        "job-1",
				Type:      models.ReportTypeLeaveRegister,
				Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
				Status:    models.ReportStatusQueued,
				CreatedBy: "w1",
			},
		},
	}
	exporter := exportStub{err: errors.New("boom")}
	worker := NewReportWorker(repo, exporter, 2, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	require.Equal(t, models.ReportStatusQueued, repo.jobs["job-1"].Status)

	err = worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2})
	require.Error(t, err)
	require.Equal(t, models.ReportStatusFailed, repo.jobs["job-1"].Status)
	require.Equal(t, "boom", *repo.jobs["job-1"].ErrorMessage)
}

func TestReportServiceCleanupRemovesExpiredExports(t *testing.T) {
	svc, repo, _, exportSvc := newReportServiceForTest(t)
	job := &models.ReportJob{ID: "old", Type: models.ReportTypeLeaveRegister, Params: models.ReportJobParams{Format: models.ReportFormatCSV}}
	result, err := exportSvc.Generate(context.Background(), job)
	require.NoError(t, err)

	finished := time.Now().Add(-2 * time.Hour)
	job.Status = models.ReportStatusFinished
	job.ResultURL = &result.URL
	job.FinishedAt = &finished
	repo.jobs[job.ID] = job

	svc.cleanupExpired(context.Background())

	assert.Nil(t, repo.jobs["old"].ResultURL)
	_, err = exportSvc.Open(result.RelativePath)
	assert.Error(t, err)
}

func TestReportWorkerWithoutRetriesSettlesFailed(t *testing.T) {
	repo := newReportRepoStub()
	repo.jobs["job-1"] = &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeLeaveRegister,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		Status:    models.ReportStatusQueued,
		CreatedBy: "w1",
	}
	retries := 0
	worker := NewReportWorker(repo, exportStub{err: errors.New("disk full")}, retries, zap.NewNop())

	outcomes := make(chan jobs.Outcome, 1)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		MaxRetries: retries,
		RetryDelay: time.Millisecond,
		Observer:   func(o jobs.Outcome) { outcomes <- o },
	})
	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, queue.Enqueue(jobs.Job{ID: "job-1", Type: string(models.ReportTypeLeaveRegister)}))

	select {
	case outcome := <-outcomes:
		assert.True(t, outcome.Final)
	case <-time.After(2 * time.Second):
		t.Fatal("report job was not handled")
	}
	assert.Equal(t, models.ReportStatusFailed, repo.jobs["job-1"].Status)
	assert.NotNil(t, repo.jobs["job-1"].FinishedAt)
	assert.Equal(t, "disk full", *repo.jobs["job-1"].ErrorMessage)
}
