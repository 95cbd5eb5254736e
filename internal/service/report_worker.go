package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hostel-out-api/internal/models"
	"github.com/noah-isme/hostel-out-api/internal/repository"
	"github.com/noah-isme/hostel-out-api/pkg/jobs"
)

// ReportWorker runs queued leave register exports.
type ReportWorker struct {
	repo       reportJobStore
	exporter   exportGenerator
	logger     *zap.Logger
	maxRetries int
	now        func() time.Time
}

// NewReportWorker constructs a worker. maxRetries is the attempt number after
// which a failing job is marked FAILED instead of re-queued. It must match the
// MaxRetries of the jobs.Queue running the worker.
func NewReportWorker(repo reportJobStore, exporter exportGenerator, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &ReportWorker{
		repo:       repo,
		exporter:   exporter,
		logger:     logger,
		maxRetries: maxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Handle is the jobs.Handler for the "reports" queue.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	// Recovery after a restart can enqueue a job that already completed.
	if record.Status.Terminal() {
		w.logger.Debug("skipping settled report job", zap.String("job_id", job.ID), zap.String("status", string(record.Status)))
		return nil
	}

	if err := w.repo.Update(ctx, job.ID, progressUpdate(models.ReportStatusProcessing, 10)); err != nil {
		return err
	}

	result, genErr := w.exporter.Generate(ctx, record)
	if genErr != nil {
		w.fail(ctx, job, genErr)
		return genErr
	}

	done := progressUpdate(models.ReportStatusFinished, 100)
	url, cleared, at := result.URL, "", w.now()
	done.ResultURL = &url
	done.ErrorMessage = &cleared
	done.FinishedAt = &at
	if err := w.repo.Update(ctx, job.ID, done); err != nil {
		w.logger.Warn("failed to mark report finished", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	return nil
}

// fail re-queues the job while retries remain and settles it as FAILED after.
func (w *ReportWorker) fail(ctx context.Context, job jobs.Job, cause error) {
	msg := cause.Error()
	var update repository.UpdateReportJobParams
	if job.Attempt >= w.maxRetries {
		update = progressUpdate(models.ReportStatusFailed, 100)
		at := w.now()
		update.FinishedAt = &at
	} else {
		update = progressUpdate(models.ReportStatusQueued, 0)
	}
	update.ErrorMessage = &msg
	if err := w.repo.Update(ctx, job.ID, update); err != nil {
		w.logger.Warn("failed to record report failure",
			zap.String("job_id", job.ID),
			zap.Int("attempt", job.Attempt),
			zap.Error(err))
	}
}

func progressUpdate(status models.ReportStatus, progress int) repository.UpdateReportJobParams {
	return repository.UpdateReportJobParams{Status: &status, Progress: &progress}
}
