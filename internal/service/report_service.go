package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hostel-out-api/internal/dto"
	"github.com/noah-isme/hostel-out-api/internal/models"
	"github.com/noah-isme/hostel-out-api/internal/repository"
	"github.com/noah-isme/hostel-out-api/internal/workflow"
	appErrors "github.com/noah-isme/hostel-out-api/pkg/errors"
	"github.com/noah-isme/hostel-out-api/pkg/jobs"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
	ClearResult(ctx context.Context, id string) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

const (
	recoverBatch = 50
	cleanupBatch = 100
)

// ReportService orchestrates leave register export jobs for wardens.
type ReportService struct {
	repo     reportJobStore
	queue    jobDispatcher
	exporter *ExportService
	logger   *zap.Logger
	cfg      ReportServiceConfig
}

// ReportServiceConfig governs queue recovery and cleanup.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// NewReportService constructs the report service.
func NewReportService(repo reportJobStore, queue jobDispatcher, exporter *ExportService, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &ReportService{
		repo:     repo,
		queue:    queue,
		exporter: exporter,
		logger:   logger,
		cfg:      cfg,
	}
}

// CreateLeaveRegisterJob stores a QUEUED export job and hands it to the queue.
// A job the queue refuses is settled as FAILED straight away.
func (s *ReportService) CreateLeaveRegisterJob(ctx context.Context, req dto.LeaveReportRequest, actor Actor) (*dto.ReportJobResponse, error) {
	if err := requireRole(actor, models.RoleWarden); err != nil {
		return nil, err
	}
	params, err := reportParams(req)
	if err != nil {
		return nil, err
	}
	job := &models.ReportJob{
		Type:      models.ReportTypeLeaveRegister,
		Params:    params,
		Status:    models.ReportStatusQueued,
		CreatedBy: actor.ID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Internal(err, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		failed := progressUpdate(models.ReportStatusFailed, 100)
		msg, at := "failed to enqueue job", time.Now().UTC()
		failed.ErrorMessage = &msg
		failed.FinishedAt = &at
		if updateErr := s.repo.Update(ctx, job.ID, failed); updateErr != nil {
			s.logger.Warn("failed to settle unqueued report job", zap.String("job_id", job.ID), zap.Error(updateErr))
		}
		return nil, appErrors.Internal(err, "failed to enqueue report job")
	}
	s.logger.Info("report job queued",
		zap.String("job_id", job.ID),
		zap.String("warden_id", actor.ID),
		zap.String("filter", params.Describe()))
	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus reports progress of a job to wardens.
func (s *ReportService) GetStatus(ctx context.Context, id string, actor Actor) (*dto.ReportStatusResponse, error) {
	if err := requireRole(actor, models.RoleWarden); err != nil {
		return nil, err
	}
	job, err := s.job(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := &dto.ReportStatusResponse{
		ID:        job.ID,
		Status:    job.Status,
		Progress:  job.Progress,
		ResultURL: job.ResultURL,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload checks a signed export token and opens the file behind it.
// The token must still be the one recorded on a FINISHED job.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.job(ctx, jobID)
	if err != nil {
		return nil, err
	}
	switch {
	case job.ResultURL == nil || tokenFromURL(*job.ResultURL) != token:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	case job.Status != models.ReportStatusFinished:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs re-enqueues jobs left QUEUED by a previous process.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, recoverBatch)
	if err != nil {
		s.logger.Warn("failed to list queued report jobs", zap.Error(err))
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.logger.Warn("failed to requeue report job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	if len(pending) > 0 {
		s.logger.Info("recovered report jobs", zap.Int("count", len(pending)))
	}
}

// StartCleanup removes expired exports every CleanupInterval until ctx ends.
// It returns immediately; the sweep runs on its own goroutine.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ReportService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	removed := 0
	for {
		batch, err := s.repo.ListFinishedBefore(ctx, cutoff, cleanupBatch)
		if err != nil {
			s.logger.Warn("cleanup list failed", zap.Error(err))
			return
		}
		for _, job := range batch {
			if s.removeExport(job) {
				removed++
			}
			// Dropping the link keeps the job out of the next batch.
			if err := s.repo.ClearResult(ctx, job.ID); err != nil {
				s.logger.Warn("failed to clear report link", zap.String("job_id", job.ID), zap.Error(err))
				return
			}
		}
		if len(batch) < cleanupBatch {
			break
		}
	}
	swept, err := s.exporter.Cleanup(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("export directory sweep failed", zap.Error(err))
	}
	if removed+len(swept) > 0 {
		s.logger.Info("expired exports removed", zap.Int("jobs", removed), zap.Int("orphans", len(swept)))
	}
}

// removeExport deletes the file a finished job points to. Expired tokens are
// still decoded so the path can be recovered.
func (s *ReportService) removeExport(job models.ReportJob) bool {
	if job.ResultURL == nil {
		return false
	}
	token := tokenFromURL(*job.ResultURL)
	if token == "" {
		return false
	}
	_, relPath, _, err := s.exporter.ParseToken(token, true)
	if err != nil {
		return false
	}
	if err := s.exporter.Delete(relPath); err != nil {
		s.logger.Warn("cleanup delete failed", zap.String("job_id", job.ID), zap.Error(err))
		return false
	}
	return true
}

func (s *ReportService) job(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	case err != nil:
		return nil, appErrors.Internal(err, "failed to load report job")
	}
	return job, nil
}

// reportParams validates a register request. The status filter accepts the
// leave status label in any letter case.
func reportParams(req dto.LeaveReportRequest) (models.ReportJobParams, error) {
	if !req.Format.Valid() {
		return models.ReportJobParams{}, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	params := models.ReportJobParams{Format: req.Format}
	if req.Status != nil && *req.Status != "" {
		status, ok := workflow.ParseStatus(*req.Status)
		if !ok {
			return params, appErrors.Clone(appErrors.ErrValidation, "unknown leave status")
		}
		params.Status = &status
	}
	from, err := optionalDay(req.From, "from")
	if err != nil {
		return params, err
	}
	to, err := optionalDay(req.To, "to")
	if err != nil {
		return params, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return params, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	if !from.IsZero() {
		params.From = req.From
	}
	if !to.IsZero() {
		params.To = req.To
	}
	return params, nil
}

func optionalDay(raw *string, field string) (time.Time, error) {
	if raw == nil || *raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(models.ReportDateLayout, *raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, field+" must be YYYY-MM-DD")
	}
	return t, nil
}

// tokenFromURL returns the last path segment of a signed download URL.
func tokenFromURL(url string) string {
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}
