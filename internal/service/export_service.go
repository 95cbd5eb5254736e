package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hostel-out-api/internal/models"
	"github.com/noah-isme/hostel-out-api/internal/workflow"
	"github.com/noah-isme/hostel-out-api/pkg/export"
	"github.com/noah-isme/hostel-out-api/pkg/storage"
)

type leaveRegisterSource interface {
	List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	Rows         int
	ExpiresAt    time.Time
}

// ExportService builds the leave register and persists rendered files.
type ExportService struct {
	leaves  leaveRegisterSource
	users   userLookup
	storage fileStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

var leaveRegisterColumns = []export.Column{
	{Key: "student", Header: "Student", Width: 1.6},
	{Key: "from", Header: "From", Width: 1},
	{Key: "to", Header: "To", Width: 1},
	{Key: "days", Header: "Days", Width: 0.5},
	{Key: "reason", Header: "Reason", Width: 2.4},
	{Key: "status", Header: "Status", Width: 1.4},
	{Key: "outcome", Header: "Outcome", Width: 0.8},
	{Key: "teacher", Header: "Teacher", Width: 1.3},
	{Key: "warden", Header: "Warden", Width: 1.3},
	{Key: "applied", Header: "Applied", Width: 1.4},
}

// NewExportService constructs an ExportService.
func NewExportService(leaves leaveRegisterSource, users userLookup, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		leaves:  leaves,
		users:   users,
		storage: storage,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Generate renders the register described by job and stores it.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	if job.Type != models.ReportTypeLeaveRegister {
		return nil, fmt.Errorf("unsupported report type %s", job.Type)
	}
	renderer, err := export.ForFormat(string(job.Params.Format))
	if err != nil {
		return nil, err
	}

	table, err := s.buildLeaveRegister(ctx, job.Params)
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(table)
	if err != nil {
		return nil, fmt.Errorf("render leave register: %w", err)
	}

	relPath, err := s.storage.Save(s.buildFilename(job, renderer.Extension()), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("leave register exported", zap.String("job_id", job.ID), zap.Int("rows", len(table.Rows)), zap.String("path", relPath))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		Rows:         len(table.Rows),
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildLeaveRegister(ctx context.Context, params models.ReportJobParams) (export.Table, error) {
	filter, err := params.LeaveFilter()
	if err != nil {
		return export.Table{}, err
	}
	leaves, err := s.leaves.List(ctx, filter)
	if err != nil {
		return export.Table{}, err
	}

	names := make(map[string]string)
	rows := make([]map[string]string, 0, len(leaves))
	for _, l := range leaves {
		student := l.StudentID
		if l.StudentName != nil && *l.StudentName != "" {
			student = *l.StudentName
		}
		rows = append(rows, map[string]string{
			"student": student,
			"from":    l.FromDate.Format(dateLayout),
			"to":      l.ToDate.Format(dateLayout),
			"days":    strconv.Itoa(int(l.ToDate.Sub(l.FromDate).Hours()/24) + 1),
			"reason":  l.Reason,
			"status":  string(l.Status),
			"outcome": leaveOutcome(l.Status),
			"teacher": s.deciderName(ctx, names, l.ApprovedByTeacher),
			"warden":  s.deciderName(ctx, names, l.ApprovedByWarden),
			"applied": l.AppliedDate.UTC().Format("2006-01-02 15:04"),
		})
	}

	return export.Table{
		Title:   "Leave Register: " + params.Describe() + ", generated " + s.now().Format("2006-01-02 15:04"),
		Columns: leaveRegisterColumns,
		Rows:    rows,
	}, nil
}

func leaveOutcome(status models.LeaveStatus) string {
	switch {
	case workflow.IsApproved(status):
		return "approved"
	case workflow.IsTerminal(status):
		return "rejected"
	}
	return "pending"
}

// deciderName resolves a staff id to a display name, memoised per export.
func (s *ExportService) deciderName(ctx context.Context, names map[string]string, id *string) string {
	if id == nil || *id == "" {
		return ""
	}
	if name, ok := names[*id]; ok {
		return name
	}
	name := *id
	if s.users != nil {
		if user, err := s.users.FindByID(ctx, *id); err == nil && user.FullName != "" {
			name = user.FullName
		} else if err != nil {
			s.logger.Debug("decider lookup failed", zap.String("user_id", *id), zap.Error(err))
		}
	}
	names[*id] = name
	return name
}

func (s *ExportService) buildFilename(job *models.ReportJob, ext string) string {
	statusPart := "all"
	if job.Params.Status != nil {
		statusPart = sanitizeFilename(strings.ToLower(string(*job.Params.Status)))
	}
	return fmt.Sprintf("%s_%s_%s.%s", job.Type, statusPart, s.now().Format("20060102_150405"), ext)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
