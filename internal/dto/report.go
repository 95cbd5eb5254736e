package dto

import "github.com/noah-isme/hostel-out-api/internal/models"

// LeaveReportRequest captures POST /reports/leaves payload. From and To
// bound the applied date (YYYY-MM-DD, inclusive).
type LeaveReportRequest struct {
	Format models.ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
	Status *string             `json:"status,omitempty"`
	From   *string             `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To     *string             `json:"to,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
