package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportDateLayout is the day format accepted for report windows.
const ReportDateLayout = "2006-01-02"

// ReportType names what a report job produces.
type ReportType string

// ReportTypeLeaveRegister exports leave requests with their approval trail.
const ReportTypeLeaveRegister ReportType = "leave_register"

// ReportFormat is the file format of a finished export.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// Valid reports whether f is a format the exporter can render.
func (f ReportFormat) Valid() bool {
	return f == ReportFormatCSV || f == ReportFormatPDF
}

// ReportStatus is the lifecycle state of a report job.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// Terminal is true once the job will not be picked up again.
func (s ReportStatus) Terminal() bool {
	return s == ReportStatusFinished || s == ReportStatusFailed
}

// ReportJob is a persisted leave register export request.
type ReportJob struct {
	ID           string          `db:"id" json:"id"`
	Type         ReportType      `db:"type" json:"type"`
	Params       ReportJobParams `db:"params" json:"params"`
	Status       ReportStatus    `db:"status" json:"status"`
	Progress     int             `db:"progress" json:"progress"`
	ResultURL    *string         `db:"result_url" json:"result_url,omitempty"`
	CreatedBy    string          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
}

// ReportJobParams narrows the leave register. It is stored as JSONB.
// From and To bound the applied date and are both inclusive.
type ReportJobParams struct {
	Format ReportFormat `json:"format"`
	Status *LeaveStatus `json:"status,omitempty"`
	From   *string      `json:"from,omitempty"`
	To     *string      `json:"to,omitempty"`
}

// LeaveFilter converts the params into a repository filter. AppliedTo is
// moved to the start of the day after To so the last day is covered.
func (p ReportJobParams) LeaveFilter() (LeaveFilter, error) {
	filter := LeaveFilter{Status: p.Status}
	if p.From != nil && *p.From != "" {
		from, err := time.Parse(ReportDateLayout, *p.From)
		if err != nil {
			return filter, fmt.Errorf("parse from date: %w", err)
		}
		filter.AppliedFrom = &from
	}
	if p.To != nil && *p.To != "" {
		to, err := time.Parse(ReportDateLayout, *p.To)
		if err != nil {
			return filter, fmt.Errorf("parse to date: %w", err)
		}
		end := to.AddDate(0, 0, 1)
		filter.AppliedTo = &end
	}
	return filter, nil
}

// Describe renders the filter for report titles, e.g.
// "Approved by Warden (2024-03-01 to 2024-03-31)".
func (p ReportJobParams) Describe() string {
	out := "all requests"
	if p.Status != nil {
		out = string(*p.Status)
	}
	switch {
	case p.From != nil && p.To != nil:
		out += fmt.Sprintf(" (%s to %s)", *p.From, *p.To)
	case p.From != nil:
		out += fmt.Sprintf(" (from %s)", *p.From)
	case p.To != nil:
		out += fmt.Sprintf(" (until %s)", *p.To)
	}
	return out
}

// Value implements driver.Valuer.
func (p ReportJobParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal report params: %w", err)
	}
	return data, nil
}

// Scan implements sql.Scanner. NULL and empty payloads reset p.
func (p *ReportJobParams) Scan(value interface{}) error {
	*p = ReportJobParams{}
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("report params: cannot scan %T", value)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal report params: %w", err)
	}
	return nil
}
