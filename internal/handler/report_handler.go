package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-out-api/internal/dto"
	"github.com/noah-isme/hostel-out-api/internal/service"
	appErrors "github.com/noah-isme/hostel-out-api/pkg/errors"
	"github.com/noah-isme/hostel-out-api/pkg/export"
	"github.com/noah-isme/hostel-out-api/pkg/response"
)

type reportService interface {
	CreateLeaveRegisterJob(ctx context.Context, req dto.LeaveReportRequest, actor service.Actor) (*dto.ReportJobResponse, error)
	GetStatus(ctx context.Context, id string, actor service.Actor) (*dto.ReportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
}

// ReportHandler exposes leave register export endpoints.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// LeaveRegister godoc
// @Summary Request leave register export
// @Description Queues a CSV or PDF export of leave requests, optionally filtered by status and applied date
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.LeaveReportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reports/leaves [post]
func (h *ReportHandler) LeaveRegister(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.LeaveReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid report payload"))
		return
	}
	job, err := h.service.CreateLeaveRegisterJob(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Status godoc
// @Summary Report job status
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Status(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	status, err := h.service.GetStatus(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}

// Download godoc
// @Summary Download finished export
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /export/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	download, err := h.service.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to stat export file"))
		return
	}
	contentType := "application/octet-stream"
	if renderer, err := export.ForFormat(string(download.Format)); err == nil {
		contentType = renderer.ContentType()
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", download.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, download.File, nil)
}
