package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-out-api/internal/dto"
	"github.com/noah-isme/hostel-out-api/internal/models"
	"github.com/noah-isme/hostel-out-api/internal/service"
	"github.com/noah-isme/hostel-out-api/pkg/response"
)

type complaintService interface {
	Create(ctx context.Context, req dto.CreateComplaintRequest, actor service.Actor) (*models.Complaint, error)
	List(ctx context.Context, actor service.Actor) ([]models.Complaint, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateComplaintStatusRequest, actor service.Actor) (*models.Complaint, error)
}

// ComplaintHandler exposes complaint endpoints.
type ComplaintHandler struct {
	service complaintService
}

// NewComplaintHandler constructs the handler.
func NewComplaintHandler(svc complaintService) *ComplaintHandler {
	return &ComplaintHandler{service: svc}
}

// Create godoc
// @Summary File a complaint
// @Tags Complaints
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateComplaintRequest true "Complaint"
// @Success 201 {object} response.Envelope
// @Router /complaints [post]
func (h *ComplaintHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid complaint payload"))
		return
	}
	complaint, err := h.service.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, complaint)
}

// List godoc
// @Summary List complaints
// @Description Students see their own complaints, wardens see all
// @Tags Complaints
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /complaints [get]
func (h *ComplaintHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	complaints, err := h.service.List(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, complaints)
}

// UpdateStatus godoc
// @Summary Set complaint status
// @Tags Complaints
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Complaint ID"
// @Param payload body dto.UpdateComplaintStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /complaints/{id}/status [patch]
func (h *ComplaintHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateComplaintStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid status payload"))
		return
	}
	complaint, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, complaint)
}
