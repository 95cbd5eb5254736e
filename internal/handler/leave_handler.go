package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-out-api/internal/dto"
	"github.com/noah-isme/hostel-out-api/internal/middleware"
	"github.com/noah-isme/hostel-out-api/internal/models"
	"github.com/noah-isme/hostel-out-api/internal/service"
	"github.com/noah-isme/hostel-out-api/pkg/response"
)

type leaveService interface {
	Apply(ctx context.Context, req dto.ApplyLeaveRequest, actor service.Actor) (*models.LeaveRequest, error)
	Inbox(ctx context.Context, actor service.Actor) ([]models.LeaveRequest, bool, error)
	ListByStudent(ctx context.Context, studentID string, actor service.Actor) ([]models.LeaveRequest, error)
	Get(ctx context.Context, id string, actor service.Actor) (*models.LeaveRequest, error)
	Decide(ctx context.Context, id string, role models.UserRole, deciderID string, approve bool, actor service.Actor) (*models.LeaveRequest, error)
}

// LeaveHandler exposes the leave application and approval endpoints.
type LeaveHandler struct {
	service leaveService
}

// NewLeaveHandler constructs the handler.
func NewLeaveHandler(svc leaveService) *LeaveHandler {
	return &LeaveHandler{service: svc}
}

// Apply godoc
// @Summary Apply for leave
// @Tags Leaves
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ApplyLeaveRequest true "Leave request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leaves/apply [post]
func (h *LeaveHandler) Apply(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ApplyLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid leave payload"))
		return
	}
	leave, err := h.service.Apply(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, leave)
}

// Inbox godoc
// @Summary Role scoped leave list
// @Description Students get their own requests, teachers the Applied queue, wardens the Approved by Teacher queue
// @Tags Leaves
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /leaves [get]
func (h *LeaveHandler) Inbox(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	leaves, hit, err := h.service.Inbox(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.OK(c, leaves, middleware.ExtractMeta(c))
}

// ListByStudent godoc
// @Summary Leave requests of a student
// @Tags Leaves
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /leaves/student/{studentId} [get]
func (h *LeaveHandler) ListByStudent(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	leaves, err := h.service.ListByStudent(c.Request.Context(), c.Param("studentId"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, leaves)
}

// Get godoc
// @Summary Get leave request
// @Tags Leaves
// @Produce json
// @Security BearerAuth
// @Param id path string true "Leave ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /leaves/{id} [get]
func (h *LeaveHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	leave, err := h.service.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, leave)
}

// TeacherDecision godoc
// @Summary Teacher approves or rejects
// @Tags Leaves
// @Produce json
// @Security BearerAuth
// @Param id path string true "Leave ID"
// @Param teacherId path string true "Teacher ID (must be the caller)"
// @Param isApproved query bool true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leaves/{id}/teacher/{teacherId} [put]
func (h *LeaveHandler) TeacherDecision(c *gin.Context) {
	h.decide(c, models.RoleTeacher, c.Param("teacherId"))
}

// WardenDecision godoc
// @Summary Warden approves or rejects
// @Tags Leaves
// @Produce json
// @Security BearerAuth
// @Param id path string true "Leave ID"
// @Param wardenId path string true "Warden ID (must be the caller)"
// @Param isApproved query bool true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leaves/{id}/warden/{wardenId} [put]
func (h *LeaveHandler) WardenDecision(c *gin.Context) {
	h.decide(c, models.RoleWarden, c.Param("wardenId"))
}

func (h *LeaveHandler) decide(c *gin.Context, role models.UserRole, deciderID string) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	approve, err := requiredBoolQuery(c, "isApproved")
	if err != nil {
		response.Error(c, err)
		return
	}
	leave, err := h.service.Decide(c.Request.Context(), c.Param("id"), role, deciderID, approve, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, leave)
}
