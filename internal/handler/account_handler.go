package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-out-api/internal/dto"
	"github.com/noah-isme/hostel-out-api/internal/models"
	"github.com/noah-isme/hostel-out-api/internal/service"
	"github.com/noah-isme/hostel-out-api/pkg/response"
)

type accountService interface {
	RegisterStudent(ctx context.Context, req dto.RegisterStudentRequest, meta service.Actor) (*models.User, error)
	CreateTeacher(ctx context.Context, req dto.CreateTeacherRequest, actor service.Actor) (*models.User, error)
	CreateWarden(ctx context.Context, req dto.CreateWardenRequest, actor service.Actor) (*models.User, error)
	GetStudent(ctx context.Context, id string, actor service.Actor) (*models.User, error)
	GetTeacher(ctx context.Context, id string, actor service.Actor) (*models.User, error)
	GetWarden(ctx context.Context, id string, actor service.Actor) (*models.User, error)
}

// AccountHandler serves student, teacher and warden account endpoints.
type AccountHandler struct {
	service accountService
}

// NewAccountHandler constructs the handler.
func NewAccountHandler(svc accountService) *AccountHandler {
	return &AccountHandler{service: svc}
}

// RegisterStudent godoc
// @Summary Register student
// @Description Public student sign-up
// @Tags Accounts
// @Accept json
// @Produce json
// @Param payload body dto.RegisterStudentRequest true "Student"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students [post]
func (h *AccountHandler) RegisterStudent(c *gin.Context) {
	var req dto.RegisterStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid student payload"))
		return
	}
	user, err := h.service.RegisterStudent(c.Request.Context(), req, anonymousActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewStudentResponse(user))
}

// CreateTeacher godoc
// @Summary Create teacher
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateTeacherRequest true "Teacher"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teachers [post]
func (h *AccountHandler) CreateTeacher(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid teacher payload"))
		return
	}
	user, err := h.service.CreateTeacher(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewTeacherResponse(user))
}

// CreateWarden godoc
// @Summary Create warden
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateWardenRequest true "Warden"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /wardens [post]
func (h *AccountHandler) CreateWarden(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateWardenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid warden payload"))
		return
	}
	user, err := h.service.CreateWarden(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewWardenResponse(user))
}

// GetStudent godoc
// @Summary Get student
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *AccountHandler) GetStudent(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	user, err := h.service.GetStudent(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewStudentResponse(user))
}

// GetTeacher godoc
// @Summary Get teacher
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id} [get]
func (h *AccountHandler) GetTeacher(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	user, err := h.service.GetTeacher(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewTeacherResponse(user))
}

// GetWarden godoc
// @Summary Get warden
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Warden ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /wardens/{id} [get]
func (h *AccountHandler) GetWarden(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	user, err := h.service.GetWarden(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewWardenResponse(user))
}
