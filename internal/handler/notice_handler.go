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

type noticeService interface {
	List(ctx context.Context, actor service.Actor) ([]models.Notice, bool, error)
	Publish(ctx context.Context, wardenID string, req dto.PublishNoticeRequest, actor service.Actor) (*models.Notice, error)
	Delete(ctx context.Context, id string, actor service.Actor) error
}

// NoticeHandler exposes the notice board.
type NoticeHandler struct {
	service noticeService
}

// NewNoticeHandler constructs the handler.
func NewNoticeHandler(svc noticeService) *NoticeHandler {
	return &NoticeHandler{service: svc}
}

// List godoc
// @Summary List notices
// @Tags Notices
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /notices [get]
func (h *NoticeHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	notices, hit, err := h.service.List(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.OK(c, notices, middleware.ExtractMeta(c))
}

// Publish godoc
// @Summary Publish notice
// @Tags Notices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param wardenId path string true "Warden ID (must be the caller)"
// @Param payload body dto.PublishNoticeRequest true "Notice"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /notices/warden/{wardenId}/publish [post]
func (h *NoticeHandler) Publish(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.PublishNoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid notice payload"))
		return
	}
	notice, err := h.service.Publish(c.Request.Context(), c.Param("wardenId"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, notice)
}

// Delete godoc
// @Summary Delete notice
// @Tags Notices
// @Security BearerAuth
// @Param noticeId path string true "Notice ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /notices/warden/{noticeId} [delete]
func (h *NoticeHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("noticeId"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
