package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nungthesnail/telegram-ai/pkg/api/middleware"
	"github.com/nungthesnail/telegram-ai/pkg/api/response"
	"github.com/nungthesnail/telegram-ai/pkg/domain"
)

type DialogService interface {
	StartDialog(ctx context.Context, userID, channelID uuid.UUID, title, systemPrompt string) (*domain.Dialog, error)
	GetDialog(ctx context.Context, userID, dialogID uuid.UUID) (*domain.Dialog, error)
	ListDialogs(ctx context.Context, userID uuid.UUID) ([]domain.Dialog, error)
	ListChannelDialogs(ctx context.Context, userID, channelID uuid.UUID) ([]domain.Dialog, error)
	DeleteDialog(ctx context.Context, userID, dialogID uuid.UUID) error
	SendMessage(ctx context.Context, userID, dialogID uuid.UUID, modelID int64, text string) (*domain.Turn, error)
}

type dialogs struct {
	service DialogService
}

func NewDialogs(service DialogService) *dialogs {
	return &dialogs{service: service}
}

type startDialogRequest struct {
	ChannelID    uuid.UUID `json:"channelId" binding:"required"`
	Title        string    `json:"title"`
	SystemPrompt string    `json:"systemPrompt"`
}

func (h *dialogs) Start(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req startDialogRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ChannelID == uuid.Nil {
		response.WriteBadRequest(c, "channelId is required")
		return
	}

	dialog, err := h.service.StartDialog(c.Request.Context(), userID, req.ChannelID, req.Title, req.SystemPrompt)
	if err != nil {
		response.WriteError(c, err)
		return
	}

	response.WriteSuccess(c, http.StatusCreated, response.NewDialog(*dialog))
}

func (h *dialogs) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	dialogs, err := h.service.ListDialogs(c.Request.Context(), userID)
	if err != nil {
		response.WriteError(c, err)
		return
	}

	response.WriteSuccess(c, http.StatusOK, response.NewDialogs(dialogs))
}

func (h *dialogs) ListByChannel(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	channelID, ok := pathUUID(c, "channelId")
	if !ok {
		return
	}

	dialogs, err := h.service.ListChannelDialogs(c.Request.Context(), userID, channelID)
	if err != nil {
		response.WriteError(c, err)
		return
	}

	response.WriteSuccess(c, http.StatusOK, response.NewDialogs(dialogs))
}

func (h *dialogs) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	dialogID, ok := pathUUID(c, "dialogId")
	if !ok {
		return
	}

	dialog, err := h.service.GetDialog(c.Request.Context(), userID, dialogID)
	if err != nil {
		response.WriteError(c, err)
		return
	}

	response.WriteSuccess(c, http.StatusOK, response.NewDialog(*dialog))
}

func (h *dialogs) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	dialogID, ok := pathUUID(c, "dialogId")
	if !ok {
		return
	}

	if err := h.service.DeleteDialog(c.Request.Context(), userID, dialogID); err != nil {
		response.WriteError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type sendMessageRequest struct {
	ModelID int64  `json:"modelId"`
	Message string `json:"message"`
}

func (h *dialogs) SendMessage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	dialogID, ok := pathUUID(c, "dialogId")
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteBadRequest(c, "Invalid request")
		return
	}
	if req.ModelID <= 0 {
		response.WriteBadRequest(c, "modelId is required")
		return
	}

	turn, err := h.service.SendMessage(c.Request.Context(), userID, dialogID, req.ModelID, req.Message)
	if err != nil {
		response.WriteError(c, err)
		return
	}

	response.WriteSuccess(c, http.StatusOK, response.NewTurn(*turn))
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{Error: "unauthorized"})
	}
	return userID, ok
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.WriteBadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
