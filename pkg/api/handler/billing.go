package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nungthesnail/telegram-ai/pkg/api/response"
	"github.com/nungthesnail/telegram-ai/pkg/domain"
)

type ModelLister interface {
	ListModels(ctx context.Context) ([]domain.ModelInfo, error)
}

type SubscriptionReader interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)
}

type billing struct {
	models        ModelLister
	subscriptions SubscriptionReader
}

func NewBilling(models ModelLister, subscriptions SubscriptionReader) *billing {
	return &billing{models: models, subscriptions: subscriptions}
}

func (h *billing) ListModels(c *gin.Context) {
	models, err := h.models.ListModels(c.Request.Context())
	if err != nil {
		response.WriteError(c, err)
		return
	}

	response.WriteSuccess(c, http.StatusOK, response.NewModels(models))
}

func (h *billing) Subscription(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	sub, err := h.subscriptions.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		response.WriteError(c, err)
		return
	}

	response.WriteSuccess(c, http.StatusOK, response.Subscription{Balance: sub.Balance})
}
