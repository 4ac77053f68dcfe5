package api

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/nungthesnail/telegram-ai/pkg/api/handler"
	"github.com/nungthesnail/telegram-ai/pkg/api/middleware"
)

const maxRequestBytes = 1 << 20

type RouterConfig struct {
	JWTSecret          string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

func NewRouter(
	cfg RouterConfig,
	dialogService handler.DialogService,
	models handler.ModelLister,
	subscriptions handler.SubscriptionReader,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestSizeLimiter(maxRequestBytes))

	mw := middleware.New(cfg.JWTSecret)
	dialogs := handler.NewDialogs(dialogService)
	billing := handler.NewBilling(models, subscriptions)

	api := r.Group("/api", mw.AuthRequired())
	{
		api.GET("/llm-models", billing.ListModels)
		api.GET("/subscription", billing.Subscription)

		api.POST("/dialogs", dialogs.Start)
		api.GET("/dialogs", dialogs.List)
		api.GET("/channels/:channelId/dialogs", dialogs.ListByChannel)
		api.GET("/dialogs/:dialogId", dialogs.Get)
		api.DELETE("/dialogs/:dialogId", dialogs.Delete)

		// Rate limited per user.
		api.POST("/dialogs/:dialogId/messages",
			mw.RateLimitPerUser(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst),
			dialogs.SendMessage,
		)
	}

	return r
}
