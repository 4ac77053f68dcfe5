package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nungthesnail/telegram-ai/pkg/domain"
	"github.com/nungthesnail/telegram-ai/pkg/logger"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteSuccess(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

func WriteBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// WriteError maps service errors to status codes. Internal details are logged, not returned.
func WriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: notFoundMessage(err)})
	case errors.Is(err, domain.ErrEmptyMessage):
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: domain.ErrEmptyMessage.Error()})
	default:
		slog.ErrorContext(c.Request.Context(), "Request failed", "path", c.FullPath(), logger.Err(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func notFoundMessage(err error) string {
	for _, target := range []error{
		domain.ErrDialogNotFound,
		domain.ErrModelNotFound,
		domain.ErrChannelNotFound,
		domain.ErrSubscriptionNotFound,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return domain.ErrNotFound.Error()
}
