package http_identity_middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	http_common "github.com/humanbelnik/soundbyte/internal/delivery/http/common"
)

const (
	Header     = "X-user-id"
	contextKey = "user_id"
)

type Middleware struct {
	logger *slog.Logger
}

func New() *Middleware {
	return &Middleware{
		logger: slog.Default(),
	}
}

// UserRequired trusts the user id set by the upstream auth proxy.
func (m *Middleware) UserRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userID := strings.TrimSpace(ctx.GetHeader(Header))
		if userID == "" {
			m.logger.Info("missing user header", slog.String("path", ctx.FullPath()))
			ctx.JSON(http.StatusUnauthorized, http_common.ErrorResponse{
				Message: fmt.Sprintf("no %s header", Header),
			})
			ctx.Abort()
			return
		}
		ctx.Set(contextKey, userID)
		ctx.Next()
	}
}

func UserID(ctx *gin.Context) string {
	return ctx.GetString(contextKey)
}
