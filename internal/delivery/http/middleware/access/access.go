package http_access_middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	http_common "github.com/humanbelnik/soundbyte/internal/delivery/http/common"
)

const ModeReadOnly = "RO"

// ReadOnly rejects every non-GET request on a read-only instance.
func ReadOnly(mode string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if mode != ModeReadOnly || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		c.JSON(http.StatusServiceUnavailable, http_common.ErrorResponse{
			Message: "write operations are not allowed on a read-only instance",
		})
		c.Abort()
	}
}
