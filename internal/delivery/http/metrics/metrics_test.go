package http_metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/humanbelnik/soundbyte/internal/metrics"
	"github.com/stretchr/testify/assert"
)

func TestExposition(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := metrics.New()
	m.RoomCreated()

	r := gin.New()
	New(m.Handler()).RegisterRoutes(&r.RouterGroup)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "soundbyte_rooms_created_total 1")
}
