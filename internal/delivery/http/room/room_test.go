package http_room

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	infra_memory_room "github.com/humanbelnik/soundbyte/internal/infra/memory/room"
	infra_memory_user "github.com/humanbelnik/soundbyte/internal/infra/memory/user"
	"github.com/humanbelnik/soundbyte/internal/model"
	usecase_room "github.com/humanbelnik/soundbyte/internal/usecase/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rooms := usecase_room.New(infra_memory_room.New(), infra_memory_user.New(model.User{ID: "u1", Username: "alice"}))
	created, err := rooms.CreateRoom(context.Background(), usecase_room.CreateParams{HostID: "u1", HostConnID: "c1"})
	require.NoError(t, err)

	r := gin.New()
	New(rooms).RegisterRoutes(r.Group("/api/v1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/rooms/"+created.Code, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var summary model.LobbySummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, created.Code, summary.Code)
	assert.Equal(t, "alice", summary.Host.Username)
	assert.Equal(t, 1, summary.PlayerCount)
	assert.Equal(t, "c1", summary.Players[0].ConnID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/rooms/NOPE99", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
