package http_room

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	http_common "github.com/humanbelnik/soundbyte/internal/delivery/http/common"
	"github.com/humanbelnik/soundbyte/internal/model"
)

type RoomReader interface {
	Room(ctx context.Context, code string) (model.Room, error)
	Summary(ctx context.Context, room model.Room) model.LobbySummary
}

type Controller struct {
	rooms  RoomReader
	logger *slog.Logger
}

func New(rooms RoomReader) *Controller {
	return &Controller{
		rooms:  rooms,
		logger: slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	rooms := router.Group("/rooms")
	{
		rooms.GET("/:code", c.summary)
	}
}

func (c *Controller) summary(ctx *gin.Context) {
	room, err := c.rooms.Room(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		http_common.WriteError(ctx, c.logger, "room summary", err)
		return
	}
	ctx.JSON(http.StatusOK, c.rooms.Summary(ctx.Request.Context(), room))
}
