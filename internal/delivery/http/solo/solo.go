package http_solo

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	http_common "github.com/humanbelnik/soundbyte/internal/delivery/http/common"
	http_identity_middleware "github.com/humanbelnik/soundbyte/internal/delivery/http/middleware/identity"
	usecase_solo "github.com/humanbelnik/soundbyte/internal/usecase/solo"
)

type Controller struct {
	usecase  *usecase_solo.Usecase
	identity *http_identity_middleware.Middleware
	logger   *slog.Logger
}

func New(
	usecase *usecase_solo.Usecase,
	identity *http_identity_middleware.Middleware,
) *Controller {
	return &Controller{
		usecase:  usecase,
		identity: identity,
		logger:   slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	games := router.Group("/solo/games", c.identity.UserRequired())
	{
		games.POST("", c.start)
		games.GET("/:session_id", c.resume)
		games.POST("/:session_id/rounds/started", c.roundStarted)
		games.POST("/:session_id/guesses", c.guess)
		games.POST("/:session_id/next", c.next)
		games.POST("/:session_id/finish", c.finish)
	}
}

type StartRequestDTO struct {
	SnippetSize int `json:"snippetSize" binding:"omitempty,oneof=3 5 10"`
	Rounds      int `json:"rounds"`
}

func (c *Controller) start(ctx *gin.Context) {
	var req StartRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
			Message: "invalid request format",
		})
		return
	}

	res, err := c.usecase.Start(ctx.Request.Context(), http_identity_middleware.UserID(ctx), req.SnippetSize, req.Rounds)
	if err != nil {
		http_common.WriteError(ctx, c.logger, "solo start", err)
		return
	}
	ctx.JSON(http.StatusCreated, res)
}

func (c *Controller) resume(ctx *gin.Context) {
	snap, err := c.usecase.Resume(ctx.Request.Context(), http_identity_middleware.UserID(ctx), ctx.Param("session_id"))
	if err != nil {
		http_common.WriteError(ctx, c.logger, "solo resume", err)
		return
	}
	ctx.JSON(http.StatusOK, snap)
}

type RoundRequestDTO struct {
	RoundIndex *int `json:"roundIndex" binding:"required"`
}

func (c *Controller) roundStarted(ctx *gin.Context) {
	var req RoundRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
			Message: "missing roundIndex",
		})
		return
	}

	err := c.usecase.RoundStarted(ctx.Request.Context(), http_identity_middleware.UserID(ctx), ctx.Param("session_id"), *req.RoundIndex)
	if err != nil {
		http_common.WriteError(ctx, c.logger, "solo round started", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}

type GuessRequestDTO struct {
	RoundIndex *int   `json:"roundIndex" binding:"required"`
	Guess      string `json:"guess" binding:"required"`
}

func (c *Controller) guess(ctx *gin.Context) {
	var req GuessRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
			Message: "missing roundIndex or guess",
		})
		return
	}

	res, err := c.usecase.Guess(ctx.Request.Context(), http_identity_middleware.UserID(ctx), ctx.Param("session_id"), *req.RoundIndex, req.Guess)
	if err != nil {
		http_common.WriteError(ctx, c.logger, "solo guess", err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

func (c *Controller) next(ctx *gin.Context) {
	res, err := c.usecase.Next(ctx.Request.Context(), http_identity_middleware.UserID(ctx), ctx.Param("session_id"))
	if err != nil {
		http_common.WriteError(ctx, c.logger, "solo next", err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

func (c *Controller) finish(ctx *gin.Context) {
	res, err := c.usecase.Finish(ctx.Request.Context(), http_identity_middleware.UserID(ctx), ctx.Param("session_id"))
	if err != nil {
		http_common.WriteError(ctx, c.logger, "solo finish", err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}
