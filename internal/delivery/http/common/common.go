package http_common

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/humanbelnik/soundbyte/internal/model"
)

type ErrorResponse struct {
	Message string `json:"error"`
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Message hides internal details behind a generic text.
func Message(err error) string {
	if StatusOf(err) >= http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

func WriteError(ctx *gin.Context, logger *slog.Logger, op string, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.String("op", op), slog.String("error", err.Error()))
	} else {
		logger.Info("request rejected", slog.String("op", op), slog.String("error", err.Error()))
	}
	ctx.JSON(status, ErrorResponse{Message: Message(err)})
}
