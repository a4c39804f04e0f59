package server

import (
	"errors"
	"net/http"

	"predictions/domain/entities"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: message})
}

// statusFor maps a domain error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrInvalidResolutionInput),
		errors.Is(err, entities.ErrInvalidEvent),
		errors.Is(err, entities.ErrInvalidStake),
		errors.Is(err, entities.ErrInsufficientPoints):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrUserSuspended):
		return http.StatusForbidden
	case errors.Is(err, entities.ErrEventNotFound),
		errors.Is(err, entities.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrConcurrentResolution),
		errors.Is(err, entities.ErrInvalidState),
		errors.Is(err, entities.ErrDuplicateStake),
		errors.Is(err, entities.ErrEventClosed):
		return http.StatusConflict
	case errors.Is(err, entities.ErrDataIntegrity):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with the mapped status. Internal errors are not echoed.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	if status == http.StatusInternalServerError {
		abortWithError(c, status, "internal error")
		return
	}
	abortWithError(c, status, err.Error())
}
