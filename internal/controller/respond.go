package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/henokg/talentsim/internal/apperr"
	"github.com/henokg/talentsim/internal/dto"
	"github.com/rs/zerolog/log"
)

// RespondError maps a service error onto the uniform error body. Typed
// errors carry their own HTTP status; anything else is a 500 with the
// detail kept out of the response.
func RespondError(c *gin.Context, err error) {
	if appErr, ok := apperr.As(err); ok {
		c.JSON(appErr.HTTPStatus(), dto.ErrorResponse{
			Error:      appErr.Message,
			Kind:       string(appErr.Kind),
			Violations: appErr.Violations,
		})
		return
	}
	log.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled service error")
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
}

// ParseID reads a uint path parameter, replying 400 itself on failure.
// Callers must return immediately when ok is false.
func ParseID(c *gin.Context, name string) (uint, bool) {
	val, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid " + name + " format", Kind: "VALIDATION"})
		return 0, false
	}
	return uint(val), true
}
