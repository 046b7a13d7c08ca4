package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/henokg/talentsim/internal/dto"
	"github.com/henokg/talentsim/internal/model"
	"github.com/rs/zerolog/log"
)

const identityKey = "caller_identity"

// Authenticate reads the identity the auth gateway asserted via the
// X-User-ID and X-User-Role headers. Requests without a valid pair are
// rejected before any handler runs.
func Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.GetHeader("X-User-ID")
		userID, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil || userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "missing or invalid X-User-ID header", Kind: "UNAUTHORIZED"})
			return
		}

		role, err := model.ParseRole(c.GetHeader("X-User-Role"))
		if err != nil {
			log.Warn().Err(err).Str("path", c.FullPath()).Msg("Request with unknown role rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "missing or invalid X-User-Role header", Kind: "UNAUTHORIZED"})
			return
		}

		c.Set(identityKey, model.Identity{UserID: uint(userID), Role: role})
		c.Next()
	}
}

// RequireRole gates a route group to the given roles. Admins pass every
// gate.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := CallerIdentity(c)
		if identity.IsAdmin() {
			c.Next()
			return
		}
		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{Error: "insufficient role for this resource", Kind: "FORBIDDEN"})
	}
}

// CallerIdentity returns the identity Authenticate stored on the context.
// Routes behind Authenticate always have one.
func CallerIdentity(c *gin.Context) model.Identity {
	identity, _ := c.MustGet(identityKey).(model.Identity)
	return identity
}
