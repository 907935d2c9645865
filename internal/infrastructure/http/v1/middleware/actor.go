package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"stockcore/internal/core/apperror"
	appctx "stockcore/internal/core/context"
	"stockcore/pkg/identity"
)

// Actor extracts the acting user from a bearer token and stores it in the
// request context for audit attribution. Requests without a token proceed
// as "system"; authorization is the gateway's job, not this core's.
func Actor(parser *identity.Parser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.Next()
			return
		}

		actor, err := parser.Parse(parts[1])
		if err != nil {
			// A present but unverifiable token is rejected, not ignored.
			_ = c.Error(apperror.NewUnauthorized("invalid token"))
			c.Abort()
			return
		}

		ctx := appctx.WithActor(c.Request.Context(), actor)
		c.Request = c.Request.WithContext(ctx)
		c.Set("actor_id", actor.UserID)

		c.Next()
	}
}
