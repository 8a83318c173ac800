package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storechat/internal/app"
	"storechat/internal/pkg/jwtutil"
	"storechat/internal/transport/http/response"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
	ContextActorKey    = "actor"
)

// ActorLoader resolves a token's user id to the caller and its current roles.
type ActorLoader interface {
	Actor(userID uint) (app.Actor, error)
}

func AuthJWT(secret string, actors ActorLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing authorization header")
			c.Abort()
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid authorization scheme")
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		actor, err := actors.Actor(claims.UserID)
		if err != nil {
			response.FromError(c, err, "load current user failed")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextUsernameKey, claims.Username)
		c.Set(ContextActorKey, actor)
		c.Next()
	}
}

// ActorFrom returns the authenticated caller, or the zero Actor.
func ActorFrom(c *gin.Context) app.Actor {
	v, ok := c.Get(ContextActorKey)
	if !ok {
		return app.Actor{}
	}
	actor, _ := v.(app.Actor)
	return actor
}
