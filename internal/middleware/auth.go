package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/auth"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/authz"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/logging"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/service"
	"github.com/Maldo155/gta-mlo-map-sub001/pkg/response"
)

const actorKey = "actor"

// Authenticate reads an optional bearer token. A valid token attaches the
// caller to the context; an invalid one is rejected; none leaves the
// request anonymous.
func Authenticate(jwt *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.Fail(c, http.StatusUnauthorized, "unauthenticated", "Malformed Authorization header")
			return
		}

		claims, err := jwt.ValidateToken(token)
		if err != nil {
			logging.Ctx(c.Request.Context()).Debug().Err(err).Msg("Rejected bearer token")
			response.Fail(c, http.StatusUnauthorized, "unauthenticated", "Invalid or expired token")
			return
		}

		c.Set(actorKey, service.Actor{UserID: claims.UserID(), Role: claims.Role})
		c.Next()
	}
}

// RequireAuth rejects anonymous requests
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ActorFrom(c).UserID == "" {
			response.Fail(c, http.StatusUnauthorized, "unauthenticated", "Authentication required")
			return
		}
		c.Next()
	}
}

// RequirePermission rejects callers whose role may not perform action on object
func RequirePermission(enforcer *authz.Enforcer, object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if actor.UserID == "" {
			response.Fail(c, http.StatusUnauthorized, "unauthenticated", "Authentication required")
			return
		}

		allowed, err := enforcer.Allowed(actor.UserID, actor.Role, object, action)
		if err != nil {
			response.InternalError(c, "Authorization failed", err)
			return
		}
		if !allowed {
			response.Fail(c, http.StatusForbidden, "forbidden", "Insufficient permissions")
			return
		}
		c.Next()
	}
}

// ActorFrom returns the authenticated caller, or the zero Actor
func ActorFrom(c *gin.Context) service.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(service.Actor); ok {
			return actor
		}
	}
	return service.Actor{}
}
