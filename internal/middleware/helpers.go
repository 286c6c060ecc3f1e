// internal/middleware/helpers.go
package middleware

import (
	"billhub-service/internal/domain/audit"
	"billhub-service/internal/domain/auth"

	"github.com/gin-gonic/gin"
)

const (
	ctxIdentityKey = "identity"
	ctxSessionKey  = "session_id"
)

func setIdentity(c *gin.Context, sessionID string, identity auth.Identity) {
	c.Set(ctxIdentityKey, identity)
	c.Set(ctxSessionKey, sessionID)
}

// CurrentIdentity returns the identity RequireAuth attached, if any.
func CurrentIdentity(c *gin.Context) (auth.Identity, bool) {
	v, exists := c.Get(ctxIdentityKey)
	if !exists {
		return auth.Identity{}, false
	}
	identity, ok := v.(auth.Identity)
	return identity, ok
}

// CurrentSessionID returns the validated session token for this request.
func CurrentSessionID(c *gin.Context) string {
	v, exists := c.Get(ctxSessionKey)
	if !exists {
		return ""
	}
	id, _ := v.(string)
	return id
}

// ActorFrom builds the explicit audit actor handed into services. It is the
// only bridge between the request context and the audit trail.
func ActorFrom(c *gin.Context) audit.Actor {
	actor := audit.Actor{
		SessionID: CurrentSessionID(c),
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
	if identity, ok := CurrentIdentity(c); ok {
		actor.UserID = identity.UserID
	}
	return actor
}
