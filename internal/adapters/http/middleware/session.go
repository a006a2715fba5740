package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/quote-generator/internal/platform/config"
	"github.com/jsamuelsen/quote-generator/internal/platform/logging"
)

// ContextKeySessionID is the gin context key for the visitor session ID.
const ContextKeySessionID = "session_id"

// Session returns middleware that identifies the visitor by cookie. A missing
// or malformed cookie starts a new session. The cookie lifetime slides with
// each request to match the idle TTL of the session slot store.
func Session(cfg config.SessionConfig) gin.HandlerFunc {
	name := cfg.CookieName
	if name == "" {
		name = config.DefaultSessionCookie
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = config.DefaultSessionTTL
	}

	return func(c *gin.Context) {
		id, err := c.Cookie(name)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(name, id, int(ttl.Seconds()), "/", "", cfg.Secure, true)
		c.Set(ContextKeySessionID, id)

		ctx := ContextWithSessionID(c.Request.Context(), id)
		ctx = logging.WithSessionID(ctx, id)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetSessionID returns the visitor session ID from the gin context, or "".
func GetSessionID(c *gin.Context) string {
	return getIDFromContext(c, ContextKeySessionID)
}
