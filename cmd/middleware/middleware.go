package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/zlog"

	"regportal/internal/auth"
	"regportal/internal/dto"
)

const (
	AdminCookie  = "admin_token"
	SectorCookie = "sector_token"

	identityKey = "portal.identity"
)

func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := zlog.Logger.Info()
		switch {
		case status >= 500:
			event = zlog.Logger.Error()
		case status >= 400:
			event = zlog.Logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request handled")
	}
}

// CookieFor names the session cookie carrying tokens of role.
func CookieFor(role auth.Role) string {
	if role == auth.RoleSector {
		return SectorCookie
	}
	return AdminCookie
}

// RequireRole admits only callers holding a valid session token for role and
// exposes their identity to later handlers through IdentityFrom.
func RequireRole(tokens *auth.TokenManager, role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token, _ = c.Cookie(CookieFor(role))
		}
		if token == "" {
			dto.UnauthorizedError(c)
			return
		}

		id, err := tokens.Verify(token)
		if err != nil || id.Role != role {
			zlog.Logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("session rejected")
			dto.UnauthorizedError(c)
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
