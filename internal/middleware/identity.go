package middleware

// identity.go attaches an optional user identity to each request. The seat
// and payment sockets work for guests, so a missing or invalid token is not
// an error: the request proceeds as "anon" and connections fall back to a
// generated holder ID. The identity feeds the rate limiter's keying and the
// socket handlers' holder labels.

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-live/internal/utils"
)

const userIDKey = "user_id"

// Identity returns middleware that parses an optional bearer token from the
// Authorization header (or an access_token query parameter, which is how
// WebSocket handshakes carry it) and stores the subject in the context.
// With an empty secret the middleware is a pass-through.
func Identity(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return next(c)
			}
			token := bearerToken(c)
			if token == "" {
				return next(c)
			}
			if sub, err := utils.ParseSubject(secret, token); err == nil {
				c.Set(userIDKey, sub)
			}
			return next(c)
		}
	}
}

// CurrentUserID returns the authenticated subject of the request, or
// "anon" when the request carries no valid identity.
func CurrentUserID(c echo.Context) string {
	if v := c.Get(userIDKey); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "anon"
}

// bearerToken pulls the raw token from the Authorization header or the
// access_token query parameter.
func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.QueryParam("access_token")
}
