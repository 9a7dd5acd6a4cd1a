package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// SessionCookieName is the cookie carrying the session token.
	SessionCookieName = "arclight_session"

	ContextKeyAuthorized = "authorized"
	ContextKeyRoute      = "route"
)

// TokenValidator checks a session token.
type TokenValidator interface {
	Validate(token string) bool
}

// SessionToken returns the session cookie's value, or "" when the request
// has no such cookie. Other cookies in the same header are ignored.
func SessionToken(r *http.Request) string {
	ck, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return ck.Value
}

// Session evaluates the session cookie once per request and records the
// outcome under ContextKeyAuthorized. It never rejects a request itself;
// a missing, malformed or stale cookie simply means "not authorized".
func Session(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyAuthorized, v.Validate(SessionToken(c.Request)))
		c.Next()
	}
}

// Authorized reports the result recorded by Session.
func Authorized(c *gin.Context) bool {
	return c.GetBool(ContextKeyAuthorized)
}
