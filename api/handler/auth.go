package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arclightning/arclight/api/middleware"
	"github.com/arclightning/arclight/metrics"
	"github.com/arclightning/arclight/password"
	"github.com/arclightning/arclight/session"
)

// SessionIssuer hands out the single session token.
type SessionIssuer interface {
	Issue() (session.Session, error)
	TTL() time.Duration
}

type AuthHandler struct {
	hash           string
	sessions       SessionIssuer
	onLoginFail    func(string)
	onLoginSuccess func(string)
}

// NewAuthHandler checks passwords against hash, the bcrypt hash from the
// panel configuration. An empty hash rejects every password.
func NewAuthHandler(hash string, sessions SessionIssuer, onFail, onSuccess func(string)) *AuthHandler {
	return &AuthHandler{
		hash:           hash,
		sessions:       sessions,
		onLoginFail:    onFail,
		onLoginSuccess: onSuccess,
	}
}

type checkPasswordRequest struct {
	Password string `json:"password"`
}

// CheckPassword handles POST /api/v1/check_password. It always answers 200
// with {"success": bool}; on success the new session token is set as a
// cookie and any earlier session stops validating.
func (h *AuthHandler) CheckPassword(c *gin.Context) {
	var req checkPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		internalError(c, "check password: decode body", err)
		return
	}

	ip := middleware.ClientIP(c)
	ctx := c.Request.Context()

	ok, err := password.Verify(req.Password, h.hash)
	if err != nil {
		// The stored hash is broken; this is an operator problem, not a
		// failed guess.
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		slog.ErrorContext(ctx, "check password: stored hash unusable", "error", err)
		success(c, false)
		return
	}
	if !ok {
		h.onLoginFail(ip)
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		slog.InfoContext(ctx, "password check failed", "ip", ip)
		success(c, false)
		return
	}

	s, err := h.sessions.Issue()
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		slog.ErrorContext(ctx, "check password: issue session", "error", err)
		success(c, false)
		return
	}

	h.onLoginSuccess(ip)
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	slog.InfoContext(ctx, "session issued", "ip", ip, "issued_at", s.IssuedUnix())

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    s.Token,
		Path:     "/",
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	success(c, true)
}
