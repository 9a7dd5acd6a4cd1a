package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
)

// genericError is the only error text clients ever see.
const genericError = "Internal server error"

// internalError logs err and answers 500 with the generic body.
func internalError(c *gin.Context, msg string, err error) {
	slog.ErrorContext(c.Request.Context(), msg,
		"request_id", requestid.Get(c),
		"path", c.Request.URL.Path,
		"error", err,
	)
	c.String(http.StatusInternalServerError, genericError)
}

// Forbidden answers requests that need a session but carry none.
func Forbidden(c *gin.Context) {
	c.Data(http.StatusForbidden, "application/json; charset=utf-8", []byte(`{"success": false}`))
}

// success writes {"success": ok}.
func success(c *gin.Context, ok bool) {
	c.JSON(http.StatusOK, gin.H{"success": ok})
}
