// Package echo provides the handlers the testserver suites run against.
package echo

import (
	"io"
	"net/http"

	"github.com/aura-studio/testserver/testserver"
	"github.com/gin-gonic/gin"
)

// Handler answers every request with "<METHOD> <URI> works!".
func Handler() http.Handler {
	return testserver.GinHandler(HandlerFunc)
}

// HandlerFunc writes "<METHOD> <URI> works!" and mirrors the ping request
// header into a pong response header.
func HandlerFunc(c *gin.Context) {
	if ping := c.GetHeader("ping"); ping != "" {
		c.Header("pong", ping)
	}

	c.String(http.StatusOK, "%s %s works!", c.Request.Method, c.Request.URL.RequestURI())
}

// JSONHandler answers with what it received.
func JSONHandler() http.Handler {
	return testserver.GinHandler(JSON)
}

// JSON reports the method, path, content type and raw body it received as a
// JSON object.
func JSON(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"method":       c.Request.Method,
		"path":         c.Request.URL.Path,
		"query":        c.Request.URL.RawQuery,
		"content_type": c.GetHeader("Content-Type"),
		"body":         string(body),
	})
}
