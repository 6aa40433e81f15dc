package testserver

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

var methods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodHead, http.MethodOptions}

// GinHandler mounts handlers on every path for every method, including
// methods gin has no route tree for, such as PROPFIND. Panics in handlers are
// not recovered.
//
// gin's mode is process-wide. Unless GIN_MODE is set, GinHandler switches it
// to release mode so engines do not print their routes.
func GinHandler(handlers ...gin.HandlerFunc) http.Handler {
	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	e := gin.New()
	for _, method := range methods {
		e.Handle(method, "/*path", handlers...)
	}
	// with HandleMethodNotAllowed off, any other method lands here
	e.NoRoute(handlers...)

	return e
}
