package controller

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"webdesk/middleware"
	"webdesk/service/fs"
	"webdesk/websocket"
)

// Deps are the collaborators the routes are wired to. Metrics and Hub
// may be nil. Traversal counting is wired on FS itself.
type Deps struct {
	FS         *fs.FSService
	Hub        *websocket.Hub
	Metrics    *middleware.Metrics
	ViewMaxAge time.Duration
	PublicDir  string
}

func SetupRoutes(r *gin.Engine, deps Deps) {
	files := NewFileController(deps.FS, deps.ViewMaxAge)

	api := r.Group("/api")
	{
		api.GET("/files", files.List)
		api.GET("/download", files.Download)
		api.GET("/view", files.View)
		api.POST("/folder", files.CreateFolder)
		api.DELETE("/delete", files.Delete)
		api.POST("/rename", files.Rename)
		api.POST("/upload", files.Upload)

		if deps.Hub != nil {
			api.GET("/ws", NewSessionController(deps.FS, deps.Hub).Start)
		}
	}

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	var static http.Handler
	if deps.PublicDir != "" {
		static = http.FileServer(http.Dir(deps.PublicDir))
	}
	r.NoRoute(func(c *gin.Context) {
		if static == nil || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		static.ServeHTTP(c.Writer, c.Request)
	})
}
