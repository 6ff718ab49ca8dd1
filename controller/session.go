package controller

import (
	"github.com/gin-gonic/gin"

	"webdesk/service/fs"
	"webdesk/utils"
	"webdesk/websocket"
	wsfs "webdesk/websocket/service/fs"
	"webdesk/websocket/service/heartbeat"
)

type SessionController struct {
	fs  *fs.FSService
	hub *websocket.Hub
}

func NewSessionController(fsService *fs.FSService, hub *websocket.Hub) *SessionController {
	return &SessionController{fs: fsService, hub: hub}
}

// Start upgrades the request and blocks until the session ends. A failed
// upgrade has already been answered by the upgrader.
func (sc *SessionController) Start(c *gin.Context) {
	active := []websocket.Service{wsfs.NewService(sc.fs, utils.GetLogger("ws"))}
	passive := []websocket.Service{heartbeat.NewService()}

	if err := sc.hub.Serve(c.Writer, c.Request, active, passive); err != nil {
		c.Error(err)
	}
}
