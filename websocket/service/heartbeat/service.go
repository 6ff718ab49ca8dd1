package heartbeat

import (
	"encoding/json"

	ws "webdesk/websocket"
)

// HeartbeatService echoes every message back. It is registered passively
// so heartbeats alone do not keep an idle session open.
type HeartbeatService struct {
	conn ws.MessageWriter
}

func (s *HeartbeatService) Register(conn ws.MessageWriter) {
	s.conn = conn
}

func (s *HeartbeatService) Name() string {
	return "heartbeat"
}

func (s *HeartbeatService) HandleTextMessage(id, action string, data json.RawMessage) {
	s.conn.WriteJSON(&ws.ServiceMessage{Service: s.Name(), Action: action, Id: id})
}

func (s *HeartbeatService) Cleanup(err error) {}

func NewService() ws.Service {
	return &HeartbeatService{}
}
