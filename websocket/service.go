package websocket

import (
	"encoding/json"
)

// MessageWriter is the part of a connection services reply through.
type MessageWriter interface {
	WriteJSON(v any) error
}

type Service interface {
	HandleTextMessage(id string, action string, data json.RawMessage)
	Name() string
	Cleanup(err error)
	Register(conn MessageWriter)
}

type ServiceMessage struct {
	Service string          `json:"service"`
	Id      string          `json:"id,omitempty"`
	Action  string          `json:"action,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// SessionObserver is notified when sessions open and close.
type SessionObserver interface {
	SessionOpened()
	SessionClosed()
}
