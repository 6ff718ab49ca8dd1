package websocket

import (
	"encoding/json"
	"net/http"
	"sync"

	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type Conn struct {
	*ws.Conn
	*sync.Mutex
	// Decoded text messages, closed when the connection ends
	TextMessage chan *ServiceMessage

	logger zerolog.Logger
}

var (
	upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
)

// WriteJSON serializes concurrent writers; gorilla connections allow only
// one writer at a time.
func (c *Conn) WriteJSON(v any) error {
	c.Lock()
	err := c.Conn.WriteJSON(v)
	c.Unlock()

	if err != nil {
		c.logger.Warn().Err(err).Msg("websocket write failed")
	}
	return err
}

// NewConn upgrades the request and initializes the message channel
func NewConn(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (*Conn, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return nil, err
	}

	result := &Conn{
		Conn:        conn,
		Mutex:       new(sync.Mutex),
		TextMessage: make(chan *ServiceMessage, 10),
		logger:      logger,
	}

	return result, nil
}

// StartDispatch reads messages until the connection fails. Binary frames
// are not part of the protocol and are dropped.
func (c *Conn) StartDispatch() error {
	defer close(c.TextMessage)

	for {
		msgType, data, err := c.ReadMessage()
		if err != nil {
			return err
		}

		if msgType != ws.TextMessage {
			c.logger.Debug().Int("type", msgType).Msg("ignoring non-text message")
			continue
		}

		var msg ServiceMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn().Err(err).Msg("error unmarshalling message")
			continue
		}
		c.TextMessage <- &msg
	}
}
