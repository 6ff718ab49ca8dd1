package fs

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"webdesk/service/fs"
	ws "webdesk/websocket"
)

// Message ids carry the relative path the action applies to.
const (
	actionList   = "list"
	actionMkdir  = "mkdir"
	actionRename = "rename"
	actionDelete = "delete"
)

type mkdirData struct {
	Name string `json:"name"`
}
type renameData struct {
	NewName string `json:"newName"`
}

type FSService struct {
	conn ws.MessageWriter

	FS     *fs.FSService
	logger zerolog.Logger
}

func NewService(fsService *fs.FSService, logger zerolog.Logger) *FSService {
	return &FSService{
		FS:     fsService,
		logger: logger,
	}
}

// Register implements websocket.Service.
func (s *FSService) Register(conn ws.MessageWriter) {
	s.conn = conn
}

func (s *FSService) Name() string {
	return "fs"
}

func (s *FSService) HandleTextMessage(id, action string, data json.RawMessage) {
	switch action {
	case actionList:
		go s.handleList(id)
	case actionMkdir:
		go s.handleMkdir(id, data)
	case actionRename:
		go s.handleRename(id, data)
	case actionDelete:
		go s.handleDelete(id)
	default:
		s.logger.Debug().Str("action", action).Msg("unknown fs action")
	}
}

func (s *FSService) Cleanup(err error) {}

func (s *FSService) handleList(id string) {
	listing, err := s.FS.List(id)
	if err != nil {
		s.handleError(id, actionList, err)
		return
	}

	r, err := json.Marshal(listing)
	if err != nil {
		s.logger.Error().Err(err).Msg("error marshalling list response")
		return
	}

	s.conn.WriteJSON(&ws.ServiceMessage{
		Service: s.Name(),
		Id:      id,
		Action:  actionList,
		Data:    r,
	})
}

func (s *FSService) handleMkdir(id string, data json.RawMessage) {
	var d mkdirData
	if err := json.Unmarshal(data, &d); err != nil {
		s.handleError(id, actionMkdir, err)
		return
	}

	if err := s.FS.CreateFolder(id, d.Name); err != nil {
		s.handleError(id, actionMkdir, err)
		return
	}

	s.reply(id, actionMkdir)
}

func (s *FSService) handleRename(id string, data json.RawMessage) {
	var d renameData
	if err := json.Unmarshal(data, &d); err != nil {
		s.handleError(id, actionRename, err)
		return
	}

	if err := s.FS.Rename(id, d.NewName); err != nil {
		s.handleError(id, actionRename, err)
		return
	}

	s.reply(id, actionRename)
}

func (s *FSService) handleDelete(id string) {
	if err := s.FS.Delete(id); err != nil {
		s.handleError(id, actionDelete, err)
		return
	}

	s.reply(id, actionDelete)
}

func (s *FSService) reply(id, action string) {
	s.conn.WriteJSON(&ws.ServiceMessage{
		Service: s.Name(),
		Id:      id,
		Action:  action,
	})
}

func (s *FSService) handleError(id, action string, err error) {
	s.logger.Debug().Err(err).Str("action", action).Str("path", id).Msg("fs action failed")

	s.conn.WriteJSON(&ws.ServiceMessage{
		Service: s.Name(),
		Id:      id,
		Action:  action,
		Error:   fs.Message(err),
	})
}
