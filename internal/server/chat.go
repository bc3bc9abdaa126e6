package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ziadkadry99/courserag/internal/course"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type      string `json:"type"`       // "query" or "reset"
	SessionID string `json:"session_id"` // empty for new sessions
	Query     string `json:"query"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type       string          `json:"type"` // "answer", "reset" or "error"
	SessionID  string          `json:"session_id,omitempty"`
	Answer     string          `json:"answer,omitempty"`
	AnswerHTML string          `json:"answer_html,omitempty"`
	Sources    []course.Source `json:"sources,omitempty"`
	Detail     string          `json:"detail,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read", zap.Error(err))
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendError(conn, "", "invalid message format")
			continue
		}

		switch req.Type {
		case "query":
			s.handleChatQuery(conn, r, req)
		case "reset":
			s.handleChatReset(conn, r, req)
		default:
			s.sendError(conn, req.SessionID, "unknown message type: "+req.Type)
		}
	}
}

func (s *Server) handleChatQuery(conn *websocket.Conn, r *http.Request, req chatRequest) {
	if req.Query == "" {
		s.sendError(conn, req.SessionID, "query is required")
		return
	}

	ans, err := s.backend.Query(r.Context(), req.Query, req.SessionID)
	if err != nil {
		s.logger.Error("query failed", zap.Error(err))
		s.sendError(conn, req.SessionID, err.Error())
		return
	}

	s.send(conn, chatResponse{
		Type:       "answer",
		SessionID:  ans.SessionID,
		Answer:     ans.Answer,
		AnswerHTML: renderMarkdown(ans.Answer),
		Sources:    ans.Sources,
	})
}

func (s *Server) handleChatReset(conn *websocket.Conn, r *http.Request, req chatRequest) {
	if err := s.backend.ResetSession(r.Context(), req.SessionID); err != nil {
		s.sendError(conn, req.SessionID, err.Error())
		return
	}
	s.send(conn, chatResponse{Type: "reset", SessionID: req.SessionID})
}

func (s *Server) send(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		s.logger.Warn("websocket write", zap.Error(err))
	}
}

func (s *Server) sendError(conn *websocket.Conn, sessionID, detail string) {
	s.send(conn, chatResponse{Type: "error", SessionID: sessionID, Detail: detail})
}
