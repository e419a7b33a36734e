package server

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/abhisek/tutorly/internal/conversation"
	"github.com/abhisek/tutorly/internal/gateway"
	"github.com/abhisek/tutorly/internal/model"
)

// tutorRequest is a learner message sent over the tutor socket.
type tutorRequest struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// tutorEvent is pushed to the client. Type is "update" while the reply
// streams, then "done" or "error".
type tutorEvent struct {
	Type    string             `json:"type"`
	Text    string             `json:"text,omitempty"`
	Message *model.ChatMessage `json:"message,omitempty"`
	Outcome string             `json:"outcome,omitempty"`
	Code    string             `json:"code,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// wsConn serializes writes; gorilla connections allow one writer at a time.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(ev tutorEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(ev); err != nil {
		logError("websocket write: %v", err)
	}
}

// tutorStream runs one subject's chat over a WebSocket. Each inbound
// message starts an exchange; closing the socket cancels the one in
// flight.
func (s *Server) tutorStream(w http.ResponseWriter, r *http.Request, userID string) {
	subject := model.ParseSubject(mux.Vars(r)["subject"])
	u := s.session(r.Context(), userID)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logError("websocket upgrade: %v", err)
		return
	}
	ws := &wsConn{conn: conn}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	var lastMu sync.Mutex
	last := ""
	unsubscribe := u.chat.Subscribe(func(sub model.Subject, history []model.ChatMessage) {
		if sub != subject || len(history) == 0 {
			return
		}
		msg := history[len(history)-1]
		if msg.Role != model.RoleModel || msg.Text == "" {
			return
		}
		text := gateway.VisibleText(msg.Text)
		lastMu.Lock()
		changed := text != last
		last = text
		lastMu.Unlock()
		if changed && u.chat.State(sub) == conversation.StateStreaming {
			ws.send(tutorEvent{Type: "update", Text: text})
		}
	})
	defer unsubscribe()

	var wg sync.WaitGroup
	for {
		var req tutorRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logInfo("tutor socket %s/%s closed: %v", userID, subject, err)
			}
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runExchange(ctx, ws, u.chat, subject, req, func() {
				lastMu.Lock()
				last = ""
				lastMu.Unlock()
			})
		}()
	}
	cancel()
	wg.Wait()
}

func (s *Server) runExchange(ctx context.Context, ws *wsConn, chat *conversation.Controller, subject model.Subject, req tutorRequest, resetLast func()) {
	resetLast()
	reply, err := chat.Send(ctx, subject, req.Text, req.Image)
	switch {
	case errors.Is(err, conversation.ErrEmptyMessage):
		ws.send(tutorEvent{Type: "error", Code: "empty", Error: "message is empty"})
		return
	case errors.Is(err, conversation.ErrBusy):
		ws.send(tutorEvent{Type: "error", Code: "busy", Error: "a reply is still streaming"})
		return
	case err != nil:
		ws.send(tutorEvent{Type: "error", Code: "internal", Error: err.Error()})
		return
	}
	if reply.Outcome == gateway.Canceled && ctx.Err() != nil {
		return
	}
	msg := reply.Message
	ws.send(tutorEvent{Type: "done", Message: &msg, Outcome: reply.Outcome.String()})
}
