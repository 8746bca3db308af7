// Package ws pushes transcript updates to chat clients over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/xiaot623/pairtalk/internal/config"
	"github.com/xiaot623/pairtalk/internal/domain"
	"github.com/xiaot623/pairtalk/internal/hub"
	"github.com/xiaot623/pairtalk/internal/protocol"
	"github.com/xiaot623/pairtalk/internal/service"
)

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	service  *service.Service
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, svc *service.Service) *Server {
	return &Server{
		cfg:     cfg,
		service: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Classroom deployments serve clients from arbitrary hosts.
				return true
			},
		},
	}
}

// connection is one client socket. Writes go through send and are performed
// by writePump only.
type connection struct {
	id      string
	ws      *websocket.Conn
	send    chan []byte
	done    chan struct{} // closed when readPump exits
	stopped chan struct{} // closed when writePump exits
	limiter *rate.Limiter

	mu        sync.Mutex
	sessionID string
}

func (c *connection) session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Errorf("failed to upgrade websocket: %v", err)
		return err
	}
	ws.SetReadLimit(s.cfg.MaxMessageSize)

	perSec := s.cfg.WSMessagesPerSec
	if perSec <= 0 {
		perSec = 5
	}
	conn := &connection{
		id:      uuid.New().String(),
		ws:      ws,
		send:    make(chan []byte, 64),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(perSec), int(math.Max(1, math.Ceil(perSec)))),
	}
	log.Debugf("connection opened: %s", conn.id)

	go s.writePump(conn)
	go s.readPump(conn)
	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(conn *connection) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		close(conn.done)
		conn.ws.Close()
		if id := conn.session(); id != "" {
			_ = s.service.CloseSession(id)
		}
		log.Debugf("connection closed: %s", conn.id)
	}()

	conn.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout()))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout()))
		return nil
	})

	for {
		_, message, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warnf("websocket error: %v", err)
			}
			return
		}
		if !conn.limiter.Allow() {
			s.sendError(conn, "", protocol.ErrorCodeRateLimited, "too many messages")
			continue
		}
		s.handleMessage(ctx, conn, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *connection) {
	ticker := time.NewTicker(s.cfg.PingInterval())
	defer func() {
		ticker.Stop()
		close(conn.stopped)
		conn.ws.Close()
	}()

	for {
		select {
		case <-conn.done:
			conn.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout()))
			conn.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-conn.send:
			conn.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout()))
			if err := conn.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warnf("failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			conn.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout()))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (s *Server) handleMessage(ctx context.Context, conn *connection, data []byte) {
	var base protocol.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch base.Type {
	case protocol.TypeJoin:
		s.handleJoin(ctx, conn, data)
	case protocol.TypeSend:
		s.handleSend(ctx, conn, data)
	case protocol.TypeRender:
		if conn.session() == "" {
			s.sendError(conn, base.RequestID, protocol.ErrorCodeSessionRequired, "must join first")
			return
		}
		s.pushTranscript(ctx, conn, base.RequestID)
	default:
		s.sendError(conn, base.RequestID, protocol.ErrorCodeInvalidMessage, "unknown message type: "+base.Type)
	}
}

// handleJoin opens a chat session and starts pushing transcript updates.
func (s *Server) handleJoin(ctx context.Context, conn *connection, data []byte) {
	var msg protocol.JoinMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid join message")
		return
	}
	if conn.session() != "" {
		s.sendError(conn, msg.RequestID, protocol.ErrorCodeInvalidMessage, "already joined")
		return
	}

	session, err := s.service.OpenSession(ctx, msg.Name)
	if err != nil {
		s.sendServiceError(conn, msg.RequestID, err)
		return
	}
	conn.mu.Lock()
	conn.sessionID = session.SessionID
	conn.mu.Unlock()

	// Subscribe before the first render so no update falls in between.
	sub := s.service.Hub().Subscribe(session.Pair.Key())

	s.sendJSON(conn, protocol.JoinedMessage{
		BaseMessage: s.base(protocol.TypeJoined, msg.RequestID, session.SessionID),
		Participant: session.Participant,
		Partner:     session.Partner,
		PairName:    session.Pair.Name(),
		Topic:       session.Topic,
	})
	s.pushTranscript(ctx, conn, msg.RequestID)
	go s.follow(ctx, conn, sub)

	log.Infof("websocket %s joined as %s", conn.id, session.Participant)
}

// handleSend appends a message. Subscribers, including this connection,
// receive the new transcript through the hub.
func (s *Server) handleSend(ctx context.Context, conn *connection, data []byte) {
	var msg protocol.SendMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid send message")
		return
	}
	sessionID := conn.session()
	if sessionID == "" {
		s.sendError(conn, msg.RequestID, protocol.ErrorCodeSessionRequired, "must join first")
		return
	}
	_, err := s.service.SendMessage(ctx, sessionID, msg.Text)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrMessageTooLong):
		// Discarded, but the chat goes on.
		s.sendJSON(conn, protocol.WarningMessage{
			BaseMessage: s.base(protocol.TypeWarning, msg.RequestID, sessionID),
			Code:        string(domain.WarningMessageTooLong),
			Message:     err.Error(),
		})
	default:
		s.sendServiceError(conn, msg.RequestID, err)
	}
}

// follow re-renders the transcript on every hub event for the session's pair
// and moves the subscription when a regeneration assigns a different pair.
func (s *Server) follow(ctx context.Context, conn *connection, sub *hub.Subscription) {
	h := s.service.Hub()
	for sub != nil {
		next, ok := s.forward(ctx, conn, sub)
		h.Unsubscribe(sub)
		if !ok {
			return
		}
		sub = h.Subscribe(next)
	}
}

// forward pushes a render for each event on sub. It returns the new pair key
// when the session has moved, or false when the connection or hub is gone.
func (s *Server) forward(ctx context.Context, conn *connection, sub *hub.Subscription) (string, bool) {
	for {
		select {
		case <-ctx.Done():
			return "", false
		case _, ok := <-sub.C:
			if !ok {
				return "", false
			}
			s.pushTranscript(ctx, conn, "")
			session, err := s.service.Session(conn.session())
			if err != nil {
				return "", false
			}
			if key := session.Pair.Key(); key != sub.Topic {
				return key, true
			}
		}
	}
}

// pushTranscript renders the session and sends the view plus its warnings.
func (s *Server) pushTranscript(ctx context.Context, conn *connection, requestID string) {
	sessionID := conn.session()
	view, err := s.service.Render(ctx, sessionID)
	if err != nil {
		s.sendServiceError(conn, requestID, err)
		return
	}
	s.sendJSON(conn, protocol.TranscriptMessage{
		BaseMessage: s.base(protocol.TypeTranscript, requestID, sessionID),
		View:        view,
	})
	for _, w := range view.Warnings {
		s.sendJSON(conn, protocol.WarningMessage{
			BaseMessage: s.base(protocol.TypeWarning, requestID, sessionID),
			Code:        string(w.Code),
			Message:     w.Message,
		})
	}
}

func (s *Server) base(typ, requestID, sessionID string) protocol.BaseMessage {
	return protocol.BaseMessage{
		Type:      typ,
		Ts:        time.Now().UnixMilli(),
		RequestID: requestID,
		SessionID: sessionID,
	}
}

// sendJSON queues v for writePump. Messages to a closing connection are dropped.
func (s *Server) sendJSON(conn *connection, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Errorf("encode message: %v", err)
		return
	}
	select {
	case conn.send <- data:
	case <-conn.done:
	case <-conn.stopped:
	}
}

func (s *Server) sendServiceError(conn *connection, requestID string, err error) {
	code := domain.ErrorCode(err)
	if code == "" {
		log.Errorf("websocket %s: %+v", conn.id, err)
		code = protocol.ErrorCodeInternalError
	}
	s.sendError(conn, requestID, code, err.Error())
}

// sendError sends an error message to a connection.
func (s *Server) sendError(conn *connection, requestID, code, message string) {
	s.sendJSON(conn, protocol.ErrorMessage{
		BaseMessage: s.base(protocol.TypeError, requestID, conn.session()),
		Code:        code,
		Message:     message,
	})
}
