package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lumachat/chatrelay/internal/auth"
	"github.com/lumachat/chatrelay/internal/event"
	"github.com/lumachat/chatrelay/internal/producer"
	"github.com/lumachat/chatrelay/internal/realtime"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxFrameSize   = 4096
	frameTimeout   = 10 * time.Second
	closeGraceWait = time.Second
)

// WebSocketServer is the realtime channel surface: it gates inbound
// connections on their credential token, admits them to the registry and
// runs each connection's receive loop until the transport dies.
type WebSocketServer struct {
	logger    *zap.Logger
	upgrader  *websocket.Upgrader
	verifier  *auth.Verifier
	registry  *realtime.Registry
	producers *producer.Producers
}

func NewWebSocketServer(
	logger *zap.Logger,
	upgrader *websocket.Upgrader,
	verifier *auth.Verifier,
	registry *realtime.Registry,
	producers *producer.Producers,
) *WebSocketServer {
	return &WebSocketServer{
		logger,
		upgrader,
		verifier,
		registry,
		producers,
	}
}

func (s *WebSocketServer) Register(router *mux.Router) {
	router.HandleFunc("/realtime/{token}", s.handleConnection)
}

func (s *WebSocketServer) handleConnection(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	// Session gate: the connection only exists as a registry entry after
	// the token verifies. A rejected transport is closed with a policy
	// violation and leaves no state behind.
	identity, err := s.verifier.Verify(token)
	if err != nil {
		s.logger.Warn("rejected realtime connection", zap.Error(err))
		_ = wsConn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"),
			time.Now().Add(closeGraceWait),
		)
		_ = wsConn.Close()
		return
	}

	conn := realtime.NewConn(identity.UserID, newWebSocketTransport(wsConn))
	logger := s.logger.With(
		zap.String("userId", identity.UserID),
		zap.String("connId", conn.ID()),
	)

	s.registry.Register(conn)
	logger.Info("realtime connection established")

	done := make(chan struct{})
	go s.pingLoop(wsConn, done)

	s.readLoop(wsConn, conn, identity, logger)

	close(done)
	_ = conn.Close()
	s.registry.Unregister(conn)
	logger.Info("realtime connection closed")
}

// readLoop drains inbound frames and routes each to its producer. It
// returns when the transport errors or the peer closes; every exit path
// ends in eviction.
func (s *WebSocketServer) readLoop(wsConn *websocket.Conn, conn *realtime.Conn, identity auth.Identity, logger *zap.Logger) {
	wsConn.SetReadLimit(maxFrameSize)
	_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := wsConn.ReadMessage()
		if err != nil {
			if !isExpectedClose(err) {
				logger.Warn("read failed", zap.Error(err))
			}
			return
		}

		s.routeFrame(raw, identity, logger)
	}
}

// routeFrame decodes one inbound frame and invokes the matching producer.
// Frame-level failures never terminate the connection: malformed or
// unknown frames are dropped with a log entry, and producer errors
// (authorization included) are swallowed because the protocol carries no
// error or ack frames back to the client.
func (s *WebSocketServer) routeFrame(raw []byte, identity auth.Identity, logger *zap.Logger) {
	frame, err := event.DecodeFrame(raw)
	if err != nil {
		logger.Warn("dropping malformed frame", zap.Error(err))
		return
	}
	if !frame.Known {
		logger.Warn("dropping frame with unknown kind", zap.String("kind", string(frame.Kind)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	switch frame.Kind {
	case event.KindSendMessage:
		_, err = s.producers.SendMessage(ctx,
			identity.UserID,
			frame.SendMessage.ChatID,
			frame.SendMessage.Content,
			frame.SendMessage.MessageType)
	case event.KindTyping:
		err = s.producers.Typing(ctx,
			identity.UserID,
			frame.Typing.ChatID,
			frame.Typing.IsTyping)
	case event.KindMarkRead:
		err = s.producers.MarkRead(ctx,
			identity.UserID,
			frame.MarkRead.ChatID)
	}

	if err != nil {
		logger.Info("dropped inbound frame",
			zap.String("kind", string(frame.Kind)),
			zap.Error(err))
	}
}

func (s *WebSocketServer) pingLoop(wsConn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			err := wsConn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			if err != nil {
				return
			}
		}
	}
}

func isExpectedClose(err error) bool {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseNoStatusReceived) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}

// webSocketTransport adapts a gorilla connection to the realtime send
// primitive. Data writes are serialized by the owning Conn; control
// frames from the ping loop are safe concurrently per gorilla's rules.
type webSocketTransport struct {
	conn *websocket.Conn
}

func newWebSocketTransport(conn *websocket.Conn) webSocketTransport {
	return webSocketTransport{conn}
}

func (t webSocketTransport) Send(payload []byte) error {
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.TextMessage, payload)
}

func (t webSocketTransport) Close() error {
	return t.conn.Close()
}
