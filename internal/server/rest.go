package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/lumachat/chatrelay/internal/auth"
	"github.com/lumachat/chatrelay/internal/chat"
	"github.com/lumachat/chatrelay/internal/ierr"
	"github.com/lumachat/chatrelay/internal/producer"
	"github.com/lumachat/chatrelay/internal/realtime"
)

// RESTServer exposes the message mutations over HTTP. The handlers call
// the same producers as the socket router, so a REST-originated mutation
// produces the same realtime notifications as a socket-originated one.
type RESTServer struct {
	logger    *zap.Logger
	verifier  *auth.Verifier
	producers *producer.Producers
	registry  *realtime.Registry
}

func NewRESTServer(
	logger *zap.Logger,
	verifier *auth.Verifier,
	producers *producer.Producers,
	registry *realtime.Registry,
) *RESTServer {
	return &RESTServer{
		logger,
		verifier,
		producers,
		registry,
	}
}

func (s *RESTServer) Register(router *mux.Router) {
	router.HandleFunc("/messages", s.requireAuth(s.handleSendMessage)).Methods("POST")
	router.HandleFunc("/messages/{id}", s.requireAuth(s.handleEditMessage)).Methods("PUT")
	router.HandleFunc("/messages/{id}", s.requireAuth(s.handleDeleteMessage)).Methods("DELETE")
	router.HandleFunc("/realtime/stats", s.handleStats).Methods("GET")
}

type authedHandler func(w http.ResponseWriter, r *http.Request, identity auth.Identity)

func (s *RESTServer) requireAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeError(w, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("missing bearer token")))
			return
		}

		identity, err := s.verifier.Verify(token)
		if err != nil {
			s.writeError(w, err)
			return
		}

		next(w, r, identity)
	}
}

type sendMessageRequest struct {
	ChatID      string `json:"chat_id"`
	Content     string `json:"content"`
	MessageType string `json:"message_type,omitempty"`
}

type editMessageRequest struct {
	Content string `json:"content"`
}

type messageResponse struct {
	ID          string     `json:"id"`
	ChatID      string     `json:"chat_id"`
	SenderID    string     `json:"sender_id"`
	SenderName  string     `json:"sender_name,omitempty"`
	Content     string     `json:"content"`
	MessageType string     `json:"message_type"`
	IsEdited    bool       `json:"is_edited"`
	EditedAt    *time.Time `json:"edited_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newMessageResponse(m chat.Message) messageResponse {
	return messageResponse{
		ID:          m.ID,
		ChatID:      m.ChatID,
		SenderID:    m.SenderID,
		SenderName:  m.SenderName,
		Content:     m.Content,
		MessageType: m.Type,
		IsEdited:    m.IsEdited,
		EditedAt:    m.EditedAt,
		CreatedAt:   m.CreatedAt,
	}
}

func (s *RESTServer) handleSendMessage(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid request body")))
		return
	}

	message, err := s.producers.SendMessage(r.Context(), identity.UserID, req.ChatID, req.Content, req.MessageType)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, newMessageResponse(message))
}

func (s *RESTServer) handleEditMessage(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	messageID := mux.Vars(r)["id"]

	var req editMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid request body")))
		return
	}

	message, err := s.producers.EditMessage(r.Context(), identity.UserID, messageID, req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, newMessageResponse(message))
}

func (s *RESTServer) handleDeleteMessage(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	messageID := mux.Vars(r)["id"]

	if err := s.producers.DeleteMessage(r.Context(), identity.UserID, messageID); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"message": "message deleted"})
}

type statsResponse struct {
	OnlineCount   int      `json:"online_count"`
	OnlineUserIDs []string `json:"online_user_ids"`
}

// handleStats is the diagnostic view of the registry for operational
// tooling; it is intentionally unauthenticated like a health endpoint.
func (s *RESTServer) handleStats(w http.ResponseWriter, r *http.Request) {
	ids := s.registry.OnlineUserIDs()

	s.writeJSON(w, http.StatusOK, statsResponse{
		OnlineCount:   len(ids),
		OnlineUserIDs: ids,
	})
}

func (s *RESTServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *RESTServer) writeError(w http.ResponseWriter, err error) {
	var coded ierr.Error
	if !errors.As(err, &coded) {
		s.logger.Error("unexpected handler error", zap.Error(err))
		coded = ierr.New(ierr.ErrorCodeInternal, errors.New("internal error"))
	}

	status := http.StatusInternalServerError
	switch coded.Code {
	case ierr.ErrorCodeInvalidArgument:
		status = http.StatusBadRequest
	case ierr.ErrorCodeUnauthenticated:
		status = http.StatusUnauthorized
	case ierr.ErrorCodePermissionDenied:
		status = http.StatusForbidden
	case ierr.ErrorCodeNotFound:
		status = http.StatusNotFound
	case ierr.ErrorCodeFailedPrecondition:
		status = http.StatusConflict
	}

	s.writeJSON(w, status, coded)
}
