package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/lumachat/chatrelay/internal/chat"
)

type fakeTransport struct {
	mu        sync.Mutex
	sent      [][]byte
	failSends bool
	closed    bool
}

func (t *fakeTransport) Send(payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.failSends {
		return errors.New("broken pipe")
	}

	t.sent = append(t.sent, append([]byte(nil), payload...))
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	return nil
}

func (t *fakeTransport) sentCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.sent)
}

func (t *fakeTransport) decodeSent(i int, v any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return json.Unmarshal(t.sent[i], v)
}

type onlineCall struct {
	userID string
	online bool
}

type fakeUserStore struct {
	mu     sync.Mutex
	calls  []onlineCall
	setErr error
}

func (s *fakeUserStore) Get(ctx context.Context, userID string) (chat.User, error) {
	return chat.User{ID: userID, Name: userID}, nil
}

func (s *fakeUserStore) SetOnline(ctx context.Context, userID string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, onlineCall{userID, online})
	return s.setErr
}
