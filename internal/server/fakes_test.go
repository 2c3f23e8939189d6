package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lumachat/chatrelay/internal/chat"
)

type memUserStore struct {
	mu    sync.Mutex
	users map[string]chat.User
}

func newMemUserStore(users ...chat.User) *memUserStore {
	store := &memUserStore{users: make(map[string]chat.User)}
	for _, user := range users {
		store.users[user.ID] = user
	}
	return store
}

func (s *memUserStore) Get(ctx context.Context, userID string) (chat.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return chat.User{}, errors.New("user not found")
	}
	return user, nil
}

func (s *memUserStore) SetOnline(ctx context.Context, userID string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.users[userID]
	user.ID = userID
	user.IsOnline = online
	s.users[userID] = user
	return nil
}

type memChatStore struct {
	members map[string][]string
}

func (s *memChatStore) MemberIDs(ctx context.Context, chatID string) ([]string, error) {
	return s.members[chatID], nil
}

func (s *memChatStore) IsMember(ctx context.Context, chatID string, userID string) (bool, error) {
	for _, id := range s.members[chatID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

type memMessageStore struct {
	mu       sync.Mutex
	seq      int
	messages map[string]chat.Message
}

func newMemMessageStore() *memMessageStore {
	return &memMessageStore{messages: make(map[string]chat.Message)}
}

func (s *memMessageStore) Create(ctx context.Context, req chat.CreateMessage) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	message := chat.Message{
		ID:        fmt.Sprintf("msg-%d", s.seq),
		ChatID:    req.ChatID,
		SenderID:  req.SenderID,
		Content:   req.Content,
		Type:      req.Type,
		CreatedAt: time.Now(),
	}
	s.messages[message.ID] = message
	return message, nil
}

func (s *memMessageStore) Get(ctx context.Context, messageID string) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	message, ok := s.messages[messageID]
	if !ok {
		return chat.Message{}, errors.New("message not found")
	}
	return message, nil
}

func (s *memMessageStore) Edit(ctx context.Context, messageID string, content string) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	message, ok := s.messages[messageID]
	if !ok {
		return chat.Message{}, errors.New("message not found")
	}

	now := time.Now()
	message.Content = content
	message.IsEdited = true
	message.EditedAt = &now
	s.messages[messageID] = message
	return message, nil
}

func (s *memMessageStore) Delete(ctx context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[messageID]; !ok {
		return errors.New("message not found")
	}
	delete(s.messages, messageID)
	return nil
}

func (s *memMessageStore) MarkRead(ctx context.Context, chatID string, userID string) error {
	return nil
}

func (s *memMessageStore) countByChat(chatID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, message := range s.messages {
		if message.ChatID == chatID {
			count++
		}
	}
	return count
}
