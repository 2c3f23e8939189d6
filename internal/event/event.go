// Package event defines the closed set of event kinds exchanged over the
// realtime channel: the inbound frames clients send and the outbound
// events the dispatcher fans out. Frames are decoded once, here, into a
// tagged variant; nothing outside this package inspects raw type tags.
package event

import (
	"time"

	"github.com/lumachat/chatrelay/internal/chat"
)

type Kind string

const (
	// Inbound (client -> server).
	KindSendMessage Kind = "send_message"
	KindMarkRead    Kind = "mark_read"

	// Outbound (server -> client).
	KindNewMessage     Kind = "new_message"
	KindMessageEdited  Kind = "message_edited"
	KindMessageDeleted Kind = "message_deleted"
	KindMessageRead    Kind = "message_read"
	KindUserStatus     Kind = "user_status"

	// Both directions.
	KindTyping Kind = "typing"
)

type NewMessageEvent struct {
	Type        Kind      `json:"type"`
	MessageID   string    `json:"message_id"`
	ChatID      string    `json:"chat_id"`
	SenderID    string    `json:"sender_id"`
	SenderName  string    `json:"sender_name"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	IsEdited    bool      `json:"is_edited"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewMessage(m chat.Message) NewMessageEvent {
	return NewMessageEvent{
		Type:        KindNewMessage,
		MessageID:   m.ID,
		ChatID:      m.ChatID,
		SenderID:    m.SenderID,
		SenderName:  m.SenderName,
		Content:     m.Content,
		MessageType: m.Type,
		IsEdited:    m.IsEdited,
		CreatedAt:   m.CreatedAt,
	}
}

type MessageEditedEvent struct {
	Type      Kind       `json:"type"`
	MessageID string     `json:"message_id"`
	ChatID    string     `json:"chat_id"`
	Content   string     `json:"content"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
}

func MessageEdited(m chat.Message) MessageEditedEvent {
	return MessageEditedEvent{
		Type:      KindMessageEdited,
		MessageID: m.ID,
		ChatID:    m.ChatID,
		Content:   m.Content,
		EditedAt:  m.EditedAt,
	}
}

type MessageDeletedEvent struct {
	Type      Kind   `json:"type"`
	MessageID string `json:"message_id"`
	ChatID    string `json:"chat_id"`
}

func MessageDeleted(messageID, chatID string) MessageDeletedEvent {
	return MessageDeletedEvent{
		Type:      KindMessageDeleted,
		MessageID: messageID,
		ChatID:    chatID,
	}
}

type TypingEvent struct {
	Type     Kind   `json:"type"`
	ChatID   string `json:"chat_id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	IsTyping bool   `json:"is_typing"`
}

func Typing(chatID, userID, userName string, isTyping bool) TypingEvent {
	return TypingEvent{
		Type:     KindTyping,
		ChatID:   chatID,
		UserID:   userID,
		UserName: userName,
		IsTyping: isTyping,
	}
}

type MessageReadEvent struct {
	Type   Kind   `json:"type"`
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
}

func MessageRead(chatID, userID string) MessageReadEvent {
	return MessageReadEvent{
		Type:   KindMessageRead,
		ChatID: chatID,
		UserID: userID,
	}
}

type UserStatusEvent struct {
	Type     Kind   `json:"type"`
	UserID   string `json:"user_id"`
	IsOnline bool   `json:"is_online"`
}

func UserStatus(userID string, isOnline bool) UserStatusEvent {
	return UserStatusEvent{
		Type:     KindUserStatus,
		UserID:   userID,
		IsOnline: isOnline,
	}
}
