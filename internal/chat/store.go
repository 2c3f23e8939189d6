package chat

import "context"

// The realtime core consumes the durable store only through these ports.
// Implementations own transactions and unread bookkeeping.

type UserStore interface {
	Get(ctx context.Context, userID string) (User, error)
	SetOnline(ctx context.Context, userID string, online bool) error
}

type ChatStore interface {
	// MemberIDs returns the chat's current participant ids, the snapshot
	// producers use as a recipient set.
	MemberIDs(ctx context.Context, chatID string) ([]string, error)
	IsMember(ctx context.Context, chatID string, userID string) (bool, error)
}

type CreateMessage struct {
	ChatID   string
	SenderID string
	Content  string
	Type     string
}

type MessageStore interface {
	Create(ctx context.Context, req CreateMessage) (Message, error)
	Get(ctx context.Context, messageID string) (Message, error)
	Edit(ctx context.Context, messageID string, content string) (Message, error)
	Delete(ctx context.Context, messageID string) error
	// MarkRead resets the reader's unread counter for the chat.
	MarkRead(ctx context.Context, chatID string, userID string) error
}
