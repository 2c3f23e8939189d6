package chat

import "time"

// User is the durable user record. IsOnline and LastSeen are the durable
// view of presence; the realtime registry is the live one.
type User struct {
	ID        string
	Username  string
	Name      string
	AvatarURL string
	IsOnline  bool
	LastSeen  time.Time
}

type Chat struct {
	ID             string
	Name           string
	IsGroup        bool
	AvatarURL      string
	ParticipantIDs []string
	CreatedAt      time.Time
}

type Message struct {
	ID         string
	ChatID     string
	SenderID   string
	SenderName string
	Content    string
	Type       string
	FileURL    string
	IsEdited   bool
	EditedAt   *time.Time
	CreatedAt  time.Time
}

const DefaultMessageType = "text"
