package event

import (
	"encoding/json"
	"errors"
)

var ErrMalformedFrame = errors.New("malformed frame")

type SendMessageFrame struct {
	ChatID      string `json:"chat_id"`
	Content     string `json:"content"`
	MessageType string `json:"message_type,omitempty"`
}

type TypingFrame struct {
	ChatID   string `json:"chat_id"`
	IsTyping bool   `json:"is_typing"`
}

type MarkReadFrame struct {
	ChatID string `json:"chat_id"`
}

// Frame is an inbound message decoded into its variant. Exactly one of
// the payload fields is non-nil for a known kind; an unrecognized kind
// yields Known == false with the raw tag preserved for logging.
type Frame struct {
	Kind  Kind
	Known bool

	SendMessage *SendMessageFrame
	Typing      *TypingFrame
	MarkRead    *MarkReadFrame
}

func DecodeFrame(raw []byte) (Frame, error) {
	var envelope struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Frame{}, errors.Join(ErrMalformedFrame, err)
	}

	frame := Frame{Kind: envelope.Type, Known: true}

	switch envelope.Type {
	case KindSendMessage:
		payload := &SendMessageFrame{}
		if err := json.Unmarshal(raw, payload); err != nil {
			return Frame{}, errors.Join(ErrMalformedFrame, err)
		}
		frame.SendMessage = payload
	case KindTyping:
		payload := &TypingFrame{}
		if err := json.Unmarshal(raw, payload); err != nil {
			return Frame{}, errors.Join(ErrMalformedFrame, err)
		}
		frame.Typing = payload
	case KindMarkRead:
		payload := &MarkReadFrame{}
		if err := json.Unmarshal(raw, payload); err != nil {
			return Frame{}, errors.Join(ErrMalformedFrame, err)
		}
		frame.MarkRead = payload
	default:
		frame.Known = false
	}

	return frame, nil
}
