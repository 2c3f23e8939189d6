// Package producer holds the domain event producers: one function per
// event kind, each performing the same fixed sequence: membership check,
// durable mutation, recipient snapshot, dispatch. Both the socket router
// and the REST surface call these functions, so a realtime notification
// can never be bypassed by one surface and not the other, and an event is
// only ever dispatched for a mutation that durably committed.
package producer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/lumachat/chatrelay/internal/chat"
	"github.com/lumachat/chatrelay/internal/event"
	"github.com/lumachat/chatrelay/internal/ierr"
)

type Dispatcher interface {
	Deliver(evt any, recipientIDs []string)
}

type Producers struct {
	logger     *zap.Logger
	chats      chat.ChatStore
	messages   chat.MessageStore
	users      chat.UserStore
	dispatcher Dispatcher
}

func New(
	logger *zap.Logger,
	chats chat.ChatStore,
	messages chat.MessageStore,
	users chat.UserStore,
	dispatcher Dispatcher,
) *Producers {
	return &Producers{
		logger:     logger,
		chats:      chats,
		messages:   messages,
		users:      users,
		dispatcher: dispatcher,
	}
}

func (p *Producers) requireMembership(ctx context.Context, chatID, userID string) error {
	member, err := p.chats.IsMember(ctx, chatID, userID)
	if err != nil {
		return ierr.New(ierr.ErrorCodeInternal, err)
	}
	if !member {
		return ierr.New(ierr.ErrorCodePermissionDenied, errors.New("not a participant of this chat"))
	}
	return nil
}

// recipients fetches the chat's current member ids, the snapshot that
// becomes the event's recipient set. Members joining after this point do
// not receive the event; a member removed concurrently still may.
func (p *Producers) recipients(ctx context.Context, chatID string, excludeUserID string) ([]string, bool) {
	members, err := p.chats.MemberIDs(ctx, chatID)
	if err != nil {
		// The mutation already committed; the recipients simply miss the
		// realtime event and resynchronize through the store.
		p.logger.Warn("failed to snapshot chat members, skipping fan-out",
			zap.String("chatId", chatID),
			zap.Error(err))
		return nil, false
	}

	if excludeUserID == "" {
		return members, true
	}

	// Filter into a fresh slice; the store may hand out a shared one.
	recipients := make([]string, 0, len(members))
	for _, id := range members {
		if id != excludeUserID {
			recipients = append(recipients, id)
		}
	}
	return recipients, true
}

func (p *Producers) SendMessage(ctx context.Context, actorID, chatID, content, messageType string) (chat.Message, error) {
	if err := p.requireMembership(ctx, chatID, actorID); err != nil {
		return chat.Message{}, err
	}

	if messageType == "" {
		messageType = chat.DefaultMessageType
	}

	message, err := p.messages.Create(ctx, chat.CreateMessage{
		ChatID:   chatID,
		SenderID: actorID,
		Content:  content,
		Type:     messageType,
	})
	if err != nil {
		return chat.Message{}, ierr.New(ierr.ErrorCodeInternal, err)
	}

	if recipients, ok := p.recipients(ctx, chatID, actorID); ok {
		p.dispatcher.Deliver(event.NewMessage(message), recipients)
	}

	return message, nil
}

func (p *Producers) EditMessage(ctx context.Context, actorID, messageID, content string) (chat.Message, error) {
	message, err := p.messages.Get(ctx, messageID)
	if err != nil {
		return chat.Message{}, ierr.New(ierr.ErrorCodeNotFound, errors.New("message not found"))
	}
	if message.SenderID != actorID {
		return chat.Message{}, ierr.New(ierr.ErrorCodePermissionDenied, errors.New("can only edit your own messages"))
	}

	updated, err := p.messages.Edit(ctx, messageID, content)
	if err != nil {
		return chat.Message{}, ierr.New(ierr.ErrorCodeInternal, err)
	}

	// Edits reach every member including the actor, so the actor's other
	// devices converge too.
	if recipients, ok := p.recipients(ctx, updated.ChatID, ""); ok {
		p.dispatcher.Deliver(event.MessageEdited(updated), recipients)
	}

	return updated, nil
}

func (p *Producers) DeleteMessage(ctx context.Context, actorID, messageID string) error {
	message, err := p.messages.Get(ctx, messageID)
	if err != nil {
		return ierr.New(ierr.ErrorCodeNotFound, errors.New("message not found"))
	}
	if message.SenderID != actorID {
		return ierr.New(ierr.ErrorCodePermissionDenied, errors.New("can only delete your own messages"))
	}

	if err := p.messages.Delete(ctx, messageID); err != nil {
		return ierr.New(ierr.ErrorCodeInternal, err)
	}

	if recipients, ok := p.recipients(ctx, message.ChatID, ""); ok {
		p.dispatcher.Deliver(event.MessageDeleted(message.ID, message.ChatID), recipients)
	}

	return nil
}

// Typing has no durable mutation; it is membership check plus fan-out.
func (p *Producers) Typing(ctx context.Context, actorID, chatID string, isTyping bool) error {
	if err := p.requireMembership(ctx, chatID, actorID); err != nil {
		return err
	}

	actorName := actorID
	if user, err := p.users.Get(ctx, actorID); err == nil {
		actorName = user.Name
	}

	if recipients, ok := p.recipients(ctx, chatID, actorID); ok {
		p.dispatcher.Deliver(event.Typing(chatID, actorID, actorName, isTyping), recipients)
	}

	return nil
}

func (p *Producers) MarkRead(ctx context.Context, actorID, chatID string) error {
	if err := p.requireMembership(ctx, chatID, actorID); err != nil {
		return err
	}

	if err := p.messages.MarkRead(ctx, chatID, actorID); err != nil {
		return ierr.New(ierr.ErrorCodeInternal, err)
	}

	if recipients, ok := p.recipients(ctx, chatID, actorID); ok {
		p.dispatcher.Deliver(event.MessageRead(chatID, actorID), recipients)
	}

	return nil
}
