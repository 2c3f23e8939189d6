package realtime

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lumachat/chatrelay/internal/chat"
	"github.com/lumachat/chatrelay/internal/event"
)

// Tracker turns registry occupancy changes into user_status events and
// keeps the durable is_online/last_seen fields in step.
//
// The status event goes to every other online user, not to a chat-scoped
// set. That global scope is inherited source behavior: it costs O(online
// users) per connect/disconnect and shows presence to users who share no
// chat with the subject. Narrowing it to shared-chat members is the first
// thing to revisit when either of those starts to hurt.
type Tracker struct {
	logger     *zap.Logger
	registry   *Registry
	dispatcher *Dispatcher
	users      chat.UserStore
}

func NewTracker(
	logger *zap.Logger,
	registry *Registry,
	dispatcher *Dispatcher,
	users chat.UserStore,
) *Tracker {
	return &Tracker{
		logger:     logger,
		registry:   registry,
		dispatcher: dispatcher,
		users:      users,
	}
}

// Track installs the tracker as the registry's transition hook.
func (t *Tracker) Track() {
	t.registry.OnTransition(t.handleTransition)
}

func (t *Tracker) handleTransition(userID string, online bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// The durable flag is advisory; the broadcast reflects registry
	// occupancy and goes out even if the write fails.
	if err := t.users.SetOnline(ctx, userID, online); err != nil {
		t.logger.Warn("failed to persist online status",
			zap.String("userId", userID),
			zap.Bool("online", online),
			zap.Error(err))
	}

	peers := t.registry.OnlineUserIDs()
	recipients := make([]string, 0, len(peers))
	for _, peer := range peers {
		if peer != userID {
			recipients = append(recipients, peer)
		}
	}

	if len(recipients) == 0 {
		return
	}

	t.dispatcher.Deliver(event.UserStatus(userID, online), recipients)
}
