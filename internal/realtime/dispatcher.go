package realtime

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Dispatcher fans one event out to the currently connected subset of an
// explicit recipient set. Delivery is best-effort and at-most-once per
// live connection: no retries, no acknowledgements, no queuing for
// offline recipients. The durable store is their fallback.
type Dispatcher struct {
	logger   *zap.Logger
	registry *Registry
}

func NewDispatcher(logger *zap.Logger, registry *Registry) *Dispatcher {
	return &Dispatcher{
		logger:   logger,
		registry: registry,
	}
}

// Deliver serializes the event once and sends it to every live
// connection of every recipient, independently. Duplicate recipient ids
// are collapsed. A failed send evicts that connection and moves on; it
// never aborts delivery to the remaining connections or recipients. The
// registry lock is not held during sends, so one stalled peer cannot
// block registry mutations.
func (d *Dispatcher) Deliver(evt any, recipientIDs []string) {
	payload, err := json.Marshal(evt)
	if err != nil {
		d.logger.Error("failed to encode event", zap.Error(err))
		return
	}

	seen := make(map[string]struct{}, len(recipientIDs))
	for _, userID := range recipientIDs {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		for _, conn := range d.registry.ConnectionsOf(userID) {
			if err := conn.Send(payload); err != nil {
				d.logger.Warn("send failed, evicting connection",
					zap.String("userId", userID),
					zap.String("connId", conn.ID()),
					zap.Error(err))

				_ = conn.Close()
				d.registry.Unregister(conn)
			}
		}
	}
}
