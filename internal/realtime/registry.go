package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// TransitionFunc observes a user going online (first connection) or
// offline (last connection removed). It is called outside the registry
// lock, so it may safely read the registry or dispatch events.
type TransitionFunc func(userID string, online bool)

// Registry is the process-wide table of user id -> live connections. It
// is the single source of truth for "who is online" within this instance
// and the only shared mutable state in the core. All operations take one
// coarse lock; they are O(connections of one user) except OnlineUserIDs.
type Registry struct {
	logger *zap.Logger

	mu    sync.RWMutex
	conns map[string]map[*Conn]struct{}

	onTransition TransitionFunc
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger: logger,
		conns:  make(map[string]map[*Conn]struct{}),
	}
}

// OnTransition installs the presence hook. Must be called before the
// registry starts receiving connections.
//
// Hooks run after the lock is released, so two transitions racing on the
// same user from different goroutines may observe their hooks in the
// opposite order (an offline before its paired online). Each transition
// still fires exactly once; the inversion is accepted because a status
// event is a snapshot claim, not an ordered stream, and the next
// transition corrects it.
func (r *Registry) OnTransition(fn TransitionFunc) {
	r.onTransition = fn
}

// Register adds a connection to its owner's set. Admission happens
// exactly once per transport, so double registration is a caller bug and
// is not defended against.
func (r *Registry) Register(conn *Conn) {
	r.mu.Lock()

	set := r.conns[conn.UserID()]
	cameOnline := set == nil
	if set == nil {
		set = make(map[*Conn]struct{})
		r.conns[conn.UserID()] = set
	}
	set[conn] = struct{}{}
	active := len(set)

	r.mu.Unlock()

	r.logger.Info("connection registered",
		zap.String("userId", conn.UserID()),
		zap.String("connId", conn.ID()),
		zap.Int("activeConnections", active))

	if cameOnline && r.onTransition != nil {
		r.onTransition(conn.UserID(), true)
	}
}

// Unregister removes a connection. It is a no-op if the connection is
// already gone: the read-loop teardown and dispatcher eviction can race
// on the same connection and both paths must be safe. The offline
// transition fires exactly once, when the owner's set empties and the
// key is deleted.
func (r *Registry) Unregister(conn *Conn) {
	r.mu.Lock()

	set, ok := r.conns[conn.UserID()]
	if !ok {
		r.mu.Unlock()
		return
	}
	if _, ok := set[conn]; !ok {
		r.mu.Unlock()
		return
	}

	delete(set, conn)
	wentOffline := len(set) == 0
	if wentOffline {
		delete(r.conns, conn.UserID())
	}

	r.mu.Unlock()

	r.logger.Info("connection unregistered",
		zap.String("userId", conn.UserID()),
		zap.String("connId", conn.ID()))

	if wentOffline && r.onTransition != nil {
		r.onTransition(conn.UserID(), false)
	}
}

// ConnectionsOf returns a snapshot of the user's live connections. The
// snapshot may go stale under concurrent disconnects; senders must treat
// a failed send as eviction, not as an error of their own.
func (r *Registry) ConnectionsOf(userID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.conns[userID]
	if len(set) == 0 {
		return nil
	}

	conns := make([]*Conn, 0, len(set))
	for conn := range set {
		conns = append(conns, conn)
	}

	return conns
}

func (r *Registry) OnlineUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.conns))
	for userID := range r.conns {
		ids = append(ids, userID)
	}

	return ids
}

func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}
