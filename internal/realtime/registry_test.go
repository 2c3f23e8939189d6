package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRegistry_RegisterAndUnregister(t *testing.T) {
	logger := zap.NewNop()

	t.Run("user is online after register and offline after last unregister", func(t *testing.T) {
		registry := NewRegistry(logger)

		conn := NewConn("alice", &fakeTransport{})
		registry.Register(conn)

		assert.Contains(t, registry.OnlineUserIDs(), "alice")
		assert.Equal(t, 1, registry.OnlineCount())

		registry.Unregister(conn)

		assert.NotContains(t, registry.OnlineUserIDs(), "alice")
		assert.Equal(t, 0, registry.OnlineCount())
		assert.Empty(t, registry.ConnectionsOf("alice"))
	})

	t.Run("closing one connection leaves the others registered", func(t *testing.T) {
		registry := NewRegistry(logger)

		first := NewConn("alice", &fakeTransport{})
		second := NewConn("alice", &fakeTransport{})
		third := NewConn("alice", &fakeTransport{})
		registry.Register(first)
		registry.Register(second)
		registry.Register(third)

		registry.Unregister(second)

		remaining := registry.ConnectionsOf("alice")
		assert.Len(t, remaining, 2)
		assert.Contains(t, remaining, first)
		assert.Contains(t, remaining, third)
		assert.Contains(t, registry.OnlineUserIDs(), "alice")
	})

	t.Run("double unregister is a no-op", func(t *testing.T) {
		registry := NewRegistry(logger)

		conn := NewConn("alice", &fakeTransport{})
		other := NewConn("alice", &fakeTransport{})
		registry.Register(conn)
		registry.Register(other)

		registry.Unregister(conn)
		registry.Unregister(conn)

		assert.Len(t, registry.ConnectionsOf("alice"), 1)
		assert.Contains(t, registry.OnlineUserIDs(), "alice")
	})

	t.Run("unregister of unknown connection is a no-op", func(t *testing.T) {
		registry := NewRegistry(logger)

		registry.Unregister(NewConn("ghost", &fakeTransport{}))

		assert.Equal(t, 0, registry.OnlineCount())
	})
}

func TestRegistry_Transitions(t *testing.T) {
	logger := zap.NewNop()

	t.Run("online fires on first connection only", func(t *testing.T) {
		registry := NewRegistry(logger)

		var transitions []onlineCall
		registry.OnTransition(func(userID string, online bool) {
			transitions = append(transitions, onlineCall{userID, online})
		})

		first := NewConn("alice", &fakeTransport{})
		second := NewConn("alice", &fakeTransport{})
		registry.Register(first)
		registry.Register(second)

		assert.Equal(t, []onlineCall{{"alice", true}}, transitions)
	})

	t.Run("offline fires once when the last connection goes", func(t *testing.T) {
		registry := NewRegistry(logger)

		var transitions []onlineCall
		registry.OnTransition(func(userID string, online bool) {
			transitions = append(transitions, onlineCall{userID, online})
		})

		first := NewConn("alice", &fakeTransport{})
		second := NewConn("alice", &fakeTransport{})
		registry.Register(first)
		registry.Register(second)

		registry.Unregister(first)
		assert.Equal(t, []onlineCall{{"alice", true}}, transitions)

		registry.Unregister(second)
		registry.Unregister(second)
		assert.Equal(t, []onlineCall{{"alice", true}, {"alice", false}}, transitions)
	})

	t.Run("hook may read the registry without deadlocking", func(t *testing.T) {
		registry := NewRegistry(logger)

		var observed []string
		registry.OnTransition(func(userID string, online bool) {
			observed = registry.OnlineUserIDs()
		})

		registry.Register(NewConn("alice", &fakeTransport{}))

		assert.Equal(t, []string{"alice"}, observed)
	})
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewRegistry(zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			conn := NewConn("alice", &fakeTransport{})
			registry.Register(conn)
			registry.ConnectionsOf("alice")
			registry.OnlineUserIDs()
			registry.Unregister(conn)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, registry.OnlineCount())
}
