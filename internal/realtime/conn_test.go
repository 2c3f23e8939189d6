package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConn_SendAfterClose(t *testing.T) {
	transport := &fakeTransport{}
	conn := NewConn("alice", transport)

	assert.NoError(t, conn.Send([]byte("hello")))
	assert.NoError(t, conn.Close())

	assert.ErrorIs(t, conn.Send([]byte("late")), ErrConnClosed)
	assert.Equal(t, 1, transport.sentCount())
	assert.True(t, transport.closed)
}

func TestConn_CloseIsIdempotent(t *testing.T) {
	conn := NewConn("alice", &fakeTransport{})

	assert.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())
}

func TestConn_Identity(t *testing.T) {
	first := NewConn("alice", &fakeTransport{})
	second := NewConn("alice", &fakeTransport{})

	assert.Equal(t, "alice", first.UserID())
	assert.NotEmpty(t, first.ID())
	assert.NotEqual(t, first.ID(), second.ID())
	assert.False(t, first.EstablishedAt().IsZero())
}
