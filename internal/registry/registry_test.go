package registry

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-games/arena/internal/transport"
)

func pipeConn(id string) *transport.Conn {
	client, _ := net.Pipe()
	return transport.New(id, client)
}

func TestAddGetRemove(t *testing.T) {
	r := New()
	c := pipeConn("p1")
	r.Add(c)

	got, ok := r.Get("p1")
	require.True(t, ok)
	assert.Same(t, c, got)
	assert.Equal(t, 1, r.Len())

	r.Remove("p1")
	_, ok = r.Get("p1")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRemove_UnknownIDIsNoOp(t *testing.T) {
	r := New()
	assert.NotPanics(t, func() { r.Remove("missing") })
}

func TestAll_ReturnsSnapshot(t *testing.T) {
	r := New()
	r.Add(pipeConn("a"))
	r.Add(pipeConn("b"))

	all := r.All()
	assert.Len(t, all, 2)
}

func TestSend_UnknownIDIsAnError(t *testing.T) {
	r := New()
	err := r.Send("missing", struct{}{})
	assert.Error(t, err)
}
