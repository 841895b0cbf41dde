package player

import (
	"net"
	"testing"

	"gotest.tools/v3/assert"

	"code.mazewar.dev/mazewar/internal/wire"
)

func TestSendPacketSerialisesConcurrentSenders(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	r := &Record{Avatar: 'A', conn: wire.NewConn(server), name: "Alice"}

	const n = 20
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			errCh <- r.SendPacket(wire.Chat, 0, 0, 0, []byte("hello"))
		}()
	}

	cc := wire.NewConn(client)
	for i := 0; i < n; i++ {
		_, payload, err := cc.Recv()
		assert.NilError(t, err)
		assert.Equal(t, string(payload), "hello")
	}
	for i := 0; i < n; i++ {
		assert.NilError(t, <-errCh)
	}
}

func TestRecordAccessorsReflectState(t *testing.T) {
	server, _ := net.Pipe()
	defer server.Close()

	r := &Record{Avatar: 'Z', conn: wire.NewConn(server), name: "Zara"}
	assert.Equal(t, r.Name(), "Zara")
	assert.Equal(t, r.Score(), 0)

	_, _, placed := r.Position()
	assert.Assert(t, !placed)
}
