package supervisor

import (
	"net"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"code.mazewar.dev/mazewar/internal/engine"
	"code.mazewar.dev/mazewar/internal/wire"
)

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := engine.New([]string{
		"#########",
		"#       #",
		"#       #",
		"#########",
	}, 4)
	assert.NilError(t, err)
	return eng
}

func TestListenAndServeAcceptsAndLogsIn(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	sup := New(testEngine(t), nil)
	errCh := make(chan error, 1)
	go func() { errCh <- sup.ListenAndServe(addr) }()

	var conn net.Conn
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.NilError(t, err)
	defer conn.Close()

	c := wire.NewConn(conn)
	assert.NilError(t, c.Send(wire.Header{Type: wire.Login, Param1: 'A'}, []byte("Alice")))
	h, _, err := c.Recv()
	assert.NilError(t, err)
	assert.Equal(t, h.Type, wire.Ready)

	sup.Shutdown()

	select {
	case err := <-errCh:
		assert.NilError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ListenAndServe did not return after Shutdown")
	}
}

func TestShutdownBeforeListenIsSafe(t *testing.T) {
	sup := New(testEngine(t), nil)
	sup.Shutdown()
	sup.Shutdown()
}
