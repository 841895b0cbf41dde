package wire

import (
	"io"
	"net"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func TestSendRecvRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cc := NewConn(client)
	sc := NewConn(server)

	sent := Header{
		Type:          Move,
		Param1:        3,
		Param2:        7,
		Param3:        0,
		Size:          5,
		TimestampSec:  1700000000,
		TimestampNsec: 123456,
	}
	payload := []byte("hello")

	errCh := make(chan error, 1)
	go func() { errCh <- cc.Send(sent, payload) }()

	got, gotPayload, err := sc.Recv()
	assert.NilError(t, err)
	assert.NilError(t, <-errCh)

	assert.DeepEqual(t, sent, got)
	assert.DeepEqual(t, payload, gotPayload)
}

func TestSendRecvEmptyPayload(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cc := NewConn(client)
	sc := NewConn(server)

	sent := Header{Type: Refresh, Size: 0}
	errCh := make(chan error, 1)
	go func() { errCh <- cc.Send(sent, nil) }()

	got, gotPayload, err := sc.Recv()
	assert.NilError(t, err)
	assert.NilError(t, <-errCh)
	assert.DeepEqual(t, sent, got)
	assert.Assert(t, gotPayload == nil)
}

func TestRecvEOF(t *testing.T) {
	client, server := net.Pipe()
	sc := NewConn(server)

	client.Close()

	_, _, err := sc.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRecvEOFMidHeader(t *testing.T) {
	client, server := net.Pipe()
	sc := NewConn(server)

	go func() {
		client.Write([]byte{Move, 1, 2})
		client.Close()
	}()

	_, _, err := sc.Recv()
	assert.ErrorIs(t, err, ErrIO)
}

func TestRecvInterrupted(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	sc := NewConn(server)

	done := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		sc.Interrupt()
		close(done)
	}()

	_, _, err := sc.Recv()
	<-done
	assert.ErrorIs(t, err, ErrInterrupted)
}

func TestInterruptThenClearAllowsRecv(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	sc := NewConn(server)

	assert.NilError(t, sc.Interrupt())

	_, _, err := sc.Recv()
	assert.ErrorIs(t, err, ErrInterrupted)

	assert.NilError(t, sc.ClearDeadline())

	sent := Header{Type: Fire, Size: 0}
	errCh := make(chan error, 1)
	go func() { errCh <- NewConn(client).Send(sent, nil) }()

	got, _, err := sc.Recv()
	assert.NilError(t, err)
	assert.NilError(t, <-errCh)
	assert.DeepEqual(t, sent, got)
}

func TestSendRecvLargePayload(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cc := NewConn(client)
	sc := NewConn(server)

	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i)
	}
	sent := Header{Type: Chat, Size: uint16(len(payload))}

	errCh := make(chan error, 1)
	go func() { errCh <- cc.Send(sent, payload) }()

	got, gotPayload, err := sc.Recv()
	assert.NilError(t, err)
	assert.NilError(t, <-errCh)
	assert.DeepEqual(t, sent, got)
	assert.DeepEqual(t, payload, gotPayload)
}

func TestMultiplePacketsOverSameConnection(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cc := NewConn(client)
	sc := NewConn(server)

	headers := []Header{
		{Type: Login, Size: 0},
		{Type: Move, Param1: 1, Size: 0},
		{Type: Turn, Param1: 2, Size: 0},
	}

	errCh := make(chan error, 1)
	go func() {
		for _, h := range headers {
			if err := cc.Send(h, nil); err != nil {
				errCh <- err
				return
			}
		}
		errCh <- nil
	}()

	for _, want := range headers {
		got, _, err := sc.Recv()
		assert.NilError(t, err)
		assert.DeepEqual(t, want, got)
	}
	assert.NilError(t, <-errCh)
}
