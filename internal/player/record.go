// Package player owns the 26-slot table of logged-in player records and
// the per-player game operations (movement, firing, chat, view refresh)
// that mutate the maze and fan broadcasts out to every connection.
package player

import (
	"sync"
	"sync/atomic"
	"time"

	"code.mazewar.dev/mazewar/internal/maze"
	"code.mazewar.dev/mazewar/internal/wire"
)

// Record is one logged-in player's state. Position, gaze and score are
// written only by the owning client-service task; any task may read them
// or send on the connection via SendPacket, both under fieldsMu/sendMu.
// pendingHit is the one field written cross-task without a lock, so it is
// an atomic.Bool rather than a plain bool guarded by fieldsMu.
type Record struct {
	Avatar byte

	conn *wire.Conn

	fieldsMu    sync.Mutex
	name        string
	row, col    int
	placed      bool
	gaze        maze.Direction
	score       int
	prevView    []maze.Row
	hasPrevView bool

	sendMu sync.Mutex

	refcount   atomic.Int32
	pendingHit atomic.Bool
}

// Name returns the player's display name.
func (r *Record) Name() string {
	r.fieldsMu.Lock()
	defer r.fieldsMu.Unlock()
	return r.name
}

// Position returns the player's current (row, col) and whether it is
// currently placed on the maze.
func (r *Record) Position() (row, col int, placed bool) {
	r.fieldsMu.Lock()
	defer r.fieldsMu.Unlock()
	return r.row, r.col, r.placed
}

// Gaze returns the player's current facing direction.
func (r *Record) Gaze() maze.Direction {
	r.fieldsMu.Lock()
	defer r.fieldsMu.Unlock()
	return r.gaze
}

// Score returns the player's current score.
func (r *Record) Score() int {
	r.fieldsMu.Lock()
	defer r.fieldsMu.Unlock()
	return r.score
}

// SendPacket serialises header and payload under the record's send lock so
// concurrent senders (a broadcast from another player's task, a direct
// reply from this player's own task) never interleave on the wire. The
// timestamp is stamped here, at the moment of the actual write.
func (r *Record) SendPacket(packetType, param1, param2, param3 uint8, payload []byte) error {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()
	now := time.Now()
	header := wire.Header{
		Type:          packetType,
		Param1:        param1,
		Param2:        param2,
		Param3:        param3,
		Size:          uint16(len(payload)),
		TimestampSec:  uint32(now.Unix()),
		TimestampNsec: uint32(now.Nanosecond()),
	}
	return r.conn.Send(header, payload)
}

// Interrupt forces a blocked Recv on this player's connection to return
// ErrInterrupted, without affecting the connection's data stream.
func (r *Record) Interrupt() error {
	return r.conn.Interrupt()
}

// ClearDeadline undoes a prior Interrupt so the connection resumes blocking
// reads.
func (r *Record) ClearDeadline() error {
	return r.conn.ClearDeadline()
}

// Recv reads the next packet from this player's connection.
func (r *Record) Recv() (wire.Header, []byte, error) {
	return r.conn.Recv()
}

// CloseRead half-closes the connection for reading.
func (r *Record) CloseRead() error {
	return r.conn.CloseRead()
}

// Close closes the connection entirely.
func (r *Record) Close() error {
	return r.conn.Close()
}

// HasPendingHit reports whether a laser hit is waiting to be processed,
// without clearing it.
func (r *Record) HasPendingHit() bool {
	return r.pendingHit.Load()
}
