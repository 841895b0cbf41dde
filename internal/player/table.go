package player

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"code.mazewar.dev/mazewar/internal/maze"
	"code.mazewar.dev/mazewar/internal/wire"
)

// DefaultViewDepth is the periscope depth used when a caller doesn't
// configure one explicitly.
const DefaultViewDepth = 10

// HitPause is how long a player's service task is blocked processing a
// laser hit before the victim respawns. A var, not a const, so tests can
// shrink it.
var HitPause = 3 * time.Second

var (
	// ErrRejected is returned by Login when no avatar slot can be granted
	// or the requested display name fails the first-byte policy.
	ErrRejected = errors.New("player: login rejected")
	// ErrAbsent is returned by Get when the avatar has no published record.
	ErrAbsent = errors.New("player: avatar absent")
)

// Table is the 26-slot avatar → record mapping, plus the maze the records
// are placed on. All table-level operations (login, get, unpublish) take
// the table lock; per-player operations take the table lock only to
// iterate for broadcasts, never while holding a record's own locks.
type Table struct {
	mu        sync.Mutex
	slots     [26]*Record
	mz        *maze.Maze
	viewDepth int
}

// NewTable builds an empty table over mz, extracting periscope views to
// viewDepth rows.
func NewTable(mz *maze.Maze, viewDepth int) *Table {
	if viewDepth <= 0 {
		viewDepth = DefaultViewDepth
	}
	return &Table{mz: mz, viewDepth: viewDepth}
}

func upperLetter(b byte) (byte, bool) {
	switch {
	case b >= 'A' && b <= 'Z':
		return b, true
	case b >= 'a' && b <= 'z':
		return b - ('a' - 'A'), true
	default:
		return 0, false
	}
}

// Login allocates a record for a new connection. requestedAvatar is 0 for
// "no preference". name is the raw bytes the client sent; an empty name is
// replaced with "Anonymous", but the avatar-selection policy below still
// consults the original first byte.
func (t *Table) Login(conn *wire.Conn, requestedAvatar byte, name []byte) (*Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var firstByte byte
	if len(name) > 0 {
		firstByte = name[0]
	}
	displayName := string(name)
	if len(name) == 0 {
		displayName = "Anonymous"
	} else if firstByte < 'A' || firstByte > 'Z' {
		return nil, ErrRejected
	}

	var chosen byte
	found := false

	if requestedAvatar != 0 {
		up, ok := upperLetter(requestedAvatar)
		if ok && t.slots[up-'A'] == nil {
			chosen, found = up, true
		}
	}
	if !found && len(name) > 0 && firstByte >= 'A' && firstByte <= 'Z' && t.slots[firstByte-'A'] == nil {
		chosen, found = firstByte, true
	}
	if !found {
		for c := byte('A'); c <= 'Z'; c++ {
			if t.slots[c-'A'] == nil {
				chosen, found = c, true
				break
			}
		}
	}
	if !found {
		return nil, ErrRejected
	}

	r := &Record{
		Avatar: chosen,
		conn:   conn,
		name:   displayName,
		gaze:   maze.East,
	}
	r.refcount.Store(1)
	t.slots[chosen-'A'] = r
	return r, nil
}

// Get looks up avatar and, on success, increments its refcount. Callers
// must Release when done.
func (t *Table) Get(avatar byte) (*Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if avatar < 'A' || avatar > 'Z' {
		return nil, ErrAbsent
	}
	r := t.slots[avatar-'A']
	if r == nil {
		return nil, ErrAbsent
	}
	r.refcount.Add(1)
	return r, nil
}

// Unpublish removes avatar's slot entry. It does not itself free the
// record; the caller's own reference must still be released.
func (t *Table) Unpublish(avatar byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if avatar >= 'A' && avatar <= 'Z' && t.slots[avatar-'A'] != nil {
		t.slots[avatar-'A'] = nil
	}
}

// Reference increments r's refcount.
func (t *Table) Reference(r *Record) {
	r.refcount.Add(1)
}

// Release decrements r's refcount, freeing retained state once it reaches
// zero.
func (t *Table) Release(r *Record) {
	if r.refcount.Add(-1) == 0 {
		r.fieldsMu.Lock()
		r.prevView = nil
		r.fieldsMu.Unlock()
	}
}

// forEach takes a reference on every currently published record, releases
// the table lock, invokes fn on each, then releases the references. This
// keeps the table lock out of scope during potentially blocking sends,
// while still guaranteeing every record handed to fn stays valid.
func (t *Table) forEach(fn func(*Record)) {
	t.mu.Lock()
	recs := make([]*Record, 0, len(t.slots))
	for _, r := range t.slots {
		if r != nil {
			r.refcount.Add(1)
			recs = append(recs, r)
		}
	}
	t.mu.Unlock()

	for _, r := range recs {
		fn(r)
		t.Release(r)
	}
}

func scoreByte(score int) uint8 {
	return uint8(int8(score))
}

// InvalidateView drops r's cached previous view.
func (t *Table) InvalidateView(r *Record) {
	r.fieldsMu.Lock()
	r.hasPrevView = false
	r.prevView = nil
	r.fieldsMu.Unlock()
}

// UpdateView recomputes r's periscope view and pushes whatever update is
// needed: a full CLEAR-then-SHOW sequence if there is no cached view or its
// depth differs, otherwise a SHOW only for the cells that changed.
func (t *Table) UpdateView(r *Record) {
	r.fieldsMu.Lock()
	row, col, gaze := r.row, r.col, r.gaze
	prev := r.prevView
	hadPrev := r.hasPrevView
	r.fieldsMu.Unlock()

	view := t.mz.View(row, col, gaze, t.viewDepth)
	full := !hadPrev || len(prev) != len(view)

	if full {
		r.SendPacket(wire.Clear, 0, 0, 0, nil)
		for d, row := range view {
			r.SendPacket(wire.Show, uint8(row.LeftWall), wire.LeftWall, uint8(d), nil)
			r.SendPacket(wire.Show, uint8(row.Corridor), wire.Corridor, uint8(d), nil)
			r.SendPacket(wire.Show, uint8(row.RightWall), wire.RightWall, uint8(d), nil)
		}
	} else {
		for d, row := range view {
			if row.LeftWall != prev[d].LeftWall {
				r.SendPacket(wire.Show, uint8(row.LeftWall), wire.LeftWall, uint8(d), nil)
			}
			if row.Corridor != prev[d].Corridor {
				r.SendPacket(wire.Show, uint8(row.Corridor), wire.Corridor, uint8(d), nil)
			}
			if row.RightWall != prev[d].RightWall {
				r.SendPacket(wire.Show, uint8(row.RightWall), wire.RightWall, uint8(d), nil)
			}
		}
	}

	r.fieldsMu.Lock()
	r.prevView = view
	r.hasPrevView = true
	r.fieldsMu.Unlock()
}

// Reset removes r from the maze if placed, then attempts to place it at a
// random empty cell. If the maze is full, it asymmetrically ends this
// player's session by half-closing its connection for reading; the
// service loop observes EOF and logs out on its next read. On success it
// refreshes every player's view and sends the login-time SCORE burst.
func (t *Table) Reset(r *Record) error {
	r.fieldsMu.Lock()
	placed := r.placed
	row, col := r.row, r.col
	r.fieldsMu.Unlock()

	if placed {
		t.mz.Remove(r.Avatar, row, col)
	}

	nr, nc, err := t.mz.PlaceRandom(r.Avatar)
	if err != nil {
		r.CloseRead()
		return fmt.Errorf("player: reset: %w", err)
	}

	r.fieldsMu.Lock()
	r.row, r.col = nr, nc
	r.placed = true
	r.fieldsMu.Unlock()

	t.forEach(func(p *Record) {
		t.InvalidateView(p)
		t.UpdateView(p)
	})

	t.forEach(func(p *Record) {
		r.SendPacket(wire.Score, p.Avatar, scoreByte(p.Score()), 0, []byte(p.Name()))
	})

	myScore := scoreByte(r.Score())
	myName := r.Name()
	t.forEach(func(p *Record) {
		if p == r {
			return
		}
		p.SendPacket(wire.Score, r.Avatar, myScore, 0, []byte(myName))
	})

	return nil
}

// Move advances or retreats r by one cell: sign=+1 is forward (gaze
// direction), sign=-1 is backward (reverse of gaze). A blocked move is a
// no-op.
func (t *Table) Move(r *Record, sign int) error {
	r.fieldsMu.Lock()
	row, col, gaze := r.row, r.col, r.gaze
	r.fieldsMu.Unlock()

	dir := gaze
	if sign < 0 {
		dir = maze.Reverse(gaze)
	}

	nr, nc, err := t.mz.Move(row, col, dir)
	if err != nil {
		return nil
	}

	r.fieldsMu.Lock()
	r.row, r.col = nr, nc
	r.fieldsMu.Unlock()

	t.forEach(func(p *Record) { t.UpdateView(p) })
	return nil
}

// Rotate turns r in place: sign=+1 is CCW (left), sign=-1 is CW (right).
func (t *Table) Rotate(r *Record, sign int) {
	r.fieldsMu.Lock()
	if sign > 0 {
		r.gaze = maze.TurnLeft(r.gaze)
	} else {
		r.gaze = maze.TurnRight(r.gaze)
	}
	r.fieldsMu.Unlock()

	t.InvalidateView(r)
	t.UpdateView(r)
}

// FireLaser identifies the first avatar along r's gaze and, if one exists,
// marks it hit and wakes its service task. The shooter's score is
// incremented and broadcast to everyone regardless of whether the victim's
// task has processed the hit yet.
func (t *Table) FireLaser(r *Record) error {
	r.fieldsMu.Lock()
	row, col, gaze := r.row, r.col, r.gaze
	r.fieldsMu.Unlock()

	avatar, ok := t.mz.FindTarget(row, col, gaze)
	if !ok {
		return nil
	}

	victim, err := t.Get(avatar)
	if err != nil {
		return nil
	}
	defer t.Release(victim)

	victim.pendingHit.Store(true)
	victim.Interrupt()

	r.fieldsMu.Lock()
	r.score++
	newScore := scoreByte(r.score)
	r.fieldsMu.Unlock()

	t.forEach(func(p *Record) {
		p.SendPacket(wire.Score, r.Avatar, newScore, 0, nil)
	})
	return nil
}

// CheckForLaserHit tests and clears r's pending-hit flag. If it was set,
// this removes r from the maze, refreshes every view, alerts r, pauses,
// and respawns r via Reset. A no-op if no hit is pending.
func (t *Table) CheckForLaserHit(r *Record) {
	if !r.pendingHit.CompareAndSwap(true, false) {
		return
	}

	r.fieldsMu.Lock()
	row, col := r.row, r.col
	r.placed = false
	r.fieldsMu.Unlock()

	t.mz.Remove(r.Avatar, row, col)
	t.forEach(func(p *Record) { t.UpdateView(p) })

	r.SendPacket(wire.Alert, 0, 0, 0, nil)
	time.Sleep(HitPause)
	t.Reset(r)
}

// SendChat broadcasts message, formatted with r's name and avatar, to
// every published player.
func (t *Table) SendChat(r *Record, message []byte) {
	line := fmt.Sprintf("%s[%c] %s", r.Name(), r.Avatar, message)
	payload := []byte(line)
	t.forEach(func(p *Record) {
		p.SendPacket(wire.Chat, 0, 0, 0, payload)
	})
}

// Logout removes r from the maze if placed, refreshes every view,
// broadcasts the "departed" SCORE sentinel to every other player, then
// unpublishes r's slot and releases the service task's reference.
func (t *Table) Logout(r *Record) {
	r.fieldsMu.Lock()
	placed := r.placed
	row, col := r.row, r.col
	r.fieldsMu.Unlock()

	if placed {
		t.mz.Remove(r.Avatar, row, col)
		t.forEach(func(p *Record) { t.UpdateView(p) })
	}

	t.forEach(func(p *Record) {
		if p == r {
			return
		}
		p.SendPacket(wire.Score, r.Avatar, scoreByte(-1), 0, nil)
	})

	t.Unpublish(r.Avatar)
	t.Release(r)
}
