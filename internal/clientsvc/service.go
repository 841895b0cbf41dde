// Package clientsvc drives one connection end to end: the login
// handshake, the dispatch loop for a logged-in player, and orderly logout.
package clientsvc

import (
	"errors"
	"time"

	"code.mazewar.dev/mazewar/internal/player"
	"code.mazewar.dev/mazewar/internal/registry"
	"code.mazewar.dev/mazewar/internal/wire"
)

// Serve runs the full INIT → LOGGED_IN → TERMINATED lifecycle for one
// accepted connection. It registers the connection with reg for the
// drain-on-shutdown protocol and always unregisters and closes before
// returning.
func Serve(conn *wire.Conn, reg *registry.Registry, table *player.Table) {
	reg.Register(conn)
	defer reg.Unregister(conn)
	defer conn.Close()

	record, ok := runInit(conn, table)
	if !ok {
		return
	}

	runLoggedIn(record, table)
	table.Logout(record)
}

func runInit(conn *wire.Conn, table *player.Table) (*player.Record, bool) {
	for {
		header, payload, err := conn.Recv()
		if err != nil {
			return nil, false
		}
		if header.Type != wire.Login {
			continue
		}

		record, err := table.Login(conn, header.Param1, payload)
		if err != nil {
			sendSimple(conn, wire.Inuse)
			continue
		}

		sendSimple(conn, wire.Ready)
		table.Reset(record)
		return record, true
	}
}

func runLoggedIn(record *player.Record, table *player.Table) {
	for {
		table.CheckForLaserHit(record)

		header, payload, err := record.Recv()
		if err != nil {
			if errors.Is(err, wire.ErrInterrupted) {
				record.ClearDeadline()
				continue
			}
			return
		}

		switch header.Type {
		case wire.Move:
			table.Move(record, signOf(header.Param1))
		case wire.Turn:
			table.Rotate(record, signOf(header.Param1))
		case wire.Fire:
			table.FireLaser(record)
		case wire.Refresh:
			table.InvalidateView(record)
			table.UpdateView(record)
		case wire.Send:
			table.SendChat(record, payload)
		}
	}
}

func signOf(param1 uint8) int {
	if int8(param1) < 0 {
		return -1
	}
	return 1
}

func sendSimple(conn *wire.Conn, packetType uint8) {
	now := time.Now()
	conn.Send(wire.Header{
		Type:          packetType,
		TimestampSec:  uint32(now.Unix()),
		TimestampNsec: uint32(now.Nanosecond()),
	}, nil)
}
