package wire

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// headerSize is the wire size of Header: four u8 fields, a u16 size, two
// reserved zero bytes to keep the timestamp pair 4-byte aligned, and two
// u32 timestamp fields. 1+1+1+1+2+2+4+4 = 16.
const headerSize = 16

// ErrInterrupted is returned by Recv when the underlying read is aborted by
// a deadline set from outside the reading goroutine, rather than by the
// peer closing the connection or a genuine I/O failure. Callers that get
// ErrInterrupted are expected to re-check local state and retry the read.
var ErrInterrupted = errors.New("wire: read interrupted")

// ErrIO wraps a short or failed read/write that is neither a clean EOF nor
// an interruption.
var ErrIO = errors.New("wire: io error")

// Header is the fixed-size prefix carried by every packet.
type Header struct {
	Type          uint8
	Param1        uint8
	Param2        uint8
	Param3        uint8
	Size          uint16
	TimestampSec  uint32
	TimestampNsec uint32
}

// Conn frames packets over a TCP connection using the fixed 16-byte header.
// It is not safe for concurrent writers, nor for concurrent readers, but a
// single reader and a single writer may operate on it simultaneously.
type Conn struct {
	nc net.Conn
}

// NewConn wraps an established connection for packet-level I/O.
func NewConn(nc net.Conn) *Conn {
	return &Conn{nc: nc}
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.nc.Close()
}

// CloseRead half-closes the connection for reading, if the underlying
// transport supports it, so any task blocked in Recv observes io.EOF. Falls
// back to a full Close for transports without half-close (e.g. the in-test
// net.Pipe).
func (c *Conn) CloseRead() error {
	type readCloser interface {
		CloseRead() error
	}
	if rc, ok := c.nc.(readCloser); ok {
		return rc.CloseRead()
	}
	return c.nc.Close()
}

// RemoteAddr returns the address of the connected peer.
func (c *Conn) RemoteAddr() net.Addr {
	return c.nc.RemoteAddr()
}

// Interrupt aborts any Recv currently blocked on this connection by forcing
// its read to fail immediately. It is the mechanism by which one goroutine
// (the shooter, delivering a laser hit) wakes another (the victim, blocked
// reading its next command) without signals. Safe to call from any
// goroutine; callers intending to resume normal reads afterward must clear
// the deadline by calling Interrupt again is not enough — use ClearDeadline.
func (c *Conn) Interrupt() error {
	return c.nc.SetReadDeadline(time.Now())
}

// ClearDeadline removes any read deadline previously installed by
// Interrupt, restoring blocking reads.
func (c *Conn) ClearDeadline() error {
	return c.nc.SetReadDeadline(time.Time{})
}

// Send serialises header and payload and writes them to the peer.
// header.Size must equal len(payload); the caller is responsible for
// stamping header.TimestampSec/TimestampNsec before calling Send.
func (c *Conn) Send(header Header, payload []byte) error {
	enc := NewEncoder(c.nc)
	if err := enc.WriteU8(header.Type); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := enc.WriteU8(header.Param1); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := enc.WriteU8(header.Param2); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := enc.WriteU8(header.Param3); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := enc.WriteU16(header.Size); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := enc.WriteU16(0); err != nil { // reserved
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := enc.WriteU32(header.TimestampSec); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := enc.WriteU32(header.TimestampNsec); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if header.Size > 0 {
		if err := enc.WriteBytes(payload); err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
	}
	return nil
}

// Recv reads one packet from the peer. It returns io.EOF if the peer closed
// the connection before any header byte arrived, ErrInterrupted if the read
// was aborted by Interrupt, or a wrapped ErrIO for any other short read or
// I/O failure.
func (c *Conn) Recv() (Header, []byte, error) {
	var buf [headerSize]byte
	n, err := io.ReadFull(c.nc, buf[:])
	if err != nil {
		if isTimeout(err) {
			return Header{}, nil, ErrInterrupted
		}
		if n == 0 && errors.Is(err, io.EOF) {
			return Header{}, nil, io.EOF
		}
		return Header{}, nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	dec := NewDecoder(&sliceReader{buf[:]})
	header := Header{}
	header.Type, _ = dec.ReadU8()
	header.Param1, _ = dec.ReadU8()
	header.Param2, _ = dec.ReadU8()
	header.Param3, _ = dec.ReadU8()
	header.Size, _ = dec.ReadU16()
	_, _ = dec.ReadU16() // reserved
	header.TimestampSec, _ = dec.ReadU32()
	header.TimestampNsec, _ = dec.ReadU32()

	if header.Size == 0 {
		return header, nil, nil
	}

	payload := make([]byte, header.Size)
	if _, err := io.ReadFull(c.nc, payload); err != nil {
		if isTimeout(err) {
			return Header{}, nil, ErrInterrupted
		}
		return Header{}, nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return header, payload, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// sliceReader adapts an in-memory byte slice to io.Reader for the Decoder,
// which is written against io.Reader for reuse on both the socket and
// already-buffered header bytes.
type sliceReader struct {
	b []byte
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if len(s.b) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.b)
	s.b = s.b[n:]
	return n, nil
}
