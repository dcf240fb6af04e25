// Package protocol implements the croc wire format: a length-prefixed frame
// transport (this file) and a tagged-JSON control message codec
// (message.go), plus the file-manifest wire types both sides exchange
// (manifest.go).
package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
)

// Magic is the 4-byte ASCII header every frame starts with.
var Magic = [4]byte{'c', 'r', 'o', 'c'}

// ErrBadMagic is returned when a frame's header doesn't start with Magic.
var ErrBadMagic = errors.New("protocol: bad frame magic")

// PingProbe and PongReply are the only unframed bytes this protocol ever
// sends: a relay-liveness probe a client may send before any PAKE/framing
// has started (spec §4.3).
var (
	PingProbe = []byte("ping")
	PongReply = []byte("pong")
)

// Framer reads and writes croc frames over a connection. It wraps a
// bufio.Reader so Peek can inspect bytes non-destructively without
// consuming them, per spec §4.3.
type Framer struct {
	conn net.Conn
	r    *bufio.Reader
}

// NewFramer wraps conn for framed reads and writes.
func NewFramer(conn net.Conn) *Framer {
	return &Framer{conn: conn, r: bufio.NewReader(conn)}
}

// Conn returns the underlying connection.
func (f *Framer) Conn() net.Conn {
	return f.conn
}

// Peek returns the next n bytes without consuming them. Used by the relay
// to test for an unframed "ping" probe before committing to framed I/O.
func (f *Framer) Peek(n int) ([]byte, error) {
	return f.r.Peek(n)
}

// WriteFrame emits magic, the payload's 4-byte little-endian length, then
// the payload itself. Writes are retried by net.Conn.Write's own contract
// (a short write without error does not happen on a stream socket; any
// error is surfaced immediately).
func (f *Framer) WriteFrame(payload []byte) error {
	header := make([]byte, 8)
	copy(header[:4], Magic[:])
	binary.LittleEndian.PutUint32(header[4:], uint32(len(payload)))

	if _, err := f.conn.Write(header); err != nil {
		return fmt.Errorf("protocol: write frame header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := f.conn.Write(payload); err != nil {
			return fmt.Errorf("protocol: write frame payload: %w", err)
		}
	}
	return nil
}

// ReadFrame reads one frame: 4-byte magic, 4-byte LE length, then that many
// payload bytes. The magic is checked before the length is ever read, so a
// bad-magic connection never loses more than the 4 magic bytes.
func (f *Framer) ReadFrame() ([]byte, error) {
	magic := make([]byte, 4)
	if _, err := io.ReadFull(f.r, magic); err != nil {
		return nil, fmt.Errorf("protocol: read frame magic: %w", err)
	}
	if magic[0] != Magic[0] || magic[1] != Magic[1] || magic[2] != Magic[2] || magic[3] != Magic[3] {
		return nil, ErrBadMagic
	}

	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(f.r, lenBuf); err != nil {
		return nil, fmt.Errorf("protocol: read frame length: %w", err)
	}
	length := binary.LittleEndian.Uint32(lenBuf)
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(f.r, payload); err != nil {
			return nil, fmt.Errorf("protocol: read frame payload: %w", err)
		}
	}
	return payload, nil
}

// WritePlain writes raw, unframed bytes — used only for the ping/pong
// liveness probe.
func (f *Framer) WritePlain(b []byte) error {
	_, err := f.conn.Write(b)
	return err
}

// ReadPlain consumes exactly n raw, unframed bytes — the counterpart to
// WritePlain, used to consume a peeked ping probe before replying.
func (f *Framer) ReadPlain(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(f.r, buf); err != nil {
		return nil, fmt.Errorf("protocol: read plain: %w", err)
	}
	return buf, nil
}

// Reader exposes the buffered reader backing this Framer so callers can
// hand off to io.Copy without losing bytes already buffered from the
// connection.
func (f *Framer) Reader() io.Reader {
	return f.r
}
