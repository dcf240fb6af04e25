package relay

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/postalsys/croc-go/internal/protocol"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer(ServerConfig{
		Address:  "127.0.0.1:0",
		Password: "pass123",
		RoomTTL:  time.Minute,
	})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { srv.Stop() })
	return srv
}

func dialServer(t *testing.T, srv *Server) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Address().String())
	if err != nil {
		t.Fatalf("Dial(%s) error = %v", srv.Address(), err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// S1 — ping probe: a bare, unframed "ping" must get a bare "pong" and
// then EOF, and must not create a room.
func TestServerPingProbe(t *testing.T) {
	srv := startTestServer(t)
	conn := dialServer(t, srv)

	if _, err := conn.Write(protocol.PingProbe); err != nil {
		t.Fatalf("write ping error = %v", err)
	}

	reply := make([]byte, 4)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := readFull(conn, reply); err != nil {
		t.Fatalf("read pong error = %v", err)
	}
	if !bytes.Equal(reply, protocol.PongReply) {
		t.Fatalf("reply = %q, want %q", reply, protocol.PongReply)
	}

	// The relay must close right after; any further read is EOF.
	one := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Read(one); err == nil {
		t.Fatal("expected EOF after pong, got more data")
	}

	if srv.control.rooms.Count() != 0 {
		t.Errorf("rooms created by a ping probe = %d, want 0", srv.control.rooms.Count())
	}
}

// S2 — two-party pairing and transparent bridging: once paired, bytes one
// side frames must arrive verbatim at the other.
func TestServerTwoPartyPairingAndBridge(t *testing.T) {
	srv := startTestServer(t)

	connA := dialServer(t, srv)
	connB := dialServer(t, srv)
	framerA := protocol.NewFramer(connA)
	framerB := protocol.NewFramer(connB)

	if _, err := testClientNegotiate(framerA, "pass123", "abc"); err != nil {
		t.Fatalf("A negotiate error = %v", err)
	}
	if _, err := testClientNegotiate(framerB, "pass123", "abc"); err != nil {
		t.Fatalf("B negotiate error = %v", err)
	}

	if err := framerA.WriteFrame([]byte("hello")); err != nil {
		t.Fatalf("A write frame error = %v", err)
	}
	connB.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := framerB.ReadFrame()
	if err != nil {
		t.Fatalf("B read frame error = %v", err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("B got %q, want %q", got, "hello")
	}

	if err := framerB.WriteFrame([]byte("hello")); err != nil {
		t.Fatalf("B write frame error = %v", err)
	}
	connA.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err = framerA.ReadFrame()
	if err != nil {
		t.Fatalf("A read frame error = %v", err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("A got %q, want %q", got, "hello")
	}
}

// S3 — a third client joining an already-paired room must be told the
// room is full.
func TestServerRoomFull(t *testing.T) {
	srv := startTestServer(t)

	connA := dialServer(t, srv)
	connB := dialServer(t, srv)
	connC := dialServer(t, srv)

	if _, err := testClientNegotiate(protocol.NewFramer(connA), "pass123", "abc"); err != nil {
		t.Fatalf("A negotiate error = %v", err)
	}
	if _, err := testClientNegotiate(protocol.NewFramer(connB), "pass123", "abc"); err != nil {
		t.Fatalf("B negotiate error = %v", err)
	}

	connC.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := testClientNegotiate(protocol.NewFramer(connC), "pass123", "abc")
	if !errors.Is(err, errClientRoomFull) {
		t.Fatalf("C negotiate error = %v, want errClientRoomFull", err)
	}
}

// S4 — a wrong relay password must be rejected and the connection closed.
func TestServerBadPassword(t *testing.T) {
	srv := startTestServer(t)
	conn := dialServer(t, srv)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	_, err := testClientNegotiate(protocol.NewFramer(conn), "wrong", "abc")
	if !errors.Is(err, errClientBadPassword) {
		t.Fatalf("negotiate error = %v, want errClientBadPassword", err)
	}

	one := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Read(one); err == nil {
		t.Fatal("expected connection to be closed after bad password")
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
