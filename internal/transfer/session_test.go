package transfer

import (
	"encoding/json"
	"net"
	"testing"

	"github.com/postalsys/croc-go/internal/protocol"
)

func TestMainRoomName(t *testing.T) {
	if got := mainRoomName("abcdefgh"); got != "abc" {
		t.Errorf("mainRoomName() = %q, want %q", got, "abc")
	}
}

func TestMultiplexRoomNameDeterministic(t *testing.T) {
	secret := "abcdefgh"
	a := multiplexRoomName(secret)
	b := multiplexRoomName(secret)
	if a != b {
		t.Fatalf("multiplexRoomName() not deterministic: %q vs %q", a, b)
	}
	if len(a) != len("xxxxxx-1") {
		t.Errorf("multiplexRoomName() = %q, want length %d", a, len("xxxxxx-1"))
	}
	if a[6:] != "-1" {
		t.Errorf("multiplexRoomName() = %q, want suffix -1", a)
	}
}

func TestInnerWeakKeyIsSecretSuffix(t *testing.T) {
	secret := "abcdefgh"
	if got := string(innerWeakKey(secret)); got != "defgh" {
		t.Errorf("innerWeakKey() = %q, want %q", got, "defgh")
	}
}

func TestConsumeKeepaliveHandlesIPsAndPing(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	s := &session{
		cfg:           Config{Interfaces: fakeLister{ips: []string{"10.0.0.5"}}},
		framer:        protocol.NewFramer(a),
		multiplexPort: "9010",
	}

	peer := protocol.NewFramer(b)
	done := make(chan error, 1)
	go func() { done <- s.consumeKeepalive() }()

	if err := peer.WriteFrame([]byte{0x01}); err != nil {
		t.Fatalf("WriteFrame error = %v", err)
	}
	if err := peer.WriteFrame([]byte("ips?")); err != nil {
		t.Fatalf("WriteFrame error = %v", err)
	}
	reply, err := peer.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame error = %v", err)
	}
	var got []string
	if err := json.Unmarshal(reply, &got); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if len(got) != 2 || got[0] != "9010" || got[1] != "10.0.0.5" {
		t.Errorf("ips reply = %v, want [9010 10.0.0.5]", got)
	}

	if err := peer.WriteFrame([]byte("handshake")); err != nil {
		t.Fatalf("WriteFrame error = %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("consumeKeepalive error = %v", err)
	}
}

func TestConsumeKeepaliveRejectsUnknownMessage(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	s := &session{cfg: Config{}, framer: protocol.NewFramer(a)}
	peer := protocol.NewFramer(b)

	done := make(chan error, 1)
	go func() { done <- s.consumeKeepalive() }()

	if err := peer.WriteFrame([]byte("bogus")); err != nil {
		t.Fatalf("WriteFrame error = %v", err)
	}
	if err := <-done; err == nil {
		t.Fatal("expected error for unknown keepalive message")
	}
}

type fakeLister struct {
	ips []string
	err error
}

func (f fakeLister) NonLoopbackIPv4() ([]string, error) {
	return f.ips, f.err
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	if got := c.relayPassword(); got != "pass123" {
		t.Errorf("relayPassword() = %q, want pass123", got)
	}
	if c.logger() == nil {
		t.Error("logger() returned nil")
	}
	if c.interfaces() == nil {
		t.Error("interfaces() returned nil")
	}
}
