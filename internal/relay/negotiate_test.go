package relay

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/postalsys/croc-go/internal/envelope"
	"github.com/postalsys/croc-go/internal/pake"
	"github.com/postalsys/croc-go/internal/protocol"
)

// errClientRoomFull and errClientBadPassword are the client-visible
// outcomes testClientNegotiate reports; they mirror the errors
// internal/transfer's real negotiateWithRelay returns for the same wire
// replies, duplicated here so relay's own tests can drive a real client
// handshake without importing internal/transfer.
var (
	errClientRoomFull    = errors.New("relay test client: room full")
	errClientBadPassword = errors.New("relay test client: bad password")
	errClientUnexpected  = errors.New("relay test client: unexpected room reply")
)

// testClientNegotiate plays the client side of the handshake negotiate
// implements: PAKE as sender, a freshly generated salt, the relay
// password, then the room name. It is the same wire sequence
// internal/transfer.negotiateWithRelay drives against a real relay.
func testClientNegotiate(framer *protocol.Framer, password, room string) (string, error) {
	p, err := pake.New(pake.Sender, nil)
	if err != nil {
		return "", fmt.Errorf("client pake init: %w", err)
	}
	if err := writePakePubKey(framer, p.Public()); err != nil {
		return "", fmt.Errorf("client write pub key: %w", err)
	}

	peerPub, err := readPakePubKey(framer)
	if err != nil {
		return "", fmt.Errorf("client read peer pub key: %w", err)
	}
	if err := p.Update(peerPub); err != nil {
		return "", fmt.Errorf("client pake update: %w", err)
	}
	sessionKey, err := p.SessionKey()
	if err != nil {
		return "", fmt.Errorf("client session key: %w", err)
	}

	env, err := envelope.New(sessionKey, nil)
	if err != nil {
		return "", fmt.Errorf("client build envelope: %w", err)
	}
	salt := env.Salt()
	if err := framer.WriteFrame(salt[:]); err != nil {
		return "", fmt.Errorf("client write salt: %w", err)
	}

	send := func(plain []byte) error {
		ct, err := env.Encrypt(plain)
		if err != nil {
			return err
		}
		return framer.WriteFrame(ct)
	}
	recv := func() ([]byte, error) {
		ct, err := framer.ReadFrame()
		if err != nil {
			return nil, err
		}
		return env.Decrypt(ct)
	}

	if err := send([]byte(password)); err != nil {
		return "", fmt.Errorf("client send password: %w", err)
	}

	bannerFrame, err := recv()
	if err != nil {
		return "", fmt.Errorf("client read banner: %w", err)
	}
	if string(bannerFrame) == "bad password" {
		return "", errClientBadPassword
	}

	if err := send([]byte(room)); err != nil {
		return "", fmt.Errorf("client send room: %w", err)
	}

	reply, err := recv()
	if err != nil {
		return "", fmt.Errorf("client read room reply: %w", err)
	}
	switch string(reply) {
	case "ok":
		return string(bannerFrame), nil
	case "room full":
		return "", errClientRoomFull
	default:
		return "", errClientUnexpected
	}
}

func pipeFramers(t *testing.T) (*protocol.Framer, *protocol.Framer) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return protocol.NewFramer(a), protocol.NewFramer(b)
}

func TestNegotiateSuccess(t *testing.T) {
	serverSide, clientSide := pipeFramers(t)

	resultCh := make(chan *negotiationResult, 1)
	errCh := make(chan error, 1)
	go func() {
		result, err := negotiate(serverSide, "pass123", "ok", "203.0.113.9:4000")
		if err != nil {
			errCh <- err
			return
		}
		errCh <- result.replyRoomStatus(false)
		resultCh <- result
	}()

	banner, err := testClientNegotiate(clientSide, "pass123", "abc")
	if err != nil {
		t.Fatalf("testClientNegotiate error = %v", err)
	}
	if banner != "ok|||203.0.113.9:4000" {
		t.Errorf("banner = %q, want %q", banner, "ok|||203.0.113.9:4000")
	}
	if err := <-errCh; err != nil {
		t.Fatalf("server negotiate error = %v", err)
	}
	result := <-resultCh
	if result.roomName != "abc" {
		t.Errorf("roomName = %q, want abc", result.roomName)
	}
}

func TestNegotiateBadPasswordRejected(t *testing.T) {
	serverSide, clientSide := pipeFramers(t)

	errCh := make(chan error, 1)
	go func() {
		_, err := negotiate(serverSide, "pass123", "ok", "203.0.113.9:4000")
		errCh <- err
	}()

	_, err := testClientNegotiate(clientSide, "wrong", "abc")
	if !errors.Is(err, errClientBadPassword) {
		t.Fatalf("testClientNegotiate error = %v, want errClientBadPassword", err)
	}
	if serverErr := <-errCh; !errors.Is(serverErr, ErrBadPassword) {
		t.Fatalf("negotiate error = %v, want ErrBadPassword", serverErr)
	}
}

func TestNegotiatePasswordTrimsWhitespace(t *testing.T) {
	serverSide, clientSide := pipeFramers(t)

	errCh := make(chan error, 1)
	go func() {
		result, err := negotiate(serverSide, "pass123", "ok", "203.0.113.9:4000")
		if err != nil {
			errCh <- err
			return
		}
		errCh <- result.replyRoomStatus(false)
	}()

	_, err := testClientNegotiate(clientSide, " pass123 \n", "abc")
	if err != nil {
		t.Fatalf("testClientNegotiate error = %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("server negotiate error = %v", err)
	}
}
