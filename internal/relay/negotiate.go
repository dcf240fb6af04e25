package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/postalsys/croc-go/internal/envelope"
	"github.com/postalsys/croc-go/internal/pake"
	"github.com/postalsys/croc-go/internal/protocol"
)

// ErrBadPassword is returned when a client's relay password does not
// match the configured one.
var ErrBadPassword = errors.New("relay: bad password")

// secureFrame wraps a Framer with an AEAD envelope for the brief window
// of the relay handshake (password, banner, room name). It is discarded
// once negotiation completes; everything afterward — keepalive, the
// client-to-client state machine — flows as plain frames directly on the
// same Framer.
type secureFrame struct {
	framer *protocol.Framer
	env    *envelope.Envelope
}

func (s *secureFrame) send(plain []byte) error {
	ct, err := s.env.Encrypt(plain)
	if err != nil {
		return fmt.Errorf("relay: encrypt: %w", err)
	}
	return s.framer.WriteFrame(ct)
}

func (s *secureFrame) recv() ([]byte, error) {
	ct, err := s.framer.ReadFrame()
	if err != nil {
		return nil, err
	}
	return s.env.Decrypt(ct)
}

// negotiationResult carries what the relay learned about a client during
// the handshake: which room it wants to join, plus the still-open secure
// channel needed to send the final "ok"/"room full" reply once the
// relay has attempted to join the room.
type negotiationResult struct {
	roomName string
	sf       *secureFrame
}

// replyRoomStatus sends the final accept/reject reply for the room join
// this negotiation requested.
func (n *negotiationResult) replyRoomStatus(full bool) error {
	if full {
		return n.sf.send([]byte("room full"))
	}
	return n.sf.send([]byte("ok"))
}

// negotiate runs the relay side of the PAKE handshake and AEAD-protected
// password/banner/room exchange, grounded on the original relay's
// negotiate_info routine: PAKE as the receiving party, salt read in
// clear, then password, banner, and room name under the derived AEAD
// envelope. The framer is left positioned for plain framed I/O
// immediately afterward.
func negotiate(framer *protocol.Framer, password, bannerPrefix, peerAddr string) (*negotiationResult, error) {
	peerPub, err := readPakePubKey(framer)
	if err != nil {
		return nil, fmt.Errorf("relay: read pake pub key: %w", err)
	}

	p, err := pake.New(pake.Receiver, nil)
	if err != nil {
		return nil, fmt.Errorf("relay: init pake: %w", err)
	}
	if err := p.Update(peerPub); err != nil {
		return nil, fmt.Errorf("relay: pake update: %w", err)
	}
	if err := writePakePubKey(framer, p.Public()); err != nil {
		return nil, fmt.Errorf("relay: write pake pub key: %w", err)
	}

	sessionKey, err := p.SessionKey()
	if err != nil {
		return nil, fmt.Errorf("relay: derive session key: %w", err)
	}

	saltFrame, err := framer.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("relay: read salt: %w", err)
	}
	if len(saltFrame) != envelope.SaltSize {
		return nil, fmt.Errorf("relay: salt must be %d bytes, got %d", envelope.SaltSize, len(saltFrame))
	}

	env, err := envelope.New(sessionKey, saltFrame)
	if err != nil {
		return nil, fmt.Errorf("relay: build envelope: %w", err)
	}
	sf := &secureFrame{framer: framer, env: env}

	pwFrame, err := sf.recv()
	if err != nil {
		return nil, fmt.Errorf("relay: read password: %w", err)
	}
	if strings.TrimSpace(string(pwFrame)) != strings.TrimSpace(password) {
		sf.send([]byte("bad password"))
		return nil, ErrBadPassword
	}

	banner := bannerPrefix + "|||" + peerAddr
	if err := sf.send([]byte(banner)); err != nil {
		return nil, fmt.Errorf("relay: write banner: %w", err)
	}

	roomFrame, err := sf.recv()
	if err != nil {
		return nil, fmt.Errorf("relay: read room name: %w", err)
	}

	return &negotiationResult{roomName: string(roomFrame), sf: sf}, nil
}

func readPakePubKey(framer *protocol.Framer) (pake.PakePubKey, error) {
	var pub pake.PakePubKey
	raw, err := framer.ReadFrame()
	if err != nil {
		return pub, err
	}
	if err := json.Unmarshal(raw, &pub); err != nil {
		return pub, fmt.Errorf("relay: decode pake pub key: %w", err)
	}
	return pub, nil
}

func writePakePubKey(framer *protocol.Framer, pub pake.PakePubKey) error {
	raw, err := json.Marshal(pub)
	if err != nil {
		return fmt.Errorf("relay: encode pake pub key: %w", err)
	}
	return framer.WriteFrame(raw)
}
