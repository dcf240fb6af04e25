package transfer

import (
	"encoding/json"
	"fmt"

	"github.com/postalsys/croc-go/internal/envelope"
	"github.com/postalsys/croc-go/internal/pake"
	"github.com/postalsys/croc-go/internal/protocol"
)

const curveName = "siec"

// controlChannel is the second, inner AEAD layer carried over the already
// relay-bridged plain framer: every message the two clients exchange after
// pairing goes through this envelope, never the one used to negotiate with
// the relay.
type controlChannel struct {
	framer *protocol.Framer
	env    *envelope.Envelope
}

func (c *controlChannel) send(m protocol.Message) error {
	raw, err := protocol.Encode(m)
	if err != nil {
		return fmt.Errorf("transfer: encode message: %w", err)
	}
	ct, err := c.env.Encrypt(raw)
	if err != nil {
		return fmt.Errorf("transfer: encrypt message: %w", err)
	}
	return c.framer.WriteFrame(ct)
}

func (c *controlChannel) recv() (protocol.Message, error) {
	ct, err := c.framer.ReadFrame()
	if err != nil {
		return nil, err
	}
	raw, err := c.env.Decrypt(ct)
	if err != nil {
		return nil, err
	}
	return protocol.Decode(raw)
}

// keyExchangeAsReceiver runs the inner PAKE from the transfer-receiver's
// side: it is always the party that speaks first, computing its blinded
// point eagerly (pake.Sender role) and posting it alongside the literal
// curve name, then waiting for the peer's point and salt.
func keyExchangeAsReceiver(framer *protocol.Framer, weakKey []byte) (*controlChannel, error) {
	p, err := pake.New(pake.Sender, weakKey)
	if err != nil {
		return nil, fmt.Errorf("transfer: init inner pake: %w", err)
	}

	pubRaw, err := json.Marshal(p.Public())
	if err != nil {
		return nil, fmt.Errorf("transfer: encode inner pake pub key: %w", err)
	}
	if err := framer.WriteFrame(mustEncode(protocol.PakeMessage{B: pubRaw, B2: []byte(curveName)})); err != nil {
		return nil, fmt.Errorf("transfer: write inner pake message: %w", err)
	}

	reply, err := readMessage(framer)
	if err != nil {
		return nil, fmt.Errorf("transfer: read inner pake reply: %w", err)
	}
	pakeReply, ok := reply.(protocol.PakeMessage)
	if !ok {
		return nil, fmt.Errorf("%w: expected pake reply, got %T", ErrInvalidState, reply)
	}

	var peerPub pake.PakePubKey
	if err := json.Unmarshal(pakeReply.B, &peerPub); err != nil {
		return nil, fmt.Errorf("transfer: decode peer pake pub key: %w", err)
	}
	if err := p.Update(peerPub); err != nil {
		return nil, fmt.Errorf("transfer: inner pake update: %w", err)
	}
	sessionKey, err := p.SessionKey()
	if err != nil {
		return nil, fmt.Errorf("transfer: derive inner session key: %w", err)
	}

	env, err := envelope.New(sessionKey, pakeReply.B2)
	if err != nil {
		return nil, fmt.Errorf("transfer: build inner envelope: %w", err)
	}
	return &controlChannel{framer: framer, env: env}, nil
}

// keyExchangeAsSender runs the inner PAKE from the transfer-sender's side:
// it waits for the receiver's point, validates the announced curve, plays
// the receiver role of the PAKE (computing its own point only now that the
// peer's is known), and generates the salt that seeds the shared envelope
// for the rest of the session.
func keyExchangeAsSender(framer *protocol.Framer, weakKey []byte) (*controlChannel, error) {
	first, err := readMessage(framer)
	if err != nil {
		return nil, fmt.Errorf("transfer: read inner pake open: %w", err)
	}
	opening, ok := first.(protocol.PakeMessage)
	if !ok {
		return nil, fmt.Errorf("%w: expected pake open, got %T", ErrInvalidState, first)
	}
	if string(opening.B2) != curveName {
		return nil, fmt.Errorf("%w: %q", ErrCurveNotSupported, opening.B2)
	}

	var peerPub pake.PakePubKey
	if err := json.Unmarshal(opening.B, &peerPub); err != nil {
		return nil, fmt.Errorf("transfer: decode peer pake pub key: %w", err)
	}

	p, err := pake.New(pake.Receiver, weakKey)
	if err != nil {
		return nil, fmt.Errorf("transfer: init inner pake: %w", err)
	}
	if err := p.Update(peerPub); err != nil {
		return nil, fmt.Errorf("transfer: inner pake update: %w", err)
	}
	sessionKey, err := p.SessionKey()
	if err != nil {
		return nil, fmt.Errorf("transfer: derive inner session key: %w", err)
	}

	env, err := envelope.New(sessionKey, nil)
	if err != nil {
		return nil, fmt.Errorf("transfer: build inner envelope: %w", err)
	}
	salt := env.Salt()

	pubRaw, err := json.Marshal(p.Public())
	if err != nil {
		return nil, fmt.Errorf("transfer: encode inner pake pub key: %w", err)
	}
	if err := framer.WriteFrame(mustEncode(protocol.PakeMessage{B: pubRaw, B2: salt[:]})); err != nil {
		return nil, fmt.Errorf("transfer: write inner pake reply: %w", err)
	}

	return &controlChannel{framer: framer, env: env}, nil
}

func readMessage(framer *protocol.Framer) (protocol.Message, error) {
	raw, err := framer.ReadFrame()
	if err != nil {
		return nil, err
	}
	return protocol.Decode(raw)
}

func mustEncode(m protocol.Message) []byte {
	raw, err := protocol.Encode(m)
	if err != nil {
		panic(fmt.Sprintf("transfer: encode %T: %v", m, err))
	}
	return raw
}
