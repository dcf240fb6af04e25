package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/postalsys/croc-go/internal/envelope"
	"github.com/postalsys/croc-go/internal/pake"
	"github.com/postalsys/croc-go/internal/protocol"
)

// banner is the parsed form of the relay's "<ports_or_ok>|||<peer_addr>"
// reply.
type banner struct {
	multiplexPorts []string
	peerAddr       string
}

func parseBanner(raw string) banner {
	parts := strings.SplitN(raw, "|||", 2)
	b := banner{peerAddr: ""}
	if len(parts) > 0 && parts[0] != "ok" && parts[0] != "" {
		b.multiplexPorts = strings.Split(parts[0], ",")
	}
	if len(parts) > 1 {
		b.peerAddr = parts[1]
	}
	return b
}

// dialRelay opens a TCP connection to address. The 10-second timeout
// bounds only the connect itself; no read or write deadline is set on the
// returned connection.
func dialRelay(ctx context.Context, address string) (net.Conn, error) {
	d := net.Dialer{Timeout: 10 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("transfer: dial relay %s: %w", address, err)
	}
	return conn, nil
}

// negotiateWithRelay runs the client side of the relay handshake: PAKE as
// sender against the relay's receiver, an AEAD envelope seeded by a salt
// this side generates, the relay password, the banner, and the room join.
// It mirrors relay.negotiate from the other side of the wire. The framer
// is left positioned for plain framed I/O immediately afterward; the
// envelope built here is discarded once this function returns.
func negotiateWithRelay(framer *protocol.Framer, password, roomName string) (banner, error) {
	p, err := pake.New(pake.Sender, nil)
	if err != nil {
		return banner{}, fmt.Errorf("transfer: init relay pake: %w", err)
	}
	if err := writePakePubKey(framer, p.Public()); err != nil {
		return banner{}, fmt.Errorf("transfer: write relay pake pub key: %w", err)
	}

	peerPub, err := readPakePubKey(framer)
	if err != nil {
		return banner{}, fmt.Errorf("transfer: read relay pake pub key: %w", err)
	}
	if err := p.Update(peerPub); err != nil {
		return banner{}, fmt.Errorf("transfer: relay pake update: %w", err)
	}
	sessionKey, err := p.SessionKey()
	if err != nil {
		return banner{}, fmt.Errorf("transfer: derive relay session key: %w", err)
	}

	env, err := envelope.New(sessionKey, nil)
	if err != nil {
		return banner{}, fmt.Errorf("transfer: build relay envelope: %w", err)
	}
	salt := env.Salt()
	if err := framer.WriteFrame(salt[:]); err != nil {
		return banner{}, fmt.Errorf("transfer: write relay salt: %w", err)
	}

	sendSecure := func(plain []byte) error {
		ct, err := env.Encrypt(plain)
		if err != nil {
			return err
		}
		return framer.WriteFrame(ct)
	}
	recvSecure := func() ([]byte, error) {
		ct, err := framer.ReadFrame()
		if err != nil {
			return nil, err
		}
		return env.Decrypt(ct)
	}

	if err := sendSecure([]byte(password)); err != nil {
		return banner{}, fmt.Errorf("transfer: send relay password: %w", err)
	}

	bannerFrame, err := recvSecure()
	if err != nil {
		return banner{}, fmt.Errorf("transfer: read relay banner: %w", err)
	}
	if string(bannerFrame) == "bad password" {
		return banner{}, ErrBadPassword
	}

	if err := sendSecure([]byte(roomName)); err != nil {
		return banner{}, fmt.Errorf("transfer: send room name: %w", err)
	}

	reply, err := recvSecure()
	if err != nil {
		return banner{}, fmt.Errorf("transfer: read room reply: %w", err)
	}
	switch string(reply) {
	case "ok":
		return parseBanner(string(bannerFrame)), nil
	case "room full":
		return banner{}, ErrRoomFull
	default:
		return banner{}, ErrRoomNegotiationFailed
	}
}

func readPakePubKey(framer *protocol.Framer) (pake.PakePubKey, error) {
	var pub pake.PakePubKey
	raw, err := framer.ReadFrame()
	if err != nil {
		return pub, err
	}
	if err := json.Unmarshal(raw, &pub); err != nil {
		return pub, fmt.Errorf("transfer: decode pake pub key: %w", err)
	}
	return pub, nil
}

func writePakePubKey(framer *protocol.Framer, pub pake.PakePubKey) error {
	raw, err := json.Marshal(pub)
	if err != nil {
		return fmt.Errorf("transfer: encode pake pub key: %w", err)
	}
	return framer.WriteFrame(raw)
}
