package transfer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"

	"github.com/postalsys/croc-go/internal/confirm"
	"github.com/postalsys/croc-go/internal/localnet"
	"github.com/postalsys/croc-go/internal/logging"
	"github.com/postalsys/croc-go/internal/protocol"
)

// Role identifies which side of a file transfer this session drives. It is
// independent of the PAKE role either side happens to play on the wire.
type Role int

const (
	RoleSender Role = iota
	RoleReceiver
)

// State is the client session's current phase. Transitions are strictly
// forward.
type State int

const (
	StateKeyExchange State = iota
	StateIPExchange
	StateFileInfoTransfer
	StateFileTransfer
	StateFileTransferred
)

// defaultRelayPassword is the relay's own password default; it has nothing
// to do with MultiplexPassword below.
const defaultRelayPassword = "pass123"

// multiplexPassword is unconditionally fixed by the wire protocol for bulk
// ports, independent of Config.RelayPassword.
const multiplexPassword = "pass123"

// Config configures one side of a transfer.
type Config struct {
	// SharedSecret is the human-typed code both sides agree on
	// out-of-band. Must be at least 4 bytes.
	SharedSecret string

	// RelayAddress is the control-channel host:port.
	RelayAddress string

	// RelayPassword gates the control channel. Defaults to "pass123".
	RelayPassword string

	// DisableLocal suppresses local interface addresses in "ips?"
	// keepalive replies.
	DisableLocal bool

	Confirmer  confirm.Confirmer
	Interfaces localnet.InterfaceLister

	Logger *slog.Logger
}

func (c Config) relayPassword() string {
	if c.RelayPassword == "" {
		return defaultRelayPassword
	}
	return c.RelayPassword
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return logging.NopLogger()
	}
	return c.Logger
}

func (c Config) interfaces() localnet.InterfaceLister {
	if c.Interfaces == nil {
		return localnet.SystemLister{}
	}
	return c.Interfaces
}

// mainRoomName is the first three ASCII bytes of the shared secret.
func mainRoomName(secret string) string {
	return secret[:3]
}

// multiplexRoomName is hex(sha256(secret[5:]))[:6] + "-1".
func multiplexRoomName(secret string) string {
	sum := sha256.Sum256([]byte(secret[5:]))
	return hex.EncodeToString(sum[:])[:6] + "-1"
}

// innerWeakKey is the portion of the shared secret not already spent on
// the main room name, used as the weak key for the client-to-client PAKE.
func innerWeakKey(secret string) []byte {
	return []byte(secret[3:])
}

// session holds the state common to both sender and receiver drivers from
// the relay handshake onward; cc is set once the inner PAKE has completed.
type session struct {
	cfg             Config
	role            Role
	conn            net.Conn
	framer          *protocol.Framer
	cc              *controlChannel
	peerIP          string
	selfExternalIP  string
	state           State
	multiplexHost   string
	multiplexPort   string
}

// bootstrap validates the shared secret, dials the relay, negotiates the
// main room, and runs the role-specific pairing handshake (keepalive
// consumption for the receiver, the literal "handshake" frame for the
// sender). On return the inner PAKE has not yet run.
func bootstrap(ctx context.Context, cfg Config, role Role) (*session, error) {
	if len(cfg.SharedSecret) < 4 {
		return nil, ErrBadSharedSecret
	}

	conn, err := dialRelay(ctx, cfg.RelayAddress)
	if err != nil {
		return nil, err
	}

	framer := protocol.NewFramer(conn)
	b, err := negotiateWithRelay(framer, cfg.relayPassword(), mainRoomName(cfg.SharedSecret))
	if err != nil {
		conn.Close()
		return nil, err
	}

	host, _, splitErr := net.SplitHostPort(cfg.RelayAddress)
	if splitErr != nil {
		host = cfg.RelayAddress
	}

	s := &session{
		cfg:            cfg,
		role:           role,
		conn:           conn,
		framer:         framer,
		state:          StateKeyExchange,
		multiplexHost:  host,
		selfExternalIP: b.peerAddr,
	}
	if len(b.multiplexPorts) > 0 {
		s.multiplexPort = b.multiplexPorts[0]
	}

	switch role {
	case RoleReceiver:
		if err := s.consumeKeepalive(); err != nil {
			conn.Close()
			return nil, err
		}
	case RoleSender:
		if err := framer.WriteFrame([]byte("handshake")); err != nil {
			conn.Close()
			return nil, fmt.Errorf("transfer: send handshake: %w", err)
		}
	}

	return s, nil
}

// consumeKeepalive reads frames until the literal "handshake" message
// arrives, answering "ips?" queries and ignoring single-byte keepalive
// pings along the way. Anything else is a fatal protocol error.
func (s *session) consumeKeepalive() error {
	for {
		raw, err := s.framer.ReadFrame()
		if err != nil {
			return fmt.Errorf("transfer: read keepalive frame: %w", err)
		}

		switch {
		case bytes.Equal(raw, []byte{0x01}):
			continue
		case bytes.Equal(raw, []byte("ips?")):
			if err := s.replyIPs(); err != nil {
				return err
			}
		case bytes.Equal(raw, []byte("handshake")):
			return nil
		default:
			return fmt.Errorf("%w: %q", ErrUnknownKeepalive, raw)
		}
	}
}

func (s *session) replyIPs() error {
	if s.cfg.DisableLocal {
		return s.framer.WriteFrame([]byte("[]"))
	}

	ips, err := s.cfg.interfaces().NonLoopbackIPv4()
	if err != nil {
		ips = nil
	}

	entries := make([]string, 0, len(ips)+1)
	entries = append(entries, s.multiplexPort)
	entries = append(entries, ips...)

	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("transfer: encode ips reply: %w", err)
	}
	return s.framer.WriteFrame(raw)
}

// bulkAddress is the host:port of this session's multiplex listener.
func (s *session) bulkAddress() string {
	return net.JoinHostPort(s.multiplexHost, s.multiplexPort)
}
