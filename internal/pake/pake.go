// Package pake implements the SPAKE2-style password-authenticated key
// exchange run over the SIEC255 curve (package curve). Two Pake values, one
// per side, each constructed with the same weak secret but opposite roles,
// exchange one PakePubKey message each and derive an identical 32-byte
// session key without ever putting the secret on the wire.
package pake

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/postalsys/croc-go/internal/curve"
)

// Role identifies which side of the exchange a Pake value plays. It is
// unrelated to which side is sending or receiving files — the inner PAKE
// run between two croc-go clients assigns these roles independently of
// file-transfer direction, and the outer PAKE run against the relay always
// has the relay as Receiver.
type Role int

const (
	Sender Role = iota
	Receiver
)

func (r Role) String() string {
	if r == Sender {
		return "sender"
	}
	return "receiver"
}

var (
	ErrSameRole        = errors.New("pake: peer announced the same role as us")
	ErrPointNotOnCurve = errors.New("pake: peer point is not on curve")
	ErrInvalidPoint    = errors.New("pake: peer point has only one coordinate set")
	ErrInvalidAlpha    = errors.New("pake: internal state not initialized for this operation")
)

// PakePubKey is the wire message exchanged by the two sides. X is populated
// by the Sender role, Y by the Receiver role; the coordinate not owned by a
// role's message is left nil (serialized as JSON null per spec §3).
type PakePubKey struct {
	Role Role     `json:"Role"`
	Uu   *big.Int `json:"Uᵤ"`
	Uv   *big.Int `json:"Uᵥ"`
	Vu   *big.Int `json:"Vᵤ"`
	Vv   *big.Int `json:"Vᵥ"`
	Xu   *big.Int `json:"Xᵤ"`
	Xv   *big.Int `json:"Xᵥ"`
	Yu   *big.Int `json:"Yᵤ"`
	Yv   *big.Int `json:"Yᵥ"`
}

func pointOf(u, v *big.Int) (curve.Point, error) {
	if (u == nil) != (v == nil) {
		return curve.Point{}, ErrInvalidPoint
	}
	if u == nil {
		return curve.Point{}, nil
	}
	return curve.Point{X: u, Y: v}, nil
}

// Pake drives one side of the exchange. It is not safe for concurrent use.
type Pake struct {
	role    Role
	pwScal  *big.Int
	rawKey  []byte
	alpha   *big.Int
	pub     PakePubKey
	ready   bool // X (Sender) or Y (Receiver) has been computed
	derived []byte
}

// New constructs a Pake for the given role and weak secret. A Sender
// immediately computes its blinded point X; a Receiver waits for Update to
// see the peer's X before it can compute its own Y.
func New(role Role, weakKey []byte) (*Pake, error) {
	p := &Pake{
		role:   role,
		pwScal: new(big.Int).SetBytes(weakKey),
		rawKey: append([]byte(nil), weakKey...),
	}
	p.pub = PakePubKey{
		Role: role,
		Uu:   new(big.Int).Set(curve.U.X),
		Uv:   new(big.Int).Set(curve.U.Y),
		Vu:   new(big.Int).Set(curve.V.X),
		Vv:   new(big.Int).Set(curve.V.Y),
	}

	if role == Sender {
		alpha, err := randomScalar()
		if err != nil {
			return nil, err
		}
		p.alpha = alpha

		uPw := curve.ScalarMult(curve.U, p.pwScal)
		alphaG := curve.ScalarMult(curve.G, alpha)
		x := curve.Add(uPw, alphaG)

		p.pub.Xu = x.X
		p.pub.Xv = x.Y
		p.ready = true
	}

	return p, nil
}

// Public returns this side's public message. For a Receiver, it is only
// valid after a successful call to Update.
func (p *Pake) Public() PakePubKey {
	return p.pub
}

// Update consumes the peer's public message, validates it, and derives the
// shared session key. For a Receiver this also computes this side's own Y
// so that Public can be sent back to the peer.
func (p *Pake) Update(peer PakePubKey) error {
	if peer.Role == p.role {
		return ErrSameRole
	}

	switch p.role {
	case Sender:
		return p.updateAsSender(peer)
	default:
		return p.updateAsReceiver(peer)
	}
}

func (p *Pake) updateAsSender(peer PakePubKey) error {
	if !p.ready || p.alpha == nil {
		return ErrInvalidAlpha
	}

	y, err := pointOf(peer.Yu, peer.Yv)
	if err != nil {
		return err
	}
	if y.IsZero() {
		return fmt.Errorf("%w: Y missing", ErrInvalidPoint)
	}
	if !curve.IsOnCurve(y) {
		return ErrPointNotOnCurve
	}

	vPw := curve.ScalarMult(curve.V, p.pwScal)
	diff := curve.Sub(y, vPw)
	z := curve.ScalarMult(diff, p.alpha)

	x := curve.Point{X: p.pub.Xu, Y: p.pub.Xv}
	p.derived = deriveKey(p.rawKey, x, y, z)
	return nil
}

func (p *Pake) updateAsReceiver(peer PakePubKey) error {
	x, err := pointOf(peer.Xu, peer.Xv)
	if err != nil {
		return err
	}
	if x.IsZero() {
		return fmt.Errorf("%w: X missing", ErrInvalidPoint)
	}
	if !curve.IsOnCurve(x) {
		return ErrPointNotOnCurve
	}

	alpha, err := randomScalar()
	if err != nil {
		return err
	}
	p.alpha = alpha

	vPw := curve.ScalarMult(curve.V, p.pwScal)
	alphaG := curve.ScalarMult(curve.G, alpha)
	y := curve.Add(vPw, alphaG)

	uPw := curve.ScalarMult(curve.U, p.pwScal)
	diff := curve.Sub(x, uPw)
	z := curve.ScalarMult(diff, alpha)

	p.pub.Yu = y.X
	p.pub.Yv = y.Y
	p.ready = true

	p.derived = deriveKey(p.rawKey, x, y, z)
	return nil
}

// SessionKey returns the 32-byte key derived by Update. It returns
// ErrInvalidAlpha if Update has not yet succeeded.
func (p *Pake) SessionKey() ([]byte, error) {
	if p.derived == nil {
		return nil, ErrInvalidAlpha
	}
	return p.derived, nil
}

func randomScalar() (*big.Int, error) {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, fmt.Errorf("pake: read random scalar: %w", err)
	}
	return new(big.Int).SetBytes(buf), nil
}

// be renders n as a big-endian signed two's-complement byte string, the
// empty string for zero (spec.md §4.2: "be(·) is big-endian signed
// two's-complement"). Every coordinate handled here is non-negative
// (reduced into [0, P) by package curve), so the only adjustment needed
// versus the unsigned magnitude is a leading 0x00 byte whenever the
// magnitude's top bit is set, so it isn't misread as a negative number.
func be(n *big.Int) []byte {
	if n == nil || n.Sign() == 0 {
		return nil
	}
	b := n.Bytes()
	if b[0]&0x80 != 0 {
		b = append([]byte{0x00}, b...)
	}
	return b
}

func deriveKey(pw []byte, x, y, z curve.Point) []byte {
	h := sha256.New()
	h.Write(pw)
	h.Write(be(x.X))
	h.Write(be(x.Y))
	h.Write(be(y.X))
	h.Write(be(y.Y))
	h.Write(be(z.X))
	h.Write(be(z.Y))
	return h.Sum(nil)
}
