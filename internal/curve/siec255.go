// Package curve implements SIEC255, the short Weierstrass curve used by the
// SPAKE2-style PAKE in package pake. It is not a general-purpose elliptic
// curve library: only the operations the PAKE needs (point addition,
// doubling, scalar multiplication, on-curve validation) are implemented.
package curve

import "math/big"

// Curve parameters (spec §6, decimal).
var (
	// P is the field prime.
	P, _ = new(big.Int).SetString("28948022309329048855892746252183396360603931420023084536990047309120118726721", 10)

	// N is the order of the base point's subgroup.
	N, _ = new(big.Int).SetString("28948022309329048855892746252183396360263649053102146073526672701688283398081", 10)

	// A and B are the curve coefficients: y^2 = x^3 + A*x + B.
	A = big.NewInt(0)
	B = big.NewInt(19)

	// G is the base point.
	G = Point{X: big.NewInt(5), Y: big.NewInt(12)}

	// U and V are the fixed public constants used to blind the PAKE
	// messages for the sender and receiver roles respectively.
	U = Point{
		mustInt("793136080485469241208656611513609866400481671853"),
		mustInt("18458907634222644275952014841865282643645472623913459400556233196838128612339"),
	}
	V = Point{
		mustInt("1086685267857089638167386722555472967068468061489"),
		mustInt("19593504966619549205903364028255899745298716108914514072669075231742699650911"),
	}
)

func mustInt(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("curve: invalid constant " + s)
	}
	return n
}

// Point is an affine point on SIEC255. A nil X and Y represents the point at
// infinity (the group identity).
type Point struct {
	X, Y *big.Int
}

// IsZero reports whether p is the identity element.
func (p Point) IsZero() bool {
	return p.X == nil || p.Y == nil
}

// mod reduces x modulo m into [0, m). big.Int.Mod already normalizes
// negative dividends into this range, but callers that compute differences
// (e.g. Y-V_pw) rely on that normalization happening consistently on both
// sides of the PAKE, so every subtraction in this package routes through
// this helper instead of raw Sub+Mod calls.
func mod(x, m *big.Int) *big.Int {
	r := new(big.Int).Mod(x, m)
	return r
}

// IsOnCurve reports whether p satisfies y^2 = x^3 + A*x + B (mod P).
// The identity element is considered on-curve.
func IsOnCurve(p Point) bool {
	if p.IsZero() {
		return true
	}
	if p.X.Sign() < 0 || p.X.Cmp(P) >= 0 || p.Y.Sign() < 0 || p.Y.Cmp(P) >= 0 {
		return false
	}

	y2 := mod(new(big.Int).Mul(p.Y, p.Y), P)

	x3 := new(big.Int).Mul(p.X, p.X)
	x3.Mul(x3, p.X)
	rhs := new(big.Int).Mul(A, p.X)
	rhs.Add(x3, rhs)
	rhs.Add(rhs, B)
	rhs = mod(rhs, P)

	return y2.Cmp(rhs) == 0
}

// Neg returns the additive inverse of p.
func Neg(p Point) Point {
	if p.IsZero() {
		return p
	}
	return Point{X: new(big.Int).Set(p.X), Y: mod(new(big.Int).Neg(p.Y), P)}
}

// Double returns p + p.
func Double(p Point) Point {
	if p.IsZero() || p.Y.Sign() == 0 {
		return Point{}
	}

	// lambda = (3*x^2 + A) / (2*y)
	num := new(big.Int).Mul(p.X, p.X)
	num.Mul(num, big.NewInt(3))
	num.Add(num, A)
	num = mod(num, P)

	den := new(big.Int).Mul(big.NewInt(2), p.Y)
	den = mod(den, P)
	denInv := new(big.Int).ModInverse(den, P)
	if denInv == nil {
		return Point{}
	}
	lambda := mod(new(big.Int).Mul(num, denInv), P)

	x3 := new(big.Int).Mul(lambda, lambda)
	x3.Sub(x3, p.X)
	x3.Sub(x3, p.X)
	x3 = mod(x3, P)

	y3 := new(big.Int).Sub(p.X, x3)
	y3.Mul(y3, lambda)
	y3.Sub(y3, p.Y)
	y3 = mod(y3, P)

	return Point{X: x3, Y: y3}
}

// Add returns p + q.
func Add(p, q Point) Point {
	if p.IsZero() {
		return q
	}
	if q.IsZero() {
		return p
	}
	if p.X.Cmp(q.X) == 0 {
		if mod(new(big.Int).Add(p.Y, q.Y), P).Sign() == 0 {
			return Point{} // p == -q
		}
		return Double(p)
	}

	// lambda = (q.y - p.y) / (q.x - p.x)
	num := mod(new(big.Int).Sub(q.Y, p.Y), P)
	den := mod(new(big.Int).Sub(q.X, p.X), P)
	denInv := new(big.Int).ModInverse(den, P)
	if denInv == nil {
		return Point{}
	}
	lambda := mod(new(big.Int).Mul(num, denInv), P)

	x3 := new(big.Int).Mul(lambda, lambda)
	x3.Sub(x3, p.X)
	x3.Sub(x3, q.X)
	x3 = mod(x3, P)

	y3 := new(big.Int).Sub(p.X, x3)
	y3.Mul(y3, lambda)
	y3.Sub(y3, p.Y)
	y3 = mod(y3, P)

	return Point{X: x3, Y: y3}
}

// Sub returns p - q.
func Sub(p, q Point) Point {
	return Add(p, Neg(q))
}

// ScalarMult returns [k]p using MSB-first double-and-add. k is treated as an
// unsigned big-endian scalar; it need not run in constant time (spec §9).
func ScalarMult(p Point, k *big.Int) Point {
	result := Point{}
	if p.IsZero() || k.Sign() == 0 {
		return result
	}

	addend := p
	for i := k.BitLen() - 1; i >= 0; i-- {
		result = Double(result)
		if k.Bit(i) == 1 {
			result = Add(result, addend)
		}
	}
	return result
}
