// Package mersenne holds the number theory behind the hunt: construction
// of Mersenne numbers, reduction modulo 2^p-1 without division, divisor
// checks in native integers, and the layered Lucas-Lehmer test applied to
// each candidate exponent.
package mersenne

import (
	"math/big"
	"math/bits"
)

var one = big.NewInt(1)

// Knowns lists the exponents of all known Mersenne primes in ascending
// order (as of the 52nd discovery, M136279841).
var Knowns = []uint64{
	2, 3, 5, 7, 13, 17, 19, 31, 61, 89,
	107, 127, 521, 607, 1279, 2203, 2281, 3217, 4253, 4423,
	9689, 9941, 11213, 19937, 21701, 23209, 44497, 86243, 110503, 132049,
	216091, 756839, 859433, 1257787, 1398269, 2976221, 3021377, 6972593, 13466917, 20996011,
	24036583, 25964951, 30402457, 32582657, 37156667, 42643801, 43112609, 57885161, 74207281, 77232917,
	82589933, 136279841,
}

var known map[uint64]bool

func init() {
	known = make(map[uint64]bool, len(Knowns))
	for _, p := range Knowns {
		known[p] = true
	}
}

// IsKnown reports whether p is the exponent of a known Mersenne prime.
func IsKnown(p uint64) bool {
	return known[p]
}

// New returns M_p = 2^p - 1. The value is built fresh on every call and
// never cached across candidates.
func New(p uint64) *big.Int {
	m := new(big.Int)
	return m.Sub(m.SetBit(m, int(p), 1), one)
}

// Mod reduces v modulo m = M_p in place and returns v. Because
// 2^p ≡ 1 (mod M_p), v splits into its low p bits (masked with m) and the
// remaining high bits (shifted down by p), whose sum is congruent to v.
// The split repeats until v fits in p bits, followed by compare-subtract
// for the v == m edge. This costs shift-and-add instead of the general
// big-integer division a plain Mod would pay.
func Mod(v, m *big.Int, p uint64) *big.Int {
	var hi big.Int
	for v.BitLen() > int(p) {
		hi.Rsh(v, uint(p))
		v.And(v, m)
		v.Add(v, &hi)
	}
	for v.Cmp(m) >= 0 {
		v.Sub(v, m)
	}
	return v
}

// HasFactor reports whether q divides M_p. For odd q this holds exactly
// when 2^p ≡ 1 (mod q), so the check runs in native integers without
// materializing M_p.
func HasFactor(q, p uint64) bool {
	if q == 1 {
		return true
	}
	if q&1 == 0 {
		return false
	}
	return modPow2(p, q) == 1
}

// modPow2 returns 2^e mod m by binary exponentiation over 128-bit
// intermediate products.
func modPow2(e, m uint64) uint64 {
	if m == 1 {
		return 0
	}
	r := uint64(1)
	b := uint64(2) % m
	for ; e > 0; e >>= 1 {
		if e&1 == 1 {
			r = mulMod(r, b, m)
		}
		b = mulMod(b, b, m)
	}
	return r
}

// mulMod returns a*b mod m for a, b < m.
func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi, lo, m)
	return rem
}

// Digits returns the number of decimal digits of M_p.
func Digits(p uint64) uint64 {
	// log10(2^p - 1) rounds to p*log10(2) for every p >= 1.
	const log10of2 = 0.30102999566398119521
	if p == 0 {
		return 1
	}
	return uint64(float64(p)*log10of2) + 1
}
