package mersenne

import (
	"math"
	"math/big"
	"time"
)

// DefaultRounds is the Miller-Rabin round count used for the exponent and
// Euler-divisor primality pre-checks. 25 rounds bound the false-positive
// probability by 4^-25.
const DefaultRounds = 25

// Verdict classifies one candidate exponent.
type Verdict int

const (
	// VerdictCompositeExponent: p itself is not prime, so M_p cannot be.
	// By convention p = 1 (and p = 0) land here.
	VerdictCompositeExponent Verdict = iota

	// VerdictCompositeFactor: a divisor of M_p was found, either through
	// the Euler 2p+1 shortcut or by trial division.
	VerdictCompositeFactor

	// VerdictCompositeLucasLehmer: every cheap filter passed but the
	// Lucas-Lehmer residue was nonzero.
	VerdictCompositeLucasLehmer

	// VerdictProbablePrime: M_p passed the Lucas-Lehmer test. Discoveries
	// still require an independent verification run.
	VerdictProbablePrime
)

// String returns the verdict name.
func (v Verdict) String() string {
	switch v {
	case VerdictCompositeExponent:
		return "composite-exponent"
	case VerdictCompositeFactor:
		return "composite-factor"
	case VerdictCompositeLucasLehmer:
		return "composite-lucas-lehmer"
	case VerdictProbablePrime:
		return "probable-prime"
	default:
		return "unknown"
	}
}

// Prime reports whether the verdict is positive.
func (v Verdict) Prime() bool {
	return v == VerdictProbablePrime
}

// Result is the outcome of testing a single candidate exponent.
type Result struct {
	Exponent uint64
	Verdict  Verdict

	// Factor is the divisor of M_p that eliminated the candidate, zero
	// when the verdict was reached without one.
	Factor uint64

	// LucasLehmer reports whether the candidate survived every cheap
	// filter and the full Lucas-Lehmer sequence was run.
	LucasLehmer bool

	Elapsed time.Duration
}

// Tester evaluates candidate exponents through a cascade of increasingly
// expensive filters, falling back to the Lucas-Lehmer sequence test only
// when every cheap rejection fails. A Tester keeps no state between
// calls; concurrent use is safe as long as the hook is.
type Tester struct {
	// Rounds is the Miller-Rabin round count for the probabilistic
	// pre-checks; values below one fall back to DefaultRounds.
	Rounds int

	// OnLucasLehmer, when set, fires just before the Lucas-Lehmer
	// sequence starts for a candidate that passed all filters.
	OnLucasLehmer func(p uint64)
}

// NewTester returns a tester using the given Miller-Rabin round count.
func NewTester(rounds int) *Tester {
	return &Tester{Rounds: rounds}
}

// Test classifies the exponent p. Every input yields a definite verdict;
// there are no error conditions.
func (t *Tester) Test(p uint64) Result {
	start := time.Now()
	res := t.test(p)
	res.Exponent = p
	res.Elapsed = time.Since(start)
	return res
}

func (t *Tester) test(p uint64) Result {
	rounds := t.Rounds
	if rounds < 1 {
		rounds = DefaultRounds
	}

	// M_2 = 3 is the smallest Mersenne prime.
	if p == 2 {
		return Result{Verdict: VerdictProbablePrime}
	}

	// A composite exponent always yields a composite Mersenne number.
	// ProbablyPrime classifies 0 and 1 as not prime, which is exactly
	// the boundary behavior the search needs for p = 1.
	if !new(big.Int).SetUint64(p).ProbablyPrime(rounds) {
		return Result{Verdict: VerdictCompositeExponent}
	}

	// Euler: for prime p ≡ 3 (mod 4), a prime q = 2p+1 divides M_p.
	if p > 3 && p%4 == 3 {
		q := 2*p + 1
		if new(big.Int).SetUint64(q).ProbablyPrime(rounds) && HasFactor(q, p) {
			return Result{Verdict: VerdictCompositeFactor, Factor: q}
		}
	}

	// Trial division over divisors of the special form q = 2pk+1. Any
	// divisor of M_p is ≡ ±1 (mod 8); multiples of 3, 5, 7 are screened
	// before the modular exponentiation. The upper bound exists only to
	// keep q representable, not as a mathematical cutoff.
	tlim := p / 2
	if lim := math.MaxUint64 / (2 * p); lim < tlim {
		tlim = lim
	}
	for k := uint64(1); k < tlim; k++ {
		q := 2*p*k + 1
		if r := q % 8; r != 1 && r != 7 {
			continue
		}
		if q%3 == 0 || q%5 == 0 || q%7 == 0 {
			continue
		}
		if HasFactor(q, p) {
			return Result{Verdict: VerdictCompositeFactor, Factor: q}
		}
	}

	if t.OnLucasLehmer != nil {
		t.OnLucasLehmer(p)
	}

	if lucasLehmer(p) {
		return Result{Verdict: VerdictProbablePrime, LucasLehmer: true}
	}
	return Result{Verdict: VerdictCompositeLucasLehmer, LucasLehmer: true}
}

// lucasLehmer runs the Lucas-Lehmer sequence for prime p > 2: V starts at
// 4 and iterates V <- V^2 - 2 (mod M_p); M_p is prime exactly when the
// final V is zero. Reduction uses the bit-split-and-fold in Mod rather
// than generic division.
func lucasLehmer(p uint64) bool {
	two := big.NewInt(2)
	m := New(p)
	v := big.NewInt(4)
	for k := uint64(3); k <= p; k++ {
		v.Mul(v, v)
		v.Sub(v, two)
		if v.Sign() < 0 {
			v.Add(v, m)
		}
		Mod(v, m, p)
	}
	return v.Sign() == 0
}
