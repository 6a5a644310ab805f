// Package dice provides the randomness abstraction used by the battle engine
// for random targeting, enemy behaviour, and room code generation.
package dice

// Source is the randomness provider.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// Pick returns a uniformly chosen index in [0, n), or -1 when n <= 0.
func Pick(src Source, n int) int {
	if n <= 0 {
		return -1
	}
	return src.Intn(n)
}

// Chance reports whether a roll in [0, 100) lands below percent.
//
// Postcondition: percent <= 0 always returns false; percent >= 100 always returns true.
func Chance(src Source, percent int) bool {
	if percent <= 0 {
		return false
	}
	if percent >= 100 {
		return true
	}
	return src.Intn(100) < percent
}
