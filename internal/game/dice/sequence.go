package dice

import "sync"

// SequenceSource replays a fixed list of values, cycling when exhausted.
// Each value is reduced modulo n so it always satisfies the Source contract.
// It is intended for deterministic tests.
type SequenceSource struct {
	mu     sync.Mutex
	values []int
	next   int
}

// NewSequenceSource returns a SequenceSource over values.
//
// Precondition: len(values) > 0.
func NewSequenceSource(values ...int) *SequenceSource {
	if len(values) == 0 {
		values = []int{0}
	}
	return &SequenceSource{values: values}
}

// Intn returns the next value of the sequence reduced into [0, n).
func (s *SequenceSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[s.next%len(s.values)]
	s.next++
	if v < 0 {
		v = -v
	}
	return v % n
}
