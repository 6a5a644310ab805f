package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// chachaSource draws from a ChaCha8 stream. It is safe for concurrent use.
type chachaSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewCryptoSource returns a Source over a ChaCha8 stream keyed from
// crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return newChaCha(seed)
}

// NewSeededSource returns a reproducible Source; the same seed yields the
// same sequence.
func NewSeededSource(seed uint64) Source {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	return newChaCha(key)
}

func newChaCha(seed [32]byte) *chachaSource {
	return &chachaSource{rng: rand.New(rand.NewChaCha8(seed))}
}

// Intn returns a uniform int in [0, n).
//
// Precondition: n > 0.
func (c *chachaSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.IntN(n)
}
