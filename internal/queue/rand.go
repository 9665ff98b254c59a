package queue

import (
	"math/rand"
	"time"
)

// Rand is the random source used by the builders. Tests pass a seeded source
// so shuffles and draws are reproducible.
type Rand interface {
	Intn(n int) int
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// NewRand returns a Rand seeded with seed.
func NewRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed))
}

// DefaultRand returns a Rand seeded from the clock.
func DefaultRand() Rand {
	return NewRand(time.Now().UnixNano())
}

// shuffled returns a Fisher-Yates shuffled copy of items.
func shuffled[T any](items []T, rnd Rand) []T {
	out := make([]T, len(items))
	copy(out, items)
	rnd.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
