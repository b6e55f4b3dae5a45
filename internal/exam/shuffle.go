package exam

import "math/rand"

// Rand is the source of randomness for shuffling.
type Rand interface {
	Intn(n int) int
}

type globalRand struct{}

func (globalRand) Intn(n int) int {
	return rand.Intn(n)
}

// DefaultRand uses the process-wide generator and is safe for concurrent use.
var DefaultRand Rand = globalRand{}

// Shuffle permutes items in place with Fisher-Yates: for i from len-1 down to 1
// it swaps i with a j drawn uniformly from [0, i].
func Shuffle[T any](items []T, r Rand) {
	for i := len(items) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// shuffledIndices returns a random ordering of 0..n-1.
func shuffledIndices(n int, r Rand) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	Shuffle(out, r)
	return out
}
