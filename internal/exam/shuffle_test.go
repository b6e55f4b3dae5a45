package exam

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedRand returns n-1 for every draw, which keeps slices in place.
type fixedRand struct{}

func (fixedRand) Intn(n int) int { return n - 1 }

// zeroRand always swaps with the first element.
type zeroRand struct{}

func (zeroRand) Intn(int) int { return 0 }

// recordingRand remembers the bounds it was asked for.
type recordingRand struct {
	bounds []int
}

func (r *recordingRand) Intn(n int) int {
	r.bounds = append(r.bounds, n)
	return 0
}

func TestShuffleKeepsMultiset(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 20; n++ {
		items := make([]int, n)
		for i := range items {
			items[i] = i % 4
		}
		want := append([]int(nil), items...)

		Shuffle(items, rng)

		assert.Equal(t, sortedCopy(want), sortedCopy(items), "n=%d", n)
	}
}

func TestShuffleDrawsFromShrinkingRange(t *testing.T) {
	r := &recordingRand{}
	Shuffle([]string{"a", "b", "c", "d"}, r)
	assert.Equal(t, []int{4, 3, 2}, r.bounds)
}

func TestShuffleWithZeroRand(t *testing.T) {
	items := []string{"a", "b", "c"}
	Shuffle(items, zeroRand{})
	// i=2 swaps with 0: c b a; i=1 swaps with 0: b c a
	assert.Equal(t, []string{"b", "c", "a"}, items)
}

func TestShuffleEmptyAndSingle(t *testing.T) {
	r := &recordingRand{}
	Shuffle([]int{}, r)
	Shuffle([]int{1}, r)
	assert.Empty(t, r.bounds)
}

func TestShuffledIndicesIsPermutation(t *testing.T) {
	got := shuffledIndices(5, rand.New(rand.NewSource(3)))
	require.Len(t, got, 5)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, sortedCopy(got))

	assert.Equal(t, []int{0, 1, 2}, shuffledIndices(3, fixedRand{}))
}

func TestShuffleIsRoughlyUniform(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	counts := map[[3]int]int{}
	const rounds = 6000
	for i := 0; i < rounds; i++ {
		items := []int{0, 1, 2}
		Shuffle(items, rng)
		counts[[3]int{items[0], items[1], items[2]}]++
	}
	require.Len(t, counts, 6)
	for perm, c := range counts {
		assert.InDelta(t, rounds/6, c, 150, "permutation %v", perm)
	}
}

func sortedCopy(in []int) []int {
	out := append([]int(nil), in...)
	sort.Ints(out)
	return out
}
