package skiplist

import "math/rand/v2"

// levelGenerator draws node heights from a geometric distribution truncated at maxHeight,
// so that P(height >= k) = p^(k-1) for every k <= maxHeight.
type levelGenerator struct {
	rnd       *rand.Rand
	p         float64
	maxHeight int
}

// newLevelGenerator is the constructor for levelGenerator. The generator owns `source`.
func newLevelGenerator(p float64, maxHeight int, source rand.Source) *levelGenerator {
	return &levelGenerator{rnd: rand.New(source), p: p, maxHeight: maxHeight}
}

// newEntropySource returns a PCG source seeded from the runtime's nondeterministic generator.
func newEntropySource() rand.Source {
	return rand.NewPCG(rand.Uint64(), rand.Uint64())
}

// generate returns a height in [1, maxHeight]. No random number is drawn once the cap is reached.
func (g *levelGenerator) generate() int {
	height := 1
	for height < g.maxHeight && g.rnd.Float64() < g.p {
		height++
	}
	return height
}
