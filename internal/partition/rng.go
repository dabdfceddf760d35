package partition

// LCG is the 32-bit linear congruential generator used to bias splits.
// The state is explicit so identical seeds reproduce identical partitions.
type LCG struct {
	state uint32
}

// NewLCG seeds a generator.
func NewLCG(seed uint32) *LCG {
	return &LCG{state: seed}
}

// Next advances the state (mod 2^32) and returns it.
func (g *LCG) Next() uint32 {
	g.state = g.state*1664525 + 1013904223
	return g.state
}

// Float64 returns a value in [0, 1).
func (g *LCG) Float64() float64 {
	return float64(g.Next()) / 4294967296.0
}

// State returns the current generator state.
func (g *LCG) State() uint32 {
	return g.state
}
