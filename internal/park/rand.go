package park

import "math/rand/v2"

const (
	saltGuests uint64 = 0x9e3779b97f4a7c15
	saltStaff  uint64 = 0xc2b2ae3d27d4eb4f
	saltClouds uint64 = 0x165667b19e3779f9
)

// tickRand returns a generator that depends only on the snapshot's seed, its
// tick and the caller's salt, so every peer advancing the same snapshot draws
// the same numbers.
func tickRand(w WorldState, salt uint64) *rand.Rand {
	return rand.New(rand.NewPCG(w.Seed^salt, w.Tick*0x2545f4914f6cdd1d+salt))
}
