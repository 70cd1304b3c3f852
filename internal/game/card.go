// Package game holds the pure rules of a tombola round: cards, draws and
// prize detection. Nothing here locks or performs I/O; callers serialize
// access per room.
package game

import (
	"math/rand/v2"
	"slices"
)

const (
	MinNumber = 1
	MaxNumber = 90
	CardSize  = 15
)

// NewCard returns CardSize distinct numbers from [MinNumber, MaxNumber] in
// ascending order. Cards of different players may overlap.
func NewCard(rng *rand.Rand) []int {
	picked := make(map[int]struct{}, CardSize)
	for len(picked) < CardSize {
		picked[rng.IntN(MaxNumber)+MinNumber] = struct{}{}
	}

	card := make([]int, 0, CardSize)
	for n := range picked {
		card = append(card, n)
	}
	slices.Sort(card)
	return card
}

// NewRand returns a generator seeded from runtime entropy.
func NewRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// NewSeededRand returns a deterministic generator.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
