package game

import (
	"math/rand/v2"
	"slices"

	"github.com/mossy-p/tombola/internal/apperr"
)

// maxDrawAttempts bounds rejection sampling before the linear fallback.
const maxDrawAttempts = 100

var (
	ErrExhausted   = apperr.New(apperr.ErrCapacity, "all 90 numbers have already been extracted")
	ErrOutOfRange  = apperr.New(apperr.ErrInvalid, "number out of range")
	ErrAlreadySeen = apperr.New(apperr.ErrInvalid, "number already extracted")
)

// Draw is the ordered set of numbers extracted in one game.
type Draw struct {
	order []int
	seen  [MaxNumber + 1]bool
}

func (d *Draw) Has(n int) bool {
	return n >= MinNumber && n <= MaxNumber && d.seen[n]
}

func (d *Draw) Len() int { return len(d.order) }

func (d *Draw) Exhausted() bool { return len(d.order) == MaxNumber }

// Numbers returns a copy of the extracted numbers in draw order.
func (d *Draw) Numbers() []int { return slices.Clone(d.order) }

// Last returns the most recent number, or 0 before the first extraction.
func (d *Draw) Last() int {
	if len(d.order) == 0 {
		return 0
	}
	return d.order[len(d.order)-1]
}

func (d *Draw) Add(n int) error {
	if n < MinNumber || n > MaxNumber {
		return ErrOutOfRange
	}
	if d.seen[n] {
		return ErrAlreadySeen
	}
	d.seen[n] = true
	d.order = append(d.order, n)
	return nil
}

func (d *Draw) Reset() {
	d.order = nil
	d.seen = [MaxNumber + 1]bool{}
}

// NextNumber picks a number not yet in d without recording it.
//
// Sampling is uniform for up to maxDrawAttempts tries. After that the lowest
// unused number is returned so the draw always terminates; near exhaustion
// this biases the last few numbers toward the low end.
func NextNumber(d *Draw, rng *rand.Rand) (int, error) {
	if d.Exhausted() {
		return 0, ErrExhausted
	}

	for range maxDrawAttempts {
		n := rng.IntN(MaxNumber) + MinNumber
		if !d.seen[n] {
			return n, nil
		}
	}

	for n := MinNumber; n <= MaxNumber; n++ {
		if !d.seen[n] {
			return n, nil
		}
	}
	return 0, ErrExhausted
}
