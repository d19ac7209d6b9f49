package sim

import "math"

// Accumulator implements the accumulate-and-fire integerization used to turn
// continuous per-period conversion rates into whole-unit creation events.
// The fractional state lives in a stock; the fire count is a pure function
// of that stock, so the conversion stays deterministic and unit-exact:
//
//	fire = max(0, floor(acc - 0.5))
//
// which only fires once the accumulator has cleared half a unit. The caller
// drains the stock by fire × periodsPerStep so the long-run event count
// tracks the feeding rate regardless of step granularity.

// FireCount returns the whole units released by an accumulator value.
func FireCount(acc float64) int {
	n := math.Floor(acc - 0.5)
	if n <= 0 {
		return 0
	}
	return int(n)
}

// FireDrain returns the amount to subtract from the accumulator stock this
// step for a given fire count.
func FireDrain(count int, periodsPerStep float64) float64 {
	return float64(count) * periodsPerStep
}

// Fire is the pure state transition: given the current accumulator value it
// returns the units to create this step and the drained accumulator.
func Fire(acc, periodsPerStep float64) (count int, newAcc float64) {
	count = FireCount(acc)
	return count, acc - FireDrain(count, periodsPerStep)
}
