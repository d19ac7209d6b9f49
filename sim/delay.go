package sim

import "math"

// DelayOperator lags a per-step series by a fixed number of periods. The
// timing contract is exact: the value pushed at step t is returned by the
// push at step t+lag, with no additional implicit offset. History before the
// run start is zero.
type DelayOperator struct {
	name string
	buf  []float64
	next int
}

// NewDelayOperator builds an operator with the given lag in periods,
// converted to whole steps on the grid. Negative lags are invalid.
func NewDelayOperator(name string, lagPeriods float64, grid *TimeGrid) (*DelayOperator, error) {
	if lagPeriods < 0 {
		return nil, &ValidationError{Field: name, Msg: "delay must be non-negative"}
	}
	steps := int(math.Round(lagPeriods / grid.PeriodsPerStep()))
	return &DelayOperator{name: name, buf: make([]float64, steps)}, nil
}

// LagSteps returns the lag in whole steps.
func (d *DelayOperator) LagSteps() int { return len(d.buf) }

// Push records the input for the current step and returns the operator
// output for the same step: the value pushed LagSteps ago. Must be called
// exactly once per step.
func (d *DelayOperator) Push(x float64) float64 {
	if len(d.buf) == 0 {
		return x
	}
	out := d.buf[d.next]
	d.buf[d.next] = x
	d.next = (d.next + 1) % len(d.buf)
	return out
}
