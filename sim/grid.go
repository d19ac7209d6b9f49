package sim

import (
	"fmt"
	"math"
)

// PeriodYears is the length of one business period (a quarter) on the
// simulation time axis, which is expressed in years.
const PeriodYears = 0.25

// TimeGrid is the immutable fixed-step time axis of a run. Start, Stop and
// Step are in years; rates elsewhere in the model are per period (quarter).
type TimeGrid struct {
	Start float64
	Stop  float64
	Step  float64
}

// NewTimeGrid validates and builds a grid. Step must be positive and the
// horizon must contain at least one step.
func NewTimeGrid(start, stop, step float64) (*TimeGrid, error) {
	if step <= 0 {
		return nil, &ValidationError{Field: "runspecs.step", Msg: fmt.Sprintf("step must be positive, got %v", step)}
	}
	if stop <= start {
		return nil, &ValidationError{Field: "runspecs.stop", Msg: fmt.Sprintf("stop %v must be after start %v", stop, start)}
	}
	g := &TimeGrid{Start: start, Stop: stop, Step: step}
	if g.NumSteps() <= 0 {
		return nil, &ValidationError{Field: "runspecs", Msg: "horizon contains no steps"}
	}
	return g, nil
}

// NumSteps is the number of simulated steps: t = start, start+step, ..., stop-step.
func (g *TimeGrid) NumSteps() int {
	return int(math.Round((g.Stop - g.Start) / g.Step))
}

// TimeAt returns the absolute time of step i.
func (g *TimeGrid) TimeAt(i int) float64 {
	return g.Start + float64(i)*g.Step
}

// PeriodsPerStep converts per-period rates to per-step increments. With the
// default quarter step this is exactly 1.
func (g *TimeGrid) PeriodsPerStep() float64 {
	return g.Step / PeriodYears
}

// PeriodLabel renders the business-period label for step i, e.g. "2026Q3".
func (g *TimeGrid) PeriodLabel(i int) string {
	t := g.TimeAt(i) + 1e-9
	year := int(math.Floor(t))
	quarter := int((t-float64(year))/PeriodYears) + 1
	if quarter > 4 {
		quarter = 4
	}
	return fmt.Sprintf("%dQ%d", year, quarter)
}
