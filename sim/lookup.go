package sim

import (
	"github.com/sirupsen/logrus"
)

// LookupPoint is one (time, value) pair of a time-indexed series.
type LookupPoint struct {
	T float64
	V float64
}

// LookupTable is a sorted, strictly time-increasing series such as price or
// capacity over the years. Queries inside the domain interpolate linearly;
// queries outside return the nearest boundary value (hold-last-value) and
// emit a range warning once per direction.
type LookupTable struct {
	name   string
	points []LookupPoint

	warnedBelow bool
	warnedAbove bool
}

// NewLookupTable validates the series: at least one point, strictly
// increasing times.
func NewLookupTable(name string, points []LookupPoint) (*LookupTable, error) {
	if len(points) == 0 {
		return nil, &ValidationError{Field: name, Msg: "lookup series has no points"}
	}
	for i := 1; i < len(points); i++ {
		if points[i].T <= points[i-1].T {
			return nil, &ValidationError{Field: name, Msg: "lookup series times must be strictly increasing"}
		}
	}
	cp := make([]LookupPoint, len(points))
	copy(cp, points)
	return &LookupTable{name: name, points: cp}, nil
}

// Name returns the series identifier used in logs.
func (l *LookupTable) Name() string { return l.name }

// Domain returns the covered time range.
func (l *LookupTable) Domain() (tmin, tmax float64) {
	return l.points[0].T, l.points[len(l.points)-1].T
}

// Value queries the series at time t. Out-of-domain queries are resolved by
// the hold-last-value policy and logged as a non-fatal range warning.
func (l *LookupTable) Value(t float64) float64 {
	first, last := l.points[0], l.points[len(l.points)-1]
	if t < first.T-1e-9 {
		if !l.warnedBelow {
			l.warnedBelow = true
			logrus.Warnf("lookup %q queried below range at t=%.2f (min=%.2f); holding boundary value", l.name, t, first.T)
		}
		return first.V
	}
	if t > last.T+1e-9 {
		if !l.warnedAbove {
			l.warnedAbove = true
			logrus.Warnf("lookup %q queried above range at t=%.2f (max=%.2f); holding boundary value", l.name, t, last.T)
		}
		return last.V
	}
	for i := 1; i < len(l.points); i++ {
		p0, p1 := l.points[i-1], l.points[i]
		if t <= p1.T+1e-9 {
			if p1.T == p0.T {
				return p1.V
			}
			frac := (t - p0.T) / (p1.T - p0.T)
			if frac < 0 {
				frac = 0
			}
			if frac > 1 {
				frac = 1
			}
			return p0.V + frac*(p1.V-p0.V)
		}
	}
	return last.V
}
