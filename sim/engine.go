package sim

import "fmt"

// StepContext carries the per-step state every element evaluation sees: the
// step index, the absolute time, and the demand gateways. A fresh context is
// created at the top of each step and discarded at its end, which forbids
// cross-step gateway leakage by construction.
type StepContext struct {
	Step   int
	Time   float64
	Anchor *Gateway // per-(sector, product) agent demand
	Client *Gateway // per-product direct-client requirement
}

// Converter is a pure function of other elements' current-step values. It is
// evaluated at most once per step; the memoized value is what KPI capture
// reads later in the same step.
type Converter struct {
	name     string
	eval     func(*StepContext) float64
	value    float64
	lastStep int
	busy     bool
}

// Name returns the element name.
func (c *Converter) Name() string { return c.name }

// Value evaluates the converter for the context's step, or returns the
// memoized value if it already ran this step.
func (c *Converter) Value(ctx *StepContext) float64 {
	if c.lastStep == ctx.Step {
		return c.value
	}
	if c.busy {
		panic(fmt.Sprintf("sim: algebraic loop through converter %q", c.name))
	}
	c.busy = true
	v := c.eval(ctx)
	c.busy = false
	c.value = v
	c.lastStep = ctx.Step
	return v
}

// Stock is a named accumulator. Its value is mutated only by Engine.Integrate;
// the net equation is expressed as a per-step delta.
type Stock struct {
	name    string
	value   float64
	initial float64
	net     func(*StepContext) float64
}

// Name returns the element name.
func (s *Stock) Name() string { return s.name }

// Value returns the current stock level.
func (s *Stock) Value() float64 { return s.value }

// SetInitial overrides the initial level before the run starts. Used for
// scenario seeding.
func (s *Stock) SetInitial(v float64) {
	s.initial = v
	s.value = v
}

// SetNet binds the net-inflow equation. Stocks are declared first and wired
// afterwards so mutually referencing chains can be built in one pass.
func (s *Stock) SetNet(net func(*StepContext) float64) { s.net = net }

// Engine is the continuous state engine: a declarative network of stocks and
// converters evaluated once per step. Converter memoization makes evaluation
// dependency-ordered regardless of registration order; EvaluateAll forces
// every element exactly once per step.
type Engine struct {
	converters []*Converter
	stocks     []*Stock
	byName     map[string]struct{}
}

// NewEngine returns an empty element network.
func NewEngine() *Engine {
	return &Engine{byName: map[string]struct{}{}}
}

// Converter registers a named converter. Names must be unique.
func (e *Engine) Converter(name string, eval func(*StepContext) float64) *Converter {
	e.claim(name)
	c := &Converter{name: name, eval: eval, lastStep: -1}
	e.converters = append(e.converters, c)
	return c
}

// Stock registers a named stock with its initial level.
func (e *Engine) Stock(name string, initial float64) *Stock {
	e.claim(name)
	s := &Stock{name: name, value: initial, initial: initial}
	e.stocks = append(e.stocks, s)
	return s
}

func (e *Engine) claim(name string) {
	if _, dup := e.byName[name]; dup {
		panic(fmt.Sprintf("sim: duplicate element name %q", name))
	}
	e.byName[name] = struct{}{}
}

// EvaluateAll forces every converter for the current step. Converters with
// single-shot side effects (delay pushes) rely on this running exactly once
// per step.
func (e *Engine) EvaluateAll(ctx *StepContext) {
	for _, c := range e.converters {
		c.Value(ctx)
	}
}

// Integrate advances all stocks to the next step with a fixed-step explicit
// update. Deltas are computed for every stock before any value changes, so
// nets that read other stocks see a consistent current-step picture.
func (e *Engine) Integrate(ctx *StepContext) {
	deltas := make([]float64, len(e.stocks))
	for i, s := range e.stocks {
		if s.net == nil {
			continue
		}
		deltas[i] = s.net(ctx)
	}
	for i, s := range e.stocks {
		s.value += deltas[i]
	}
}
