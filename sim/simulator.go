package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Simulator owns one run: the time grid, the element network, the agent
// populations, the cohort ledgers, and the coupling gateways. A Simulator is
// single-run and single-goroutine; build a fresh one per scenario.
type Simulator struct {
	Grid   *TimeGrid
	Engine *Engine

	bundle   *ParameterBundle
	anchorGW *Gateway
	clientGW *Gateway

	units        []*creationUnit
	products     []*productBlock
	totalRevenue *Converter

	// StepCount is the index of the next step to execute.
	StepCount int
}

// Step executes one full scheduler pass and returns the captured KPI
// snapshot. The stage order is fixed: discrete creation, agent actions,
// gateway writes, continuous evaluation, invariant checks, KPI capture, and
// finally state integration. Discrete demand is always captured into the
// gateways before any continuous element evaluates.
func (s *Simulator) Step() (*KPISnapshot, error) {
	if s.StepCount >= s.Grid.NumSteps() {
		return nil, fmt.Errorf("sim: step %d past end of horizon (%d steps)", s.StepCount, s.Grid.NumSteps())
	}

	s.anchorGW.Reset()
	s.clientGW.Reset()
	ctx := &StepContext{
		Step:   s.StepCount,
		Time:   s.Grid.TimeAt(s.StepCount),
		Anchor: s.anchorGW,
		Client: s.clientGW,
	}

	// Discrete creation signals fire off the pre-integration stock state.
	for _, unit := range s.units {
		count, err := s.creationCount(ctx, unit.fire)
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			unit.agents = append(unit.agents, unit.factory())
		}
	}

	// Agents act; their per-product requirements aggregate per pair.
	perPair := make(map[AgentKey]float64, len(s.bundle.Pairs))
	for _, pair := range s.bundle.Pairs {
		perPair[pair] = 0
	}
	for _, unit := range s.units {
		for _, agent := range unit.agents {
			for product, req := range agent.Act(ctx.Time, s.Grid) {
				perPair[AgentKey{Sector: unit.key.Sector, Product: product}] += req
			}
		}
	}

	// Capture-before-integrate: both gateways are fully written, with
	// explicit zeros for quiet pairs, before any continuous element runs.
	for _, block := range s.products {
		req := block.ledger.RequirementForStep()
		if err := ctx.Client.Write(AgentKey{Product: block.product}, req); err != nil {
			return nil, err
		}
	}
	for _, pair := range s.bundle.Pairs {
		if err := ctx.Anchor.Write(pair, perPair[pair]); err != nil {
			return nil, err
		}
	}

	s.Engine.EvaluateAll(ctx)

	if err := s.checkInvariants(ctx); err != nil {
		return nil, err
	}

	snapshot := s.capture(ctx)

	// Advance state last, so every read this step saw the pre-step picture.
	s.Engine.Integrate(ctx)
	for _, block := range s.products {
		created := int64(math.Round(block.clientCreation.Value(ctx)))
		block.ledger.Advance(created)
	}
	s.StepCount++

	logrus.Debugf("step %d (t=%.2f, %s): total revenue %.2f",
		snapshot.Step, snapshot.Time, snapshot.Period, snapshot.TotalRevenue)
	return snapshot, nil
}

// Run executes every remaining step on the grid and returns the snapshots in
// step order.
func (s *Simulator) Run() ([]*KPISnapshot, error) {
	out := make([]*KPISnapshot, 0, s.Grid.NumSteps()-s.StepCount)
	for s.StepCount < s.Grid.NumSteps() {
		snap, err := s.Step()
		if err != nil {
			return out, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// creationCount reads a fire converter and enforces that creation signals
// are non-negative whole numbers.
func (s *Simulator) creationCount(ctx *StepContext, fire *Converter) (int, error) {
	v := fire.Value(ctx)
	rounded := math.Round(v)
	if v < 0 || math.Abs(v-rounded) > 1e-9 {
		return 0, &InvariantViolation{
			Step: ctx.Step, Time: ctx.Time, Check: "integer creation count",
			Values: map[string]float64{fire.Name(): v},
		}
	}
	return int(rounded), nil
}

func (s *Simulator) checkInvariants(ctx *StepContext) error {
	var independent float64
	for _, block := range s.products {
		fr := block.fulfillment.Value(ctx)
		if fr < -1e-12 || fr > 1+1e-12 {
			return &InvariantViolation{
				Step: ctx.Step, Time: ctx.Time, Check: "fulfillment ratio bounds",
				Values: map[string]float64{block.fulfillment.Name(): fr},
			}
		}

		created := block.clientCreation.Value(ctx)
		if created < 0 || math.Abs(created-math.Round(created)) > 1e-9 {
			return &InvariantViolation{
				Step: ctx.Step, Time: ctx.Time, Check: "integer creation count",
				Values: map[string]float64{block.clientCreation.Name(): created},
			}
		}

		if pop, cum := block.ledger.Population(), block.ledger.Created(); pop != cum {
			return &InvariantViolation{
				Step: ctx.Step, Time: ctx.Time, Check: "cohort conservation",
				Values: map[string]float64{
					"population_" + block.product: float64(pop),
					"created_" + block.product:    float64(cum),
				},
			}
		}

		independent += (block.anchorDelivery.Value(ctx) + block.clientDelivery.Value(ctx)) * block.price.Value(ctx)
	}

	total := s.totalRevenue.Value(ctx)
	if diff := math.Abs(total - independent); diff > 1e-6*math.Max(1, math.Abs(total)) {
		return &InvariantViolation{
			Step: ctx.Step, Time: ctx.Time, Check: "revenue identity",
			Values: map[string]float64{"total_revenue": total, "recomputed": independent},
		}
	}
	return nil
}
