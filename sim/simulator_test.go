package sim

import (
	"math"
	"testing"
)

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func runBundle(t *testing.T, b *ParameterBundle) []*KPISnapshot {
	t.Helper()
	s, err := Build(b)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	snaps, err := s.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return snaps
}

func TestSimulator_CreationChainFiresWholeAgents(t *testing.T) {
	// GIVEN lead generation 2/period with 50% conversion (1 fractional
	// agent per step)
	snaps := runBundle(t, validBundle())

	// THEN the accumulator first clears the half-unit threshold at step 2
	// and fires exactly one whole agent per step from then on
	want := []float64{0, 0, 1, 2, 3, 4, 5, 6}
	for i, w := range want {
		if got := snaps[i].Sectors["Defense"].AgentsCreated; got != w {
			t.Errorf("step %d cumulative agents: got %v, want %v", i, got, w)
		}
	}
}

func TestSimulator_FirstAnchorDeliveryTiming(t *testing.T) {
	// GIVEN 1 project to activation, 1-period project, 1-period activation
	// delay and a 1-period order lag
	snaps := runBundle(t, validBundle())

	// THEN the first agent (created step 2) completes its project at step 3,
	// activates at step 4, demands the initial rate there, and the delivery
	// emerges one step later
	if got := snaps[3].Products["Fiber"].AnchorDemand; got != 0 {
		t.Errorf("step 3 anchor demand: got %v, want 0", got)
	}
	if got := snaps[4].Products["Fiber"].AnchorDemand; got != 10 {
		t.Errorf("step 4 anchor demand: got %v, want 10", got)
	}
	if got := snaps[4].Products["Fiber"].AnchorDelivery; got != 0 {
		t.Errorf("step 4 anchor delivery: got %v, want 0", got)
	}
	if got := snaps[5].Products["Fiber"].AnchorDelivery; got != 10 {
		t.Errorf("step 5 anchor delivery: got %v, want 10", got)
	}
}

func TestSimulator_ActiveAnchorsAccumulate(t *testing.T) {
	// GIVEN the steady one-agent-per-step creation chain
	snaps := runBundle(t, validBundle())

	// THEN each agent activates two steps after creation
	want := []int{0, 0, 0, 0, 1, 2, 3, 4}
	for i, w := range want {
		if got := snaps[i].Sectors["Defense"].ActiveAnchors; got != w {
			t.Errorf("step %d active anchors: got %d, want %d", i, got, w)
		}
	}
}

func TestSimulator_DirectClientLifecycle(t *testing.T) {
	// GIVEN 2 leads/period at 50% conversion (first client fires at step 2)
	snaps := runBundle(t, validBundle())

	// THEN the client contributes its base order from the step after
	// creation, at cohort age 0
	if got := snaps[2].Products["Fiber"].ClientRequirement; got != 0 {
		t.Errorf("step 2 client requirement: got %v, want 0", got)
	}
	if got := snaps[3].Products["Fiber"].ClientRequirement; got != 10 {
		t.Errorf("step 3 client requirement: got %v, want 10", got)
	}
	// Age 1 client orders 11, the new age 0 client orders 10
	if got := snaps[4].Products["Fiber"].ClientRequirement; got != 21 {
		t.Errorf("step 4 client requirement: got %v, want 21", got)
	}
	wantClients := []int64{0, 0, 0, 1, 2, 3, 4, 5}
	for i, w := range wantClients {
		if got := snaps[i].Products["Fiber"].DirectClients; got != w {
			t.Errorf("step %d direct clients: got %d, want %d", i, got, w)
		}
	}
}

func constrainedBundle() *ParameterBundle {
	b := validBundle()
	pair := AgentKey{Sector: "Defense", Product: "Fiber"}
	unit := AgentKey{Sector: "Defense"}

	// No organic growth: everything comes from seeds.
	b.Creation[unit] = CreationParams{StartYear: 2025, LeadGenerationRate: 0, LeadToAgentRate: 0, ATAM: 1000}
	b.Direct["Fiber"] = DirectParams{
		StartYear: 2025, InboundLeadRate: 0, OutboundLeadRate: 0, LeadToClientRate: 0, TAM: 1000,
		BaseOrderQuantity: 10, OrderGrowthRate: 0, OrderCapMultiplier: 1, MaxCohortAge: 12,
	}
	ph := b.Phases[pair]
	ph.InitialRate = 60
	ph.InitialGrowth = 0
	ph.RequirementToOrderLag = 0
	b.Phases[pair] = ph

	// 160/year of capacity is 40 per quarterly step against 100 of demand.
	b.Capacity["Fiber"] = []LookupPoint{{T: 2025, V: 160}}

	b.Seeds = Seeds{
		ActiveAnchors: map[AgentKey]int{unit: 1},
		DirectClients: map[string]int{"Fiber": 4},
	}
	return b
}

func TestSimulator_FulfillmentRatioScalesAllChannels(t *testing.T) {
	// GIVEN a seeded anchor demanding 60 and 4 seeded clients demanding 40,
	// against 40 of per-step capacity
	snaps := runBundle(t, constrainedBundle())

	// THEN the ratio is 0.4 and both channels are scaled by it
	got := snaps[0].Products["Fiber"]
	if !almost(got.TotalDemand, 100) {
		t.Errorf("total demand: got %v, want 100", got.TotalDemand)
	}
	if !almost(got.FulfillmentRatio, 0.4) {
		t.Errorf("fulfillment ratio: got %v, want 0.4", got.FulfillmentRatio)
	}
	if !almost(got.AnchorDelivery, 24) {
		t.Errorf("anchor delivery: got %v, want 24 (60 x 0.4)", got.AnchorDelivery)
	}
	if !almost(got.ClientDelivery, 16) {
		t.Errorf("client delivery: got %v, want 16 (40 x 0.4)", got.ClientDelivery)
	}
	if !almost(snaps[0].TotalRevenue, 4000) {
		t.Errorf("total revenue: got %v, want 4000", snaps[0].TotalRevenue)
	}
}

func TestSimulator_FulfillmentRatioNeverExceedsOne(t *testing.T) {
	// GIVEN both the abundant and the constrained scenarios
	for _, b := range []*ParameterBundle{validBundle(), constrainedBundle()} {
		snaps := runBundle(t, b)

		// THEN the ratio stays within [0, 1] at every step
		for _, s := range snaps {
			fr := s.Products["Fiber"].FulfillmentRatio
			if fr < 0 || fr > 1 {
				t.Errorf("step %d fulfillment ratio out of bounds: %v", s.Step, fr)
			}
		}
	}
}

func TestSimulator_RevenueIdentityHolds(t *testing.T) {
	// GIVEN a full run
	snaps := runBundle(t, validBundle())

	// THEN total revenue always equals the sum over products of
	// delivered x price
	for _, s := range snaps {
		var want float64
		for _, pk := range s.Products {
			want += (pk.AnchorDelivery + pk.ClientDelivery) * pk.Price
		}
		if !almost(s.TotalRevenue, want) {
			t.Errorf("step %d revenue: got %v, want %v", s.Step, s.TotalRevenue, want)
		}
	}
}

func TestSimulator_DeterministicAcrossRuns(t *testing.T) {
	// GIVEN two simulators built from the same parameters
	first := runBundle(t, validBundle())
	second := runBundle(t, validBundle())

	// THEN every step's outputs are bit-identical
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].TotalRevenue != second[i].TotalRevenue {
			t.Errorf("step %d revenue differs: %v vs %v", i, first[i].TotalRevenue, second[i].TotalRevenue)
		}
		if first[i].TotalClients != second[i].TotalClients {
			t.Errorf("step %d clients differ: %d vs %d", i, first[i].TotalClients, second[i].TotalClients)
		}
	}
}

func TestSimulator_ATAMStopsLeadGeneration(t *testing.T) {
	// GIVEN an ATAM of 4 against 2 leads per step
	b := validBundle()
	unit := AgentKey{Sector: "Defense"}
	cp := b.Creation[unit]
	cp.ATAM = 4
	b.Creation[unit] = cp

	snaps := runBundle(t, b)

	// THEN lead generation stops once cumulative leads reach the ceiling
	want := []float64{2, 2, 0, 0, 0, 0, 0, 0}
	for i, w := range want {
		if got := snaps[i].Sectors["Defense"].AnchorLeads; got != w {
			t.Errorf("step %d anchor leads: got %v, want %v", i, got, w)
		}
	}
}

func TestSimulator_SeededAnchorsBackdatePhases(t *testing.T) {
	// GIVEN an anchor seeded 4 periods into its phase schedule
	b := constrainedBundle()
	unit := AgentKey{Sector: "Defense"}
	pair := AgentKey{Sector: "Defense", Product: "Fiber"}
	b.Capacity["Fiber"] = []LookupPoint{{T: 2025, V: 1e6}}
	ph := b.Phases[pair]
	ph.InitialRate = 10
	ph.InitialGrowth = 1
	b.Phases[pair] = ph
	b.Seeds.ElapsedPeriods = map[AgentKey]int{unit: 4}

	snaps := runBundle(t, b)

	// THEN its first requirement is the ramp continuation value, not the
	// period-0 initial rate
	if got := snaps[0].Products["Fiber"].AnchorDemand; got != 14 {
		t.Errorf("seeded anchor demand: got %v, want 14", got)
	}
}

func TestSimulator_RunCoversHorizonExactly(t *testing.T) {
	// GIVEN an 8-step horizon
	s, err := Build(validBundle())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// WHEN the run completes
	snaps, err := s.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// THEN every step was simulated once and stepping past the end fails
	if len(snaps) != 8 {
		t.Errorf("snapshots: got %d, want 8", len(snaps))
	}
	if _, err := s.Step(); err == nil {
		t.Error("expected error stepping past the horizon")
	}
}

func TestSimulator_PairwiseModeBuildsAndRuns(t *testing.T) {
	// GIVEN a pairwise-unit bundle (creation and agent params keyed by pair)
	b := validBundle()
	unit := AgentKey{Sector: "Defense"}
	pair := AgentKey{Sector: "Defense", Product: "Fiber"}
	b.PairwiseAgents = true
	b.Creation = map[AgentKey]CreationParams{pair: b.Creation[unit]}
	b.Agent = map[AgentKey]AgentParams{pair: b.Agent[unit]}

	// WHEN it runs
	snaps := runBundle(t, b)

	// THEN the single-sector results match sector mode
	sectorMode := runBundle(t, validBundle())
	for i := range snaps {
		if snaps[i].TotalRevenue != sectorMode[i].TotalRevenue {
			t.Errorf("step %d revenue: pairwise %v, sector mode %v",
				i, snaps[i].TotalRevenue, sectorMode[i].TotalRevenue)
		}
	}
}
