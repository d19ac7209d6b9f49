package sim

import "testing"

func testPhases() PhaseParams {
	return PhaseParams{
		StartYear:       2025,
		InitialDuration: 4,
		RampDuration:    4,
		InitialRate:     10,
		InitialGrowth:   1,
		RampGrowth:      2,
		SteadyRate:      40,
		SteadyGrowth:    0.5,
	}
}

func TestPhaseValue_InitialPhaseGrowsAdditively(t *testing.T) {
	// GIVEN initial rate 10 with growth 1 per period
	p := testPhases()

	// THEN the initial phase grows linearly from period 0
	if got := PhaseValue(p, 0); got != 10 {
		t.Errorf("period 0: got %v, want 10", got)
	}
	if got := PhaseValue(p, 3); got != 13 {
		t.Errorf("period 3: got %v, want 13", got)
	}
}

func TestPhaseValue_RampContinuesFromInitialEnd(t *testing.T) {
	// GIVEN no explicit ramp rate
	p := testPhases()

	// THEN the ramp starts where the initial phase would have ended
	if got := PhaseValue(p, 4); got != 14 {
		t.Errorf("ramp period 4: got %v, want 14", got)
	}
	if got := PhaseValue(p, 7); got != 20 {
		t.Errorf("ramp period 7: got %v, want 20", got)
	}
}

func TestPhaseValue_RampRateOverride(t *testing.T) {
	// GIVEN an explicit ramp rate of 30
	p := testPhases()
	rampRate := 30.0
	p.RampRate = &rampRate

	// THEN the ramp restarts from the override instead of continuing
	if got := PhaseValue(p, 4); got != 30 {
		t.Errorf("ramp period 4: got %v, want 30", got)
	}
	if got := PhaseValue(p, 6); got != 34 {
		t.Errorf("ramp period 6: got %v, want 34", got)
	}
}

func TestPhaseValue_SteadyPhaseAndGrowthLimit(t *testing.T) {
	// GIVEN a steady phase capped at 4.2x the initial rate
	p := testPhases()
	limit := 4.2
	p.GrowthLimit = &limit

	// THEN steady growth applies until the cap
	if got := PhaseValue(p, 8); got != 40 {
		t.Errorf("steady period 8: got %v, want 40", got)
	}
	if got := PhaseValue(p, 10); got != 41 {
		t.Errorf("steady period 10: got %v, want 41", got)
	}
	if got := PhaseValue(p, 20); got != 42 {
		t.Errorf("capped steady period 20: got %v, want 42 (10 x 4.2)", got)
	}
}

func TestPhaseValue_UncappedWithoutLimit(t *testing.T) {
	// GIVEN no growth limit
	p := testPhases()

	// THEN the steady phase grows without bound
	if got := PhaseValue(p, 20); got != 46 {
		t.Errorf("uncapped steady period 20: got %v, want 46", got)
	}
}

func testAgent(ap AgentParams) *AnchorAgent {
	key := AgentKey{Sector: "Defense"}
	return NewAnchorAgent(key, ap, []ProductLine{{Product: "Fiber", Phases: testPhases()}})
}

func TestAnchorAgent_LifecycleIsMonotonic(t *testing.T) {
	// GIVEN an agent needing 2 completed projects and a 2-period delay
	grid := mustGrid(t, 2025, 2030, 0.25)
	a := testAgent(AgentParams{
		ProjectGenerationRate: 1,
		MaxProjects:           4,
		ProjectDuration:       1,
		ProjectsToActivation:  2,
		ActivationDelay:       2,
	})

	// WHEN it acts step by step
	states := []LifecycleState{}
	for i := 0; i < 6; i++ {
		a.Act(grid.TimeAt(i), grid)
		states = append(states, a.State)
	}

	// THEN the state sequence is Potential x2, Pending x2, Active, and never
	// moves backwards
	want := []LifecycleState{Potential, Potential, PendingActivation, PendingActivation, Active, Active}
	for i, w := range want {
		if states[i] != w {
			t.Errorf("step %d state: got %v, want %v", i, states[i], w)
		}
	}
	for i := 1; i < len(states); i++ {
		if states[i] < states[i-1] {
			t.Errorf("state regressed at step %d: %v -> %v", i, states[i-1], states[i])
		}
	}
}

func TestAnchorAgent_RequirementZeroUntilActive(t *testing.T) {
	// GIVEN the same lifecycle setup
	grid := mustGrid(t, 2025, 2030, 0.25)
	a := testAgent(AgentParams{
		ProjectGenerationRate: 1,
		MaxProjects:           4,
		ProjectDuration:       1,
		ProjectsToActivation:  2,
		ActivationDelay:       2,
	})

	// WHEN requirements are collected per step
	reqs := []float64{}
	for i := 0; i < 6; i++ {
		out := a.Act(grid.TimeAt(i), grid)
		reqs = append(reqs, out["Fiber"])
	}

	// THEN nothing is required before activation, and the first Active step
	// requires the period-0 initial rate
	want := []float64{0, 0, 0, 0, 10, 11}
	for i, w := range want {
		if reqs[i] != w {
			t.Errorf("step %d requirement: got %v, want %v", i, reqs[i], w)
		}
	}
}

func TestAnchorAgent_ConcurrentProjectCap(t *testing.T) {
	// GIVEN project generation 3 per period but a 2-project concurrency cap
	grid := mustGrid(t, 2025, 2030, 0.25)
	a := testAgent(AgentParams{
		ProjectGenerationRate: 3,
		MaxProjects:           2,
		ProjectDuration:       8,
		ProjectsToActivation:  10,
		ActivationDelay:       1,
	})

	// WHEN the agent acts twice
	a.Act(grid.TimeAt(0), grid)
	first := a.ProjectsStarted()
	a.Act(grid.TimeAt(1), grid)

	// THEN only the cap's worth of projects run concurrently
	if first != 2 {
		t.Errorf("projects after first step: got %d, want 2", first)
	}
	if got := a.ProjectsInProgress(); got != 2 {
		t.Errorf("in-progress: got %d, want 2", got)
	}
	if got := a.ProjectsStarted(); got != 2 {
		t.Errorf("started while at cap: got %d, want 2", got)
	}
}

func TestAnchorAgent_ProductStartYearGatesRequirement(t *testing.T) {
	// GIVEN an Active agent whose product only starts in 2026
	grid := mustGrid(t, 2025, 2030, 0.25)
	phases := testPhases()
	phases.StartYear = 2026
	a := NewAnchorAgent(AgentKey{Sector: "Defense"},
		AgentParams{ProjectGenerationRate: 1, MaxProjects: 1, ProjectDuration: 1, ProjectsToActivation: 1, ActivationDelay: 0},
		[]ProductLine{{Product: "Fiber", Phases: phases}})
	a.ForceActive(2025)

	// WHEN it acts before and after the product start
	before := a.Act(2025.5, grid)["Fiber"]
	after := a.Act(2026.0, grid)["Fiber"]

	// THEN the requirement is zero before the start year
	if before != 0 {
		t.Errorf("requirement before product start: got %v, want 0", before)
	}
	if after == 0 {
		t.Error("requirement after product start: got 0, want positive")
	}
}

func TestAnchorAgent_ForceActiveBackdatesPhases(t *testing.T) {
	// GIVEN an agent seeded Active one year (4 periods) before the run start
	grid := mustGrid(t, 2025, 2030, 0.25)
	a := testAgent(AgentParams{ProjectGenerationRate: 1, MaxProjects: 1, ProjectDuration: 1, ProjectsToActivation: 1, ActivationDelay: 0})
	a.ForceActive(2024)

	// WHEN it acts at the run start
	got := a.Act(2025, grid)["Fiber"]

	// THEN its phase clock is already 4 periods in (ramp continuation value)
	if got != 14 {
		t.Errorf("backdated requirement: got %v, want 14", got)
	}
}
