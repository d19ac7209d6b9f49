package sim

import "testing"

func testDirect() DirectParams {
	return DirectParams{
		StartYear:          2025,
		BaseOrderQuantity:  10,
		OrderGrowthRate:    0.1,
		OrderCapMultiplier: 2.0,
		MaxCohortAge:       10,
	}
}

func testLedger(t *testing.T, p DirectParams) *CohortLedger {
	t.Helper()
	grid := mustGrid(t, 2025, 2030, 0.25)
	l, err := NewCohortLedger("Fiber", p, grid)
	if err != nil {
		t.Fatalf("NewCohortLedger: %v", err)
	}
	return l
}

func TestCohortLedger_PerClientOrderGrowsLinearlyToCap(t *testing.T) {
	// GIVEN base order 10, growth 0.1 per period, cap multiplier 2
	l := testLedger(t, testDirect())

	// THEN each extra period of age adds one unit until the cap at 20
	cases := []struct {
		age  int
		want float64
	}{
		{0, 10},
		{1, 11},
		{5, 15},
		{10, 20},
		{50, 20},
	}
	for _, c := range cases {
		if got := l.PerClientOrder(c.age); got != c.want {
			t.Errorf("PerClientOrder(%d): got %v, want %v", c.age, got, c.want)
		}
	}
}

func TestCohortLedger_AdvanceAgesAndConserves(t *testing.T) {
	// GIVEN clients created over three consecutive steps
	l := testLedger(t, testDirect())
	l.Advance(3)
	l.Advance(2)
	l.Advance(1)

	// THEN population equals everything ever created
	if pop, created := l.Population(), l.Created(); pop != 6 || created != 6 {
		t.Errorf("population/created: got %d/%d, want 6/6", pop, created)
	}

	// WHEN the oldest cohort crosses the terminal age
	for i := 0; i < 10; i++ {
		l.Advance(0)
	}

	// THEN the terminal bucket absorbed them and nothing was lost
	if pop := l.Population(); pop != 6 {
		t.Errorf("population after terminal absorption: got %d, want 6", pop)
	}
}

func TestCohortLedger_AggregateDemandAges(t *testing.T) {
	// GIVEN one client created at the first step
	l := testLedger(t, testDirect())
	l.Advance(1)

	// THEN its demand follows its age
	if got := l.AggregateDemand(); got != 10 {
		t.Errorf("demand at age 0: got %v, want 10", got)
	}
	l.Advance(0)
	if got := l.AggregateDemand(); got != 11 {
		t.Errorf("demand at age 1: got %v, want 11", got)
	}
}

func TestCohortLedger_TerminalCohortOrdersAtCap(t *testing.T) {
	// GIVEN clients aged past the maximum tracked age
	l := testLedger(t, testDirect())
	l.Advance(2)
	for i := 0; i < 20; i++ {
		l.Advance(0)
	}

	// THEN they order at the capped per-client rate
	if got := l.AggregateDemand(); got != 40 {
		t.Errorf("terminal demand: got %v, want 40 (2 clients x cap 20)", got)
	}
}

func TestCohortLedger_SeedTerminal(t *testing.T) {
	// GIVEN a ledger seeded with 5 pre-existing clients
	l := testLedger(t, testDirect())
	l.SeedTerminal(5)

	// THEN they count as created, live in the terminal bucket, and order at
	// the capped rate immediately
	if pop, created := l.Population(), l.Created(); pop != 5 || created != 5 {
		t.Errorf("population/created after seed: got %d/%d, want 5/5", pop, created)
	}
	if got := l.AggregateDemand(); got != 100 {
		t.Errorf("seeded demand: got %v, want 100 (5 x cap 20)", got)
	}
}

func TestCohortLedger_RequirementForStepAppliesDelay(t *testing.T) {
	// GIVEN a 1-period lead-to-requirement delay
	p := testDirect()
	p.LeadToRequirementDelay = 1
	l := testLedger(t, p)
	l.Advance(1)

	// WHEN the first two steps ask for the requirement
	first := l.RequirementForStep()
	l.Advance(0)
	second := l.RequirementForStep()

	// THEN the demand appears one step late
	if first != 0 {
		t.Errorf("first requirement: got %v, want 0", first)
	}
	if second != 10 {
		t.Errorf("second requirement: got %v, want 10", second)
	}
}
