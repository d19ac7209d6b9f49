package sim

// CohortLedger tracks direct clients for one product in age-bucketed
// cohorts. Clients created in the same step form one cohort; every step each
// cohort ages by one unit with no attrition, and a terminal bucket absorbs
// everything beyond the maximum tracked age so memory stays bounded while
// the total population is preserved.
type CohortLedger struct {
	product string

	base    float64
	growth  float64
	capMult float64

	buckets []int64 // index = age, last bucket is the terminal absorber
	created int64

	delay *DelayOperator // lead-to-requirement delay
}

// NewCohortLedger builds an empty ledger for a product.
func NewCohortLedger(product string, p DirectParams, grid *TimeGrid) (*CohortLedger, error) {
	delay, err := NewDelayOperator("Lead_To_Requirement_Delay_"+product, p.LeadToRequirementDelay, grid)
	if err != nil {
		return nil, err
	}
	return &CohortLedger{
		product: product,
		base:    p.BaseOrderQuantity,
		growth:  p.OrderGrowthRate,
		capMult: p.OrderCapMultiplier,
		buckets: make([]int64, p.MaxCohortAge+1),
		delay:   delay,
	}, nil
}

// Product returns the product this ledger tracks.
func (l *CohortLedger) Product() string { return l.product }

// PerClientOrder is the order quantity of one client at the given cohort
// age: linear growth with a hard ceiling at base × capMult.
func (l *CohortLedger) PerClientOrder(age int) float64 {
	v := l.base + l.base*l.growth*float64(age)
	if limit := l.base * l.capMult; v > limit {
		v = limit
	}
	return v
}

// AggregateDemand sums population × per-client order across all ages for
// the current step.
func (l *CohortLedger) AggregateDemand() float64 {
	var total float64
	for age, pop := range l.buckets {
		if pop == 0 {
			continue
		}
		total += float64(pop) * l.PerClientOrder(age)
	}
	return total
}

// RequirementForStep pushes this step's aggregate demand through the
// lead-to-requirement delay and returns the requirement visible to the
// fulfillment resolver. Must be called exactly once per step.
func (l *CohortLedger) RequirementForStep() float64 {
	return l.delay.Push(l.AggregateDemand())
}

// Advance ages every cohort by one unit and inserts this step's newly
// created clients at age zero. Population is conserved: the oldest tracked
// bucket flows into the terminal bucket.
func (l *CohortLedger) Advance(newClients int64) {
	last := len(l.buckets) - 1
	l.buckets[last] += l.buckets[last-1]
	for age := last - 1; age >= 1; age-- {
		l.buckets[age] = l.buckets[age-1]
	}
	l.buckets[0] = newClients
	l.created += newClients
}

// SeedTerminal injects pre-existing clients into the terminal bucket at
// build time, so seeded populations order at the capped rate immediately.
func (l *CohortLedger) SeedTerminal(n int64) {
	l.buckets[len(l.buckets)-1] += n
	l.created += n
}

// Population is the total live client count across all ages.
func (l *CohortLedger) Population() int64 {
	var total int64
	for _, pop := range l.buckets {
		total += pop
	}
	return total
}

// Created is the cumulative number of clients ever created (seeds included).
func (l *CohortLedger) Created() int64 { return l.created }
