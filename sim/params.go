package sim

import "fmt"

// RunSpecs holds the time grid settings, in years.
type RunSpecs struct {
	Start float64
	Stop  float64
	Step  float64
}

// CreationParams drives the lead-generation and accumulate-and-fire chain
// that creates new anchor agents for one creation unit (a sector, or a
// sector-product pair in pairwise mode). Rates are per period.
type CreationParams struct {
	StartYear          float64
	LeadGenerationRate float64
	LeadToAgentRate    float64
	ATAM               float64 // ceiling on cumulative anchor leads
}

// AgentParams drives the project lifecycle of anchor agents belonging to
// one creation unit. Durations and delays are in periods.
type AgentParams struct {
	ProjectGenerationRate float64
	MaxProjects           int // concurrent in-progress ceiling
	ProjectDuration       float64
	ProjectsToActivation  int
	ActivationDelay       float64
}

// PhaseParams drives requirement generation for one (sector, product) pair
// while the agent is Active. Growth is additive per period. The core only
// sees resolved values; pair-vs-sector precedence is the loader's concern.
type PhaseParams struct {
	StartYear       float64 // product start time for this pair
	InitialDuration int     // periods
	RampDuration    int     // periods
	InitialRate     float64
	InitialGrowth   float64
	RampRate        *float64 // nil: ramp continues from the initial phase's ending value
	RampGrowth      float64
	SteadyRate      float64
	SteadyGrowth    float64
	GrowthLimit     *float64 // steady cap = InitialRate × GrowthLimit; nil: uncapped

	RequirementToOrderLag float64 // delivery lag in periods
}

// DirectParams drives the direct-client channel for one product: lead
// generation, client conversion, cohort order growth, and delays.
type DirectParams struct {
	StartYear        float64
	InboundLeadRate  float64
	OutboundLeadRate float64
	LeadToClientRate float64
	TAM              float64 // ceiling on cumulative direct leads

	BaseOrderQuantity  float64
	OrderGrowthRate    float64 // linear, per period of cohort age
	OrderCapMultiplier float64 // per-client cap = base × multiplier
	MaxCohortAge       int     // terminal bucket bound

	LeadToRequirementDelay float64 // periods
	FulfillmentDelay       float64 // periods
}

// Seeds are optional pre-existing populations injected at build time.
type Seeds struct {
	ActiveAnchors     map[AgentKey]int // already-Active agents per creation unit
	ElapsedPeriods    map[AgentKey]int // how long ago the seeded agents activated
	CompletedProjects map[AgentKey]int // backlog converted to whole Active agents
	DirectClients     map[string]int   // pre-aged clients entering the terminal cohort
}

// ParameterBundle is the fully validated input to Build. Every required
// value must be present; the core inserts no defaults.
type ParameterBundle struct {
	RunSpecs       RunSpecs
	PairwiseAgents bool

	Sectors  []string
	Products []string
	Pairs    []AgentKey // (sector, product) coupling universe, ordered

	Creation map[AgentKey]CreationParams // per creation unit
	Agent    map[AgentKey]AgentParams    // per creation unit
	Phases   map[AgentKey]PhaseParams    // per pair, resolved

	Direct   map[string]DirectParams
	Price    map[string][]LookupPoint
	Capacity map[string][]LookupPoint

	Seeds Seeds
}

// CreationUnits returns the ordered creation-unit keys for the run mode:
// one per sector, or one per pair in pairwise mode.
func (b *ParameterBundle) CreationUnits() []AgentKey {
	if b.PairwiseAgents {
		return b.Pairs
	}
	units := make([]AgentKey, 0, len(b.Sectors))
	for _, s := range b.Sectors {
		units = append(units, AgentKey{Sector: s})
	}
	return units
}

// PairsForUnit returns the pairs a creation unit's agents serve.
func (b *ParameterBundle) PairsForUnit(unit AgentKey) []AgentKey {
	if unit.Product != "" {
		return []AgentKey{unit}
	}
	var out []AgentKey
	for _, p := range b.Pairs {
		if p.Sector == unit.Sector {
			out = append(out, p)
		}
	}
	return out
}

// SectorsForProduct returns the ordered sectors whose agents demand a product.
func (b *ParameterBundle) SectorsForProduct(product string) []string {
	var out []string
	for _, p := range b.Pairs {
		if p.Product == product {
			out = append(out, p.Sector)
		}
	}
	return out
}

// Validate checks completeness and basic numeric sanity. It returns the
// first problem found as a *ValidationError.
func (b *ParameterBundle) Validate() error {
	if len(b.Sectors) == 0 {
		return &ValidationError{Field: "sectors", Msg: "at least one sector is required"}
	}
	if len(b.Products) == 0 {
		return &ValidationError{Field: "products", Msg: "at least one product is required"}
	}
	if _, err := NewTimeGrid(b.RunSpecs.Start, b.RunSpecs.Stop, b.RunSpecs.Step); err != nil {
		return err
	}

	sectors := make(map[string]bool, len(b.Sectors))
	for _, s := range b.Sectors {
		if s == "" {
			return &ValidationError{Field: "sectors", Msg: "empty sector name"}
		}
		if sectors[s] {
			return &ValidationError{Field: "sectors", Msg: fmt.Sprintf("duplicate sector %q", s)}
		}
		sectors[s] = true
	}
	products := make(map[string]bool, len(b.Products))
	for _, p := range b.Products {
		if p == "" {
			return &ValidationError{Field: "products", Msg: "empty product name"}
		}
		if products[p] {
			return &ValidationError{Field: "products", Msg: fmt.Sprintf("duplicate product %q", p)}
		}
		products[p] = true
	}

	if len(b.Pairs) == 0 {
		return &ValidationError{Field: "pairs", Msg: "at least one (sector, product) pair is required"}
	}
	seenPair := make(map[AgentKey]bool, len(b.Pairs))
	for _, pair := range b.Pairs {
		if !sectors[pair.Sector] {
			return &ValidationError{Field: "pairs", Msg: fmt.Sprintf("pair %s references unknown sector", pair)}
		}
		if !products[pair.Product] {
			return &ValidationError{Field: "pairs", Msg: fmt.Sprintf("pair %s references unknown product", pair)}
		}
		if seenPair[pair] {
			return &ValidationError{Field: "pairs", Msg: fmt.Sprintf("duplicate pair %s", pair)}
		}
		seenPair[pair] = true

		ph, ok := b.Phases[pair]
		if !ok {
			return &ValidationError{Field: "phases." + pair.String(), Msg: "missing requirement phase parameters"}
		}
		if err := validatePhases(pair, ph); err != nil {
			return err
		}
	}

	for _, unit := range b.CreationUnits() {
		cp, ok := b.Creation[unit]
		if !ok {
			return &ValidationError{Field: "creation." + unit.String(), Msg: "missing creation parameters"}
		}
		if cp.LeadGenerationRate < 0 || cp.LeadToAgentRate < 0 || cp.ATAM < 0 {
			return &ValidationError{Field: "creation." + unit.String(), Msg: "rates and ATAM must be non-negative"}
		}
		ap, ok := b.Agent[unit]
		if !ok {
			return &ValidationError{Field: "agent." + unit.String(), Msg: "missing agent parameters"}
		}
		if ap.ProjectGenerationRate < 0 || ap.ProjectDuration < 0 || ap.ActivationDelay < 0 {
			return &ValidationError{Field: "agent." + unit.String(), Msg: "rates, durations and delays must be non-negative"}
		}
		if ap.MaxProjects < 1 {
			return &ValidationError{Field: "agent." + unit.String(), Msg: "max projects must be at least 1"}
		}
		if ap.ProjectsToActivation < 1 {
			return &ValidationError{Field: "agent." + unit.String(), Msg: "projects-to-activation threshold must be at least 1"}
		}
	}

	for _, p := range b.Products {
		dp, ok := b.Direct[p]
		if !ok {
			return &ValidationError{Field: "direct." + p, Msg: "missing direct-client parameters"}
		}
		if dp.InboundLeadRate < 0 || dp.OutboundLeadRate < 0 || dp.LeadToClientRate < 0 || dp.TAM < 0 {
			return &ValidationError{Field: "direct." + p, Msg: "lead rates and TAM must be non-negative"}
		}
		if dp.BaseOrderQuantity < 0 || dp.OrderGrowthRate < 0 {
			return &ValidationError{Field: "direct." + p, Msg: "order quantity and growth must be non-negative"}
		}
		if dp.OrderCapMultiplier < 1 {
			return &ValidationError{Field: "direct." + p, Msg: "order cap multiplier must be at least 1"}
		}
		if dp.MaxCohortAge < 1 {
			return &ValidationError{Field: "direct." + p, Msg: "max cohort age must be at least 1"}
		}
		// The terminal cohort bucket holds clients at the max tracked age,
		// which is only lossless once per-client orders have hit the cap.
		if dp.OrderGrowthRate*float64(dp.MaxCohortAge) < dp.OrderCapMultiplier-1 {
			return &ValidationError{Field: "direct." + p, Msg: "order cap must be reachable within max cohort age"}
		}
		if dp.LeadToRequirementDelay < 0 || dp.FulfillmentDelay < 0 {
			return &ValidationError{Field: "direct." + p, Msg: "delays must be non-negative"}
		}
		if _, ok := b.Price[p]; !ok {
			return &ValidationError{Field: "price." + p, Msg: "missing price series"}
		}
		if _, ok := b.Capacity[p]; !ok {
			return &ValidationError{Field: "capacity." + p, Msg: "missing capacity series"}
		}
	}

	return b.validateSeeds()
}

func validatePhases(pair AgentKey, ph PhaseParams) error {
	field := "phases." + pair.String()
	if ph.InitialDuration < 0 || ph.RampDuration < 0 {
		return &ValidationError{Field: field, Msg: "phase durations must be non-negative"}
	}
	if ph.InitialRate < 0 || ph.SteadyRate < 0 {
		return &ValidationError{Field: field, Msg: "phase rates must be non-negative"}
	}
	if ph.RampRate != nil && *ph.RampRate < 0 {
		return &ValidationError{Field: field, Msg: "ramp rate override must be non-negative"}
	}
	if ph.GrowthLimit != nil && *ph.GrowthLimit < 1 {
		return &ValidationError{Field: field, Msg: "growth limit multiplier must be at least 1"}
	}
	if ph.RequirementToOrderLag < 0 {
		return &ValidationError{Field: field, Msg: "requirement-to-order lag must be non-negative"}
	}
	return nil
}

func (b *ParameterBundle) validateSeeds() error {
	units := make(map[AgentKey]bool)
	for _, u := range b.CreationUnits() {
		units[u] = true
	}
	for key, n := range b.Seeds.ActiveAnchors {
		if !units[key] {
			return &ValidationError{Field: "seeds.active_anchors", Msg: fmt.Sprintf("unknown creation unit %s", key)}
		}
		if n < 0 {
			return &ValidationError{Field: "seeds.active_anchors", Msg: fmt.Sprintf("negative count for %s", key)}
		}
	}
	for key, n := range b.Seeds.CompletedProjects {
		if !units[key] {
			return &ValidationError{Field: "seeds.completed_projects", Msg: fmt.Sprintf("unknown creation unit %s", key)}
		}
		if n < 0 {
			return &ValidationError{Field: "seeds.completed_projects", Msg: fmt.Sprintf("negative count for %s", key)}
		}
	}
	for key, n := range b.Seeds.ElapsedPeriods {
		if !units[key] {
			return &ValidationError{Field: "seeds.elapsed_periods", Msg: fmt.Sprintf("unknown creation unit %s", key)}
		}
		if n < 0 {
			return &ValidationError{Field: "seeds.elapsed_periods", Msg: fmt.Sprintf("negative offset for %s", key)}
		}
	}
	known := make(map[string]bool, len(b.Products))
	for _, p := range b.Products {
		known[p] = true
	}
	for product, n := range b.Seeds.DirectClients {
		if !known[product] {
			return &ValidationError{Field: "seeds.direct_clients", Msg: fmt.Sprintf("unknown product %q", product)}
		}
		if n < 0 {
			return &ValidationError{Field: "seeds.direct_clients", Msg: fmt.Sprintf("negative count for %q", product)}
		}
	}
	return nil
}
