// Package scenario loads YAML scenario files and resolves them into the
// fully specified parameter bundle the core consumes. All defaulting and
// precedence logic (product-level phase defaults, pair-level overrides,
// sector-vs-pair creation units) lives here; the core sees only resolved
// values.
package scenario

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dessentialist/growth-model/sim"
)

// Scenario is the YAML shape of one scenario file.
type Scenario struct {
	Runspecs RunspecsYAML  `yaml:"runspecs"`
	Sectors  []SectorYAML  `yaml:"sectors"`
	Products []ProductYAML `yaml:"products"`
	Pairs    []PairYAML    `yaml:"pairs"`
	Seeds    SeedsYAML     `yaml:"seeds"`
	Override OverrideYAML  `yaml:"overrides"`
}

// RunspecsYAML sets the time grid and the creation-unit mode.
type RunspecsYAML struct {
	Start         float64 `yaml:"starttime"`
	Stop          float64 `yaml:"stoptime"`
	DT            float64 `yaml:"dt"`
	PairwiseAgent bool    `yaml:"pairwise_agents"`
}

// SectorYAML declares one sector with its anchor creation chain and the
// project lifecycle of its agents.
type SectorYAML struct {
	Name     string       `yaml:"name"`
	Creation yamlCreation `yaml:"creation"`
	Agent    yamlAgent    `yaml:"agent"`
}

type yamlCreation struct {
	StartYear          float64 `yaml:"start_year"`
	LeadGenerationRate float64 `yaml:"lead_generation_rate"`
	LeadToAgentRate    float64 `yaml:"lead_to_agent_rate"`
	ATAM               float64 `yaml:"atam"`
}

type yamlAgent struct {
	ProjectGenerationRate float64 `yaml:"project_generation_rate"`
	MaxProjects           int     `yaml:"max_projects"`
	ProjectDuration       float64 `yaml:"project_duration"`
	ProjectsToActivation  int     `yaml:"projects_to_activation"`
	ActivationDelay       float64 `yaml:"activation_delay"`
}

// ProductYAML declares one product: its market start, the price and capacity
// series, the direct-client channel, and the product-level phase defaults
// that pairs inherit.
type ProductYAML struct {
	Name      string      `yaml:"name"`
	StartYear float64     `yaml:"start_year"`
	Price     []PointYAML `yaml:"price"`
	Capacity  []PointYAML `yaml:"max_capacity"`
	Direct    yamlDirect  `yaml:"direct"`
	Phases    yamlPhases  `yaml:"phases"`
}

// PointYAML is one lookup point of a price or capacity series.
type PointYAML struct {
	Year  float64 `yaml:"year"`
	Value float64 `yaml:"value"`
}

type yamlDirect struct {
	StartYear        *float64 `yaml:"start_year"` // defaults to the product start
	InboundLeadRate  float64  `yaml:"inbound_lead_rate"`
	OutboundLeadRate float64  `yaml:"outbound_lead_rate"`
	LeadToClientRate float64  `yaml:"lead_to_client_rate"`
	TAM              float64  `yaml:"tam"`

	BaseOrderQuantity  float64 `yaml:"base_order_quantity"`
	OrderGrowthRate    float64 `yaml:"order_growth_rate"`
	OrderCapMultiplier float64 `yaml:"order_cap_multiplier"`
	MaxCohortAge       int     `yaml:"max_cohort_age"`

	LeadToRequirementDelay float64 `yaml:"lead_to_requirement_delay"`
	FulfillmentDelay       float64 `yaml:"fulfillment_delay"`
}

type yamlPhases struct {
	InitialDuration int      `yaml:"initial_duration"`
	RampDuration    int      `yaml:"ramp_duration"`
	InitialRate     float64  `yaml:"initial_rate"`
	InitialGrowth   float64  `yaml:"initial_growth"`
	RampRate        *float64 `yaml:"ramp_rate"`
	RampGrowth      float64  `yaml:"ramp_growth"`
	SteadyRate      float64  `yaml:"steady_rate"`
	SteadyGrowth    float64  `yaml:"steady_growth"`
	GrowthLimit     *float64 `yaml:"growth_limit"`

	RequirementToOrderLag float64 `yaml:"requirement_to_order_lag"`
}

// yamlPhasePatch is the pair-level overlay: every field optional, non-nil
// fields win over the product defaults.
type yamlPhasePatch struct {
	StartYear       *float64 `yaml:"start_year"`
	InitialDuration *int     `yaml:"initial_duration"`
	RampDuration    *int     `yaml:"ramp_duration"`
	InitialRate     *float64 `yaml:"initial_rate"`
	InitialGrowth   *float64 `yaml:"initial_growth"`
	RampRate        *float64 `yaml:"ramp_rate"`
	RampGrowth      *float64 `yaml:"ramp_growth"`
	SteadyRate      *float64 `yaml:"steady_rate"`
	SteadyGrowth    *float64 `yaml:"steady_growth"`
	GrowthLimit     *float64 `yaml:"growth_limit"`

	RequirementToOrderLag *float64 `yaml:"requirement_to_order_lag"`
}

// PairYAML declares one (sector, product) demand channel. The phase patch is
// optional in sector mode; creation and agent patches only apply in pairwise
// mode, where each pair is its own creation unit.
type PairYAML struct {
	Sector   string          `yaml:"sector"`
	Product  string          `yaml:"product"`
	Phases   *yamlPhasePatch `yaml:"phases"`
	Creation *yamlCreation   `yaml:"creation"`
	Agent    *yamlAgent      `yaml:"agent"`
}

// SeedsYAML injects pre-existing populations. Creation-unit keys are sector
// names, or "Sector/Product" in pairwise mode.
type SeedsYAML struct {
	ActiveAnchors     map[string]int `yaml:"active_anchors"`
	ElapsedPeriods    map[string]int `yaml:"elapsed_periods"`
	CompletedProjects map[string]int `yaml:"completed_projects"`
	DirectClients     map[string]int `yaml:"direct_clients"`
}

// OverrideYAML carries late-binding scenario tweaks applied after the base
// resolution: constant overrides addressed by dotted target paths, and
// price/capacity point overrides that replace or insert a lookup point.
type OverrideYAML struct {
	Constants []ConstantOverride `yaml:"constants"`
	Points    []PointOverride    `yaml:"points"`
}

// ConstantOverride retargets one scalar parameter, e.g.
// "sector.Defense.lead_generation_rate" or "pair.Defense/Fiber.initial_rate"
// or "product.Fiber.direct.tam".
type ConstantOverride struct {
	Target string  `yaml:"target"`
	Value  float64 `yaml:"value"`
}

// PointOverride replaces the value at an existing year of a price or
// capacity series, or inserts a new point keeping the series sorted.
type PointOverride struct {
	Product string  `yaml:"product"`
	Series  string  `yaml:"series"` // "price" or "max_capacity"
	Year    float64 `yaml:"year"`
	Value   float64 `yaml:"value"`
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &sc, nil
}

// Resolve applies overrides, resolves all precedence, and produces the fully
// specified bundle. The returned bundle still goes through sim validation in
// Build; Resolve only reports errors the core cannot see, such as unknown
// override targets.
func (sc *Scenario) Resolve() (*sim.ParameterBundle, error) {
	if err := sc.applyOverrides(); err != nil {
		return nil, err
	}

	b := &sim.ParameterBundle{
		RunSpecs:       sim.RunSpecs{Start: sc.Runspecs.Start, Stop: sc.Runspecs.Stop, Step: sc.Runspecs.DT},
		PairwiseAgents: sc.Runspecs.PairwiseAgent,
		Creation:       map[sim.AgentKey]sim.CreationParams{},
		Agent:          map[sim.AgentKey]sim.AgentParams{},
		Phases:         map[sim.AgentKey]sim.PhaseParams{},
		Direct:         map[string]sim.DirectParams{},
		Price:          map[string][]sim.LookupPoint{},
		Capacity:       map[string][]sim.LookupPoint{},
	}

	products := make(map[string]*ProductYAML, len(sc.Products))
	for i := range sc.Products {
		p := &sc.Products[i]
		b.Products = append(b.Products, p.Name)
		products[p.Name] = p

		b.Price[p.Name] = points(p.Price)
		b.Capacity[p.Name] = points(p.Capacity)

		directStart := p.StartYear
		if p.Direct.StartYear != nil {
			directStart = *p.Direct.StartYear
		}
		b.Direct[p.Name] = sim.DirectParams{
			StartYear:              directStart,
			InboundLeadRate:        p.Direct.InboundLeadRate,
			OutboundLeadRate:       p.Direct.OutboundLeadRate,
			LeadToClientRate:       p.Direct.LeadToClientRate,
			TAM:                    p.Direct.TAM,
			BaseOrderQuantity:      p.Direct.BaseOrderQuantity,
			OrderGrowthRate:        p.Direct.OrderGrowthRate,
			OrderCapMultiplier:     p.Direct.OrderCapMultiplier,
			MaxCohortAge:           p.Direct.MaxCohortAge,
			LeadToRequirementDelay: p.Direct.LeadToRequirementDelay,
			FulfillmentDelay:       p.Direct.FulfillmentDelay,
		}
	}

	sectors := make(map[string]*SectorYAML, len(sc.Sectors))
	for i := range sc.Sectors {
		s := &sc.Sectors[i]
		b.Sectors = append(b.Sectors, s.Name)
		sectors[s.Name] = s
	}

	for i := range sc.Pairs {
		py := &sc.Pairs[i]
		pair := sim.AgentKey{Sector: py.Sector, Product: py.Product}
		b.Pairs = append(b.Pairs, pair)

		prod, ok := products[py.Product]
		if !ok {
			return nil, fmt.Errorf("pair %s: unknown product %q", pair, py.Product)
		}
		sector, ok := sectors[py.Sector]
		if !ok {
			return nil, fmt.Errorf("pair %s: unknown sector %q", pair, py.Sector)
		}
		b.Phases[pair] = resolvePhases(prod, py.Phases)

		if b.PairwiseAgents {
			// Each pair is its own creation unit; pair-level creation and
			// agent patches win over the sector's parameters.
			creation, agent := sector.Creation, sector.Agent
			if py.Creation != nil {
				creation = *py.Creation
			}
			if py.Agent != nil {
				agent = *py.Agent
			}
			b.Creation[pair] = creationParams(creation)
			b.Agent[pair] = agentParams(agent)
		} else if py.Creation != nil || py.Agent != nil {
			return nil, fmt.Errorf("pair %s: creation/agent overrides require pairwise_agents mode", pair)
		}
	}

	if !b.PairwiseAgents {
		for _, s := range sc.Sectors {
			key := sim.AgentKey{Sector: s.Name}
			b.Creation[key] = creationParams(s.Creation)
			b.Agent[key] = agentParams(s.Agent)
		}
	}

	seeds, err := sc.resolveSeeds(b)
	if err != nil {
		return nil, err
	}
	b.Seeds = seeds
	return b, nil
}

func points(in []PointYAML) []sim.LookupPoint {
	out := make([]sim.LookupPoint, len(in))
	for i, p := range in {
		out[i] = sim.LookupPoint{T: p.Year, V: p.Value}
	}
	return out
}

func creationParams(c yamlCreation) sim.CreationParams {
	return sim.CreationParams{
		StartYear:          c.StartYear,
		LeadGenerationRate: c.LeadGenerationRate,
		LeadToAgentRate:    c.LeadToAgentRate,
		ATAM:               c.ATAM,
	}
}

func agentParams(a yamlAgent) sim.AgentParams {
	return sim.AgentParams{
		ProjectGenerationRate: a.ProjectGenerationRate,
		MaxProjects:           a.MaxProjects,
		ProjectDuration:       a.ProjectDuration,
		ProjectsToActivation:  a.ProjectsToActivation,
		ActivationDelay:       a.ActivationDelay,
	}
}

// resolvePhases overlays an optional pair patch on the product defaults.
func resolvePhases(prod *ProductYAML, patch *yamlPhasePatch) sim.PhaseParams {
	ph := sim.PhaseParams{
		StartYear:             prod.StartYear,
		InitialDuration:       prod.Phases.InitialDuration,
		RampDuration:          prod.Phases.RampDuration,
		InitialRate:           prod.Phases.InitialRate,
		InitialGrowth:         prod.Phases.InitialGrowth,
		RampRate:              prod.Phases.RampRate,
		RampGrowth:            prod.Phases.RampGrowth,
		SteadyRate:            prod.Phases.SteadyRate,
		SteadyGrowth:          prod.Phases.SteadyGrowth,
		GrowthLimit:           prod.Phases.GrowthLimit,
		RequirementToOrderLag: prod.Phases.RequirementToOrderLag,
	}
	if patch == nil {
		return ph
	}
	if patch.StartYear != nil {
		ph.StartYear = *patch.StartYear
	}
	if patch.InitialDuration != nil {
		ph.InitialDuration = *patch.InitialDuration
	}
	if patch.RampDuration != nil {
		ph.RampDuration = *patch.RampDuration
	}
	if patch.InitialRate != nil {
		ph.InitialRate = *patch.InitialRate
	}
	if patch.InitialGrowth != nil {
		ph.InitialGrowth = *patch.InitialGrowth
	}
	if patch.RampRate != nil {
		ph.RampRate = patch.RampRate
	}
	if patch.RampGrowth != nil {
		ph.RampGrowth = *patch.RampGrowth
	}
	if patch.SteadyRate != nil {
		ph.SteadyRate = *patch.SteadyRate
	}
	if patch.SteadyGrowth != nil {
		ph.SteadyGrowth = *patch.SteadyGrowth
	}
	if patch.GrowthLimit != nil {
		ph.GrowthLimit = patch.GrowthLimit
	}
	if patch.RequirementToOrderLag != nil {
		ph.RequirementToOrderLag = *patch.RequirementToOrderLag
	}
	return ph
}

// parseUnitKey parses a seed key: "Sector" or "Sector/Product".
func parseUnitKey(s string) sim.AgentKey {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		return sim.AgentKey{Sector: s[:i], Product: s[i+1:]}
	}
	return sim.AgentKey{Sector: s}
}

func (sc *Scenario) resolveSeeds(b *sim.ParameterBundle) (sim.Seeds, error) {
	seeds := sim.Seeds{
		ActiveAnchors:     map[sim.AgentKey]int{},
		ElapsedPeriods:    map[sim.AgentKey]int{},
		CompletedProjects: map[sim.AgentKey]int{},
		DirectClients:     map[string]int{},
	}
	for k, n := range sc.Seeds.ActiveAnchors {
		seeds.ActiveAnchors[parseUnitKey(k)] = n
	}
	for k, n := range sc.Seeds.ElapsedPeriods {
		seeds.ElapsedPeriods[parseUnitKey(k)] = n
	}
	for k, n := range sc.Seeds.CompletedProjects {
		seeds.CompletedProjects[parseUnitKey(k)] = n
	}
	for product, n := range sc.Seeds.DirectClients {
		seeds.DirectClients[product] = n
	}
	return seeds, nil
}
