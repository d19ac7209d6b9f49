package scenario

import (
	"fmt"
	"sort"
	"strings"
)

// applyOverrides mutates the parsed scenario in place. Constant overrides
// address scalars by dotted target path; unknown targets fail with the
// offending name. Point overrides replace or insert lookup points.
func (sc *Scenario) applyOverrides() error {
	for _, o := range sc.Override.Constants {
		if err := sc.applyConstant(o); err != nil {
			return err
		}
	}
	for _, o := range sc.Override.Points {
		if err := sc.applyPoint(o); err != nil {
			return err
		}
	}
	return nil
}

// Target grammar:
//
//	runspecs.<field>
//	sector.<name>.<field>            creation or agent scalar
//	product.<name>.<field>           product scalar
//	product.<name>.direct.<field>    direct-channel scalar
//	product.<name>.phases.<field>    phase default scalar
//	pair.<sector>/<product>.<field>  pair phase patch scalar
func (sc *Scenario) applyConstant(o ConstantOverride) error {
	parts := strings.SplitN(o.Target, ".", 3)
	bad := func() error { return fmt.Errorf("override: unknown target %q", o.Target) }
	switch parts[0] {
	case "runspecs":
		if len(parts) != 2 {
			return bad()
		}
		switch parts[1] {
		case "starttime":
			sc.Runspecs.Start = o.Value
		case "stoptime":
			sc.Runspecs.Stop = o.Value
		case "dt":
			sc.Runspecs.DT = o.Value
		default:
			return bad()
		}
		return nil

	case "sector":
		if len(parts) != 3 {
			return bad()
		}
		for i := range sc.Sectors {
			if sc.Sectors[i].Name != parts[1] {
				continue
			}
			if applySectorField(&sc.Sectors[i], parts[2], o.Value) {
				return nil
			}
			return bad()
		}
		return fmt.Errorf("override: unknown sector %q in target %q", parts[1], o.Target)

	case "product":
		if len(parts) != 3 {
			return bad()
		}
		for i := range sc.Products {
			if sc.Products[i].Name != parts[1] {
				continue
			}
			if applyProductField(&sc.Products[i], parts[2], o.Value) {
				return nil
			}
			return bad()
		}
		return fmt.Errorf("override: unknown product %q in target %q", parts[1], o.Target)

	case "pair":
		if len(parts) != 3 {
			return bad()
		}
		key := parseUnitKey(parts[1])
		for i := range sc.Pairs {
			if sc.Pairs[i].Sector != key.Sector || sc.Pairs[i].Product != key.Product {
				continue
			}
			if sc.Pairs[i].Phases == nil {
				sc.Pairs[i].Phases = &yamlPhasePatch{}
			}
			if applyPhasePatchField(sc.Pairs[i].Phases, parts[2], o.Value) {
				return nil
			}
			return bad()
		}
		return fmt.Errorf("override: unknown pair %q in target %q", parts[1], o.Target)

	default:
		return bad()
	}
}

func applySectorField(s *SectorYAML, field string, v float64) bool {
	switch field {
	case "start_year":
		s.Creation.StartYear = v
	case "lead_generation_rate":
		s.Creation.LeadGenerationRate = v
	case "lead_to_agent_rate":
		s.Creation.LeadToAgentRate = v
	case "atam":
		s.Creation.ATAM = v
	case "project_generation_rate":
		s.Agent.ProjectGenerationRate = v
	case "max_projects":
		s.Agent.MaxProjects = int(v)
	case "project_duration":
		s.Agent.ProjectDuration = v
	case "projects_to_activation":
		s.Agent.ProjectsToActivation = int(v)
	case "activation_delay":
		s.Agent.ActivationDelay = v
	default:
		return false
	}
	return true
}

func applyProductField(p *ProductYAML, field string, v float64) bool {
	switch {
	case field == "start_year":
		p.StartYear = v
	case strings.HasPrefix(field, "direct."):
		return applyDirectField(&p.Direct, strings.TrimPrefix(field, "direct."), v)
	case strings.HasPrefix(field, "phases."):
		return applyPhasesField(&p.Phases, strings.TrimPrefix(field, "phases."), v)
	default:
		return false
	}
	return true
}

func applyDirectField(d *yamlDirect, field string, v float64) bool {
	switch field {
	case "start_year":
		d.StartYear = &v
	case "inbound_lead_rate":
		d.InboundLeadRate = v
	case "outbound_lead_rate":
		d.OutboundLeadRate = v
	case "lead_to_client_rate":
		d.LeadToClientRate = v
	case "tam":
		d.TAM = v
	case "base_order_quantity":
		d.BaseOrderQuantity = v
	case "order_growth_rate":
		d.OrderGrowthRate = v
	case "order_cap_multiplier":
		d.OrderCapMultiplier = v
	case "max_cohort_age":
		d.MaxCohortAge = int(v)
	case "lead_to_requirement_delay":
		d.LeadToRequirementDelay = v
	case "fulfillment_delay":
		d.FulfillmentDelay = v
	default:
		return false
	}
	return true
}

func applyPhasesField(ph *yamlPhases, field string, v float64) bool {
	switch field {
	case "initial_duration":
		ph.InitialDuration = int(v)
	case "ramp_duration":
		ph.RampDuration = int(v)
	case "initial_rate":
		ph.InitialRate = v
	case "initial_growth":
		ph.InitialGrowth = v
	case "ramp_rate":
		ph.RampRate = &v
	case "ramp_growth":
		ph.RampGrowth = v
	case "steady_rate":
		ph.SteadyRate = v
	case "steady_growth":
		ph.SteadyGrowth = v
	case "growth_limit":
		ph.GrowthLimit = &v
	case "requirement_to_order_lag":
		ph.RequirementToOrderLag = v
	default:
		return false
	}
	return true
}

func applyPhasePatchField(ph *yamlPhasePatch, field string, v float64) bool {
	iv := int(v)
	switch field {
	case "start_year":
		ph.StartYear = &v
	case "initial_duration":
		ph.InitialDuration = &iv
	case "ramp_duration":
		ph.RampDuration = &iv
	case "initial_rate":
		ph.InitialRate = &v
	case "initial_growth":
		ph.InitialGrowth = &v
	case "ramp_rate":
		ph.RampRate = &v
	case "ramp_growth":
		ph.RampGrowth = &v
	case "steady_rate":
		ph.SteadyRate = &v
	case "steady_growth":
		ph.SteadyGrowth = &v
	case "growth_limit":
		ph.GrowthLimit = &v
	case "requirement_to_order_lag":
		ph.RequirementToOrderLag = &v
	default:
		return false
	}
	return true
}

func (sc *Scenario) applyPoint(o PointOverride) error {
	for i := range sc.Products {
		if sc.Products[i].Name != o.Product {
			continue
		}
		var series *[]PointYAML
		switch o.Series {
		case "price":
			series = &sc.Products[i].Price
		case "max_capacity":
			series = &sc.Products[i].Capacity
		default:
			return fmt.Errorf("override: unknown series %q for product %q", o.Series, o.Product)
		}
		*series = upsertPoint(*series, o.Year, o.Value)
		return nil
	}
	return fmt.Errorf("override: unknown product %q in point override", o.Product)
}

// upsertPoint replaces the value at an existing year or inserts a new point,
// keeping the series sorted by year.
func upsertPoint(series []PointYAML, year, value float64) []PointYAML {
	for i := range series {
		if series[i].Year == year {
			series[i].Value = value
			return series
		}
	}
	series = append(series, PointYAML{Year: year, Value: value})
	sort.Slice(series, func(i, j int) bool { return series[i].Year < series[j].Year })
	return series
}
