package sim

import (
	"math"
	"strings"
)

func sanitize(s string) string { return strings.ReplaceAll(s, " ", "_") }

// suffix renders the element-name suffix for a creation unit or pair.
func suffix(key AgentKey) string {
	switch {
	case key.Product == "":
		return sanitize(key.Sector)
	case key.Sector == "":
		return sanitize(key.Product)
	default:
		return sanitize(key.Sector) + "_" + sanitize(key.Product)
	}
}

// creationUnit bundles the accumulate-and-fire creation chain and the live
// agent population of one sector (or pair, in pairwise mode).
type creationUnit struct {
	key     AgentKey
	fire    *Converter
	leadGen *Converter
	cpc     *Stock
	cum     *Stock
	factory func() *AnchorAgent
	agents  []*AnchorAgent
}

// productBlock bundles the per-product demand, capacity and revenue chain.
type productBlock struct {
	product string
	sectors []string
	ledger  *CohortLedger

	clientCreation *Converter
	totalLeads     *Converter
	clients        *Stock

	price          *Converter
	capacity       *Converter
	clientReq      *Converter
	aggDemand      *Converter
	totalDemand    *Converter
	fulfillment    *Converter
	clientDelivery *Converter
	anchorDelivery *Converter
	revenue        *Converter

	anchorDeliveryBySector map[string]*Converter
}

// Build constructs the full simulation state from a validated parameter
// bundle: the continuous element network, lookups and delay operators, the
// coupling gateways, the cohort ledgers, and the (possibly seeded) agent
// population. It fails fast on any missing or invalid value.
func Build(bundle *ParameterBundle) (*Simulator, error) {
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	grid, err := NewTimeGrid(bundle.RunSpecs.Start, bundle.RunSpecs.Stop, bundle.RunSpecs.Step)
	if err != nil {
		return nil, err
	}

	eng := NewEngine()
	pps := grid.PeriodsPerStep()

	anchorGW := NewGateway("anchor", bundle.Pairs)
	clientKeys := make([]AgentKey, 0, len(bundle.Products))
	for _, p := range bundle.Products {
		clientKeys = append(clientKeys, AgentKey{Product: p})
	}
	clientGW := NewGateway("client", clientKeys)

	s := &Simulator{
		Grid:     grid,
		Engine:   eng,
		bundle:   bundle,
		anchorGW: anchorGW,
		clientGW: clientGW,
	}

	for _, key := range bundle.CreationUnits() {
		s.units = append(s.units, buildCreationUnit(eng, bundle, key, pps))
	}

	for _, product := range bundle.Products {
		block, err := buildProductBlock(eng, bundle, grid, product, clientGW, anchorGW)
		if err != nil {
			return nil, err
		}
		s.products = append(s.products, block)
	}

	blocks := s.products
	s.totalRevenue = eng.Converter("Total_Revenue", func(ctx *StepContext) float64 {
		var total float64
		for _, b := range blocks {
			total += b.revenue.Value(ctx)
		}
		return total
	})

	if err := s.applySeeds(); err != nil {
		return nil, err
	}
	return s, nil
}

func buildCreationUnit(eng *Engine, bundle *ParameterBundle, key AgentKey, pps float64) *creationUnit {
	cp := bundle.Creation[key]
	ap := bundle.Agent[key]
	sfx := suffix(key)

	// Lead generation gated by start time and the ATAM ceiling on the
	// cumulative-leads stock.
	cpc := eng.Stock("CPC_"+sfx, 0)
	leadGen := eng.Converter("Anchor_Lead_Generation_"+sfx, func(ctx *StepContext) float64 {
		if ctx.Time < cp.StartYear-1e-9 || cpc.Value() >= cp.ATAM {
			return 0
		}
		return cp.LeadGenerationRate * pps
	})
	cpc.SetNet(leadGen.Value)

	newPC := eng.Converter("New_PC_Flow_"+sfx, func(ctx *StepContext) float64 {
		return leadGen.Value(ctx) * cp.LeadToAgentRate
	})

	// Accumulate-and-fire: fractional conversions build up in the
	// accumulator stock; whole agents fire out and drain it.
	acc := eng.Stock("Agent_Creation_Accumulator_"+sfx, 0)
	fire := eng.Converter("Agents_To_Create_"+sfx, func(ctx *StepContext) float64 {
		return float64(FireCount(acc.Value()))
	})
	acc.SetNet(func(ctx *StepContext) float64 {
		count := int(math.Round(fire.Value(ctx)))
		return newPC.Value(ctx) - FireDrain(count, pps)
	})

	cum := eng.Stock("Cumulative_Agents_Created_"+sfx, 0)
	cum.SetNet(fire.Value)

	lines := make([]ProductLine, 0)
	for _, pair := range bundle.PairsForUnit(key) {
		lines = append(lines, ProductLine{Product: pair.Product, Phases: bundle.Phases[pair]})
	}
	factory := func() *AnchorAgent { return NewAnchorAgent(key, ap, lines) }

	return &creationUnit{key: key, fire: fire, leadGen: leadGen, cpc: cpc, cum: cum, factory: factory}
}

func buildProductBlock(eng *Engine, bundle *ParameterBundle, grid *TimeGrid, product string, clientGW, anchorGW *Gateway) (*productBlock, error) {
	dp := bundle.Direct[product]
	msfx := sanitize(product)
	pps := grid.PeriodsPerStep()

	priceTable, err := NewLookupTable("Price_"+msfx, bundle.Price[product])
	if err != nil {
		return nil, err
	}
	capTable, err := NewLookupTable("Max_Capacity_"+msfx, bundle.Capacity[product])
	if err != nil {
		return nil, err
	}

	// Direct lead structure, gated by product start time and TAM.
	cl := eng.Stock("CL_"+msfx, 0)
	inbound := eng.Converter("Inbound_Leads_"+msfx, func(ctx *StepContext) float64 {
		if ctx.Time < dp.StartYear-1e-9 || cl.Value() >= dp.TAM {
			return 0
		}
		return dp.InboundLeadRate * pps
	})
	outbound := eng.Converter("Outbound_Leads_"+msfx, func(ctx *StepContext) float64 {
		if ctx.Time < dp.StartYear-1e-9 || cl.Value() >= dp.TAM {
			return 0
		}
		return dp.OutboundLeadRate * pps
	})
	totalLeads := eng.Converter("Total_New_Leads_"+msfx, func(ctx *StepContext) float64 {
		return inbound.Value(ctx) + outbound.Value(ctx)
	})
	cl.SetNet(totalLeads.Value)

	frac := eng.Converter("Fractional_Client_Conversion_"+msfx, func(ctx *StepContext) float64 {
		return totalLeads.Value(ctx) * dp.LeadToClientRate
	})
	pc := eng.Stock("Potential_Clients_"+msfx, 0)
	clientCreation := eng.Converter("Client_Creation_"+msfx, func(ctx *StepContext) float64 {
		return float64(FireCount(pc.Value()))
	})
	pc.SetNet(func(ctx *StepContext) float64 {
		count := int(math.Round(clientCreation.Value(ctx)))
		return frac.Value(ctx) - FireDrain(count, pps)
	})
	clients := eng.Stock("C_"+msfx, 0)
	clients.SetNet(clientCreation.Value)

	ledger, err := NewCohortLedger(product, dp, grid)
	if err != nil {
		return nil, err
	}

	// Demand channels meet here: aggregated anchor demand from the gateway,
	// client requirement from the cohort ledger.
	productKey := AgentKey{Product: product}
	clientReq := eng.Converter("Client_Requirement_"+msfx, func(ctx *StepContext) float64 {
		return clientGW.MustRead(productKey)
	})

	sectors := bundle.SectorsForProduct(product)
	aggDemand := eng.Converter("Agent_Aggregated_Demand_"+msfx, func(ctx *StepContext) float64 {
		var total float64
		for _, sector := range sectors {
			total += anchorGW.MustRead(AgentKey{Sector: sector, Product: product})
		}
		return total
	})
	totalDemand := eng.Converter("Total_Demand_"+msfx, func(ctx *StepContext) float64 {
		return aggDemand.Value(ctx) + clientReq.Value(ctx)
	})

	// Annual capacity normalized to the step's share of the year, so it is
	// comparable to per-step demand.
	capacity := eng.Converter("Max_Capacity_"+msfx, func(ctx *StepContext) float64 {
		return capTable.Value(ctx.Time) * grid.Step
	})
	price := eng.Converter("Price_"+msfx, func(ctx *StepContext) float64 {
		return priceTable.Value(ctx.Time)
	})

	fulfillment := eng.Converter("Fulfillment_Ratio_"+msfx, func(ctx *StepContext) float64 {
		td := totalDemand.Value(ctx)
		if td <= 0 {
			return 1
		}
		r := capacity.Value(ctx) / td
		if r > 1 {
			r = 1
		}
		return r
	})

	fulfillDelay, err := NewDelayOperator("Requirement_To_Fulfilment_Delay_"+msfx, dp.FulfillmentDelay, grid)
	if err != nil {
		return nil, err
	}
	clientDelivery := eng.Converter("Client_Delivery_Flow_"+msfx, func(ctx *StepContext) float64 {
		return fulfillDelay.Push(clientReq.Value(ctx) * fulfillment.Value(ctx))
	})

	bySector := make(map[string]*Converter, len(sectors))
	sectorDeliveries := make([]*Converter, 0, len(sectors))
	for _, sector := range sectors {
		pair := AgentKey{Sector: sector, Product: product}
		lag := bundle.Phases[pair].RequirementToOrderLag
		d, err := NewDelayOperator("Requirement_To_Order_Lag_"+suffix(pair), lag, grid)
		if err != nil {
			return nil, err
		}
		adf := eng.Converter("Anchor_Delivery_Flow_"+suffix(pair), func(ctx *StepContext) float64 {
			return d.Push(anchorGW.MustRead(pair) * fulfillment.Value(ctx))
		})
		bySector[sector] = adf
		sectorDeliveries = append(sectorDeliveries, adf)
	}
	anchorDelivery := eng.Converter("Anchor_Delivery_Flow_"+msfx, func(ctx *StepContext) float64 {
		var total float64
		for _, adf := range sectorDeliveries {
			total += adf.Value(ctx)
		}
		return total
	})

	revenue := eng.Converter("Revenue_"+msfx, func(ctx *StepContext) float64 {
		return (anchorDelivery.Value(ctx) + clientDelivery.Value(ctx)) * price.Value(ctx)
	})

	return &productBlock{
		product:                product,
		sectors:                sectors,
		ledger:                 ledger,
		clientCreation:         clientCreation,
		totalLeads:             totalLeads,
		clients:                clients,
		price:                  price,
		capacity:               capacity,
		clientReq:              clientReq,
		aggDemand:              aggDemand,
		totalDemand:            totalDemand,
		fulfillment:            fulfillment,
		clientDelivery:         clientDelivery,
		anchorDelivery:         anchorDelivery,
		revenue:                revenue,
		anchorDeliveryBySector: bySector,
	}, nil
}

// applySeeds injects pre-existing populations: already-Active anchor agents
// (optionally aged via elapsed-period offsets), completed-project backlogs
// converted to whole Active agents, and pre-aged direct clients. Gating and
// monitoring stocks are adjusted so ATAM ceilings and cumulative counters
// reflect the seeded population.
func (s *Simulator) applySeeds() error {
	seeds := s.bundle.Seeds
	start := s.Grid.Start

	for _, unit := range s.units {
		n := seeds.ActiveAnchors[unit.key]
		if backlog := seeds.CompletedProjects[unit.key]; backlog > 0 {
			// Whole agents only; per-agent progress is not fungible, so the
			// remainder below the threshold is discarded.
			n += backlog / s.bundle.Agent[unit.key].ProjectsToActivation
		}
		if n <= 0 {
			continue
		}
		elapsed := seeds.ElapsedPeriods[unit.key]
		activation := start - float64(elapsed)*PeriodYears
		for i := 0; i < n; i++ {
			agent := unit.factory()
			agent.ForceActive(activation)
			unit.agents = append(unit.agents, agent)
		}
		unit.cpc.SetInitial(unit.cpc.Value() + float64(n))
		unit.cum.SetInitial(unit.cum.Value() + float64(n))
	}

	for _, block := range s.products {
		if n := seeds.DirectClients[block.product]; n > 0 {
			block.ledger.SeedTerminal(int64(n))
			block.clients.SetInitial(block.clients.Value() + float64(n))
		}
	}
	return nil
}
