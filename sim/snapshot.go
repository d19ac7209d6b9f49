package sim

// ProductKPIs are the per-product outputs of one step.
type ProductKPIs struct {
	AnchorDemand      float64
	ClientRequirement float64
	TotalDemand       float64
	FulfillmentRatio  float64
	AnchorDelivery    float64
	ClientDelivery    float64
	Price             float64
	Revenue           float64
	NewClients        int64
	DirectClients     int64
	DirectLeads       float64
}

// SectorKPIs are the per-sector outputs of one step.
type SectorKPIs struct {
	AnchorLeads      float64
	AgentsCreated    float64 // cumulative
	ActiveAnchors    int
	PendingAnchors   int
	ActiveProjects   int
	AnchorRevenue    float64
	AnchorDeliveries float64
}

// KPISnapshot is the full observable state of one step, read from the
// memoized element values after evaluation and before integration.
type KPISnapshot struct {
	Step   int
	Time   float64
	Period string

	Products map[string]ProductKPIs
	Sectors  map[string]SectorKPIs

	TotalRevenue float64
	TotalClients int64
	TotalAnchors int
}

// capture reads the memoized current-step values. It must run after
// EvaluateAll and before Integrate; converter memoization guarantees these
// reads cause no re-evaluation or duplicate delay pushes.
func (s *Simulator) capture(ctx *StepContext) *KPISnapshot {
	snap := &KPISnapshot{
		Step:     ctx.Step,
		Time:     ctx.Time,
		Period:   s.Grid.PeriodLabel(ctx.Step),
		Products: make(map[string]ProductKPIs, len(s.products)),
		Sectors:  make(map[string]SectorKPIs, len(s.bundle.Sectors)),
	}

	for _, block := range s.products {
		pk := ProductKPIs{
			AnchorDemand:      block.aggDemand.Value(ctx),
			ClientRequirement: block.clientReq.Value(ctx),
			TotalDemand:       block.totalDemand.Value(ctx),
			FulfillmentRatio:  block.fulfillment.Value(ctx),
			AnchorDelivery:    block.anchorDelivery.Value(ctx),
			ClientDelivery:    block.clientDelivery.Value(ctx),
			Price:             block.price.Value(ctx),
			Revenue:           block.revenue.Value(ctx),
			NewClients:        int64(block.clientCreation.Value(ctx)),
			DirectClients:     block.ledger.Population(),
			DirectLeads:       block.totalLeads.Value(ctx),
		}
		snap.Products[block.product] = pk
		snap.TotalClients += pk.DirectClients
	}

	sectors := make(map[string]*SectorKPIs, len(s.bundle.Sectors))
	for _, sector := range s.bundle.Sectors {
		sectors[sector] = &SectorKPIs{}
	}
	for _, unit := range s.units {
		sk := sectors[unit.key.Sector]
		sk.AnchorLeads += unit.leadGen.Value(ctx)
		sk.AgentsCreated += unit.cum.Value() + unit.fire.Value(ctx)
		for _, agent := range unit.agents {
			switch agent.State {
			case Active:
				sk.ActiveAnchors++
			case PendingActivation:
				sk.PendingAnchors++
			}
			sk.ActiveProjects += agent.ProjectsInProgress()
		}
	}
	for _, block := range s.products {
		price := block.price.Value(ctx)
		for sector, adf := range block.anchorDeliveryBySector {
			delivered := adf.Value(ctx)
			sectors[sector].AnchorDeliveries += delivered
			sectors[sector].AnchorRevenue += delivered * price
		}
	}
	for sector, sk := range sectors {
		snap.Sectors[sector] = *sk
		snap.TotalAnchors += sk.ActiveAnchors
	}

	snap.TotalRevenue = s.totalRevenue.Value(ctx)
	return snap
}
