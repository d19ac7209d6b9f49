package sim

// LifecycleState is the anchor agent lifecycle. Transitions are monotonic
// and one-directional; an agent never leaves Active.
type LifecycleState int

const (
	Potential LifecycleState = iota
	PendingActivation
	Active
)

func (s LifecycleState) String() string {
	switch s {
	case Potential:
		return "potential"
	case PendingActivation:
		return "pending-activation"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// ProductLine binds one served product to its resolved phase parameters.
type ProductLine struct {
	Product string
	Phases  PhaseParams
}

// AnchorAgent is a deterministic, long-lived discrete agent. While
// Potential it starts and completes projects; once enough projects complete
// it schedules activation, and once Active it generates per-product
// requirements through the initial/ramp/steady phases. Agents are created by
// the accumulate-and-fire creation signal and persist to the end of the run.
type AnchorAgent struct {
	Key   AgentKey
	Lines []ProductLine
	State LifecycleState

	params AgentParams

	activationTime float64
	hasActivation  bool
	pendingSince   float64

	startAccumulator  float64
	started           int
	completed         int
	completionOffsets []float64 // remaining years per in-flight project

	requirements map[string]float64
}

// NewAnchorAgent builds a fresh Potential agent for a creation unit.
func NewAnchorAgent(key AgentKey, params AgentParams, lines []ProductLine) *AnchorAgent {
	reqs := make(map[string]float64, len(lines))
	for _, l := range lines {
		reqs[l.Product] = 0
	}
	return &AnchorAgent{
		Key:          key,
		Lines:        lines,
		State:        Potential,
		params:       params,
		requirements: reqs,
	}
}

// ProjectsStarted returns the cumulative number of projects ever started.
func (a *AnchorAgent) ProjectsStarted() int { return a.started }

// ProjectsCompleted returns the cumulative number of completed projects.
func (a *AnchorAgent) ProjectsCompleted() int { return a.completed }

// ProjectsInProgress returns the number of projects currently running.
func (a *AnchorAgent) ProjectsInProgress() int {
	n := a.started - a.completed
	if n < 0 {
		return 0
	}
	return n
}

// ActivationTime returns the absolute activation time and whether it is set.
func (a *AnchorAgent) ActivationTime() (float64, bool) {
	return a.activationTime, a.hasActivation
}

// ForceActive puts a seeded agent straight into the Active state with a
// backdated activation time, so elapsed-time offsets age its phases.
func (a *AnchorAgent) ForceActive(activationTime float64) {
	a.activationTime = activationTime
	a.hasActivation = true
	a.pendingSince = activationTime
	a.State = Active
}

// Act advances the agent by one step at absolute time t and returns the
// per-product requirement for this step. The same inputs always produce the
// same series; there is no randomness anywhere in the agent.
func (a *AnchorAgent) Act(t float64, grid *TimeGrid) map[string]float64 {
	a.progress(t, grid)
	out := make(map[string]float64, len(a.Lines))
	for _, line := range a.Lines {
		out[line.Product] = a.requirementFor(line, t)
	}
	a.requirements = out
	return out
}

func (a *AnchorAgent) progress(t float64, grid *TimeGrid) {
	if a.State == Potential {
		// Completion runs before new-project bookkeeping so the in-progress
		// count never conflates a project started and finished in one step.
		a.completeProjects(grid.Step)
		a.maybeStartProjects(grid.PeriodsPerStep())

		if !a.hasActivation && a.completed >= a.params.ProjectsToActivation {
			a.hasActivation = true
			a.activationTime = t + a.params.ActivationDelay*PeriodYears
			a.pendingSince = t
			a.State = PendingActivation
		}
	}
	// Clock-based, not event-based: activation happens on the first step
	// whose time reaches the scheduled activation time.
	if a.State == PendingActivation && t >= a.activationTime-1e-9 {
		a.State = Active
	}
}

func (a *AnchorAgent) completeProjects(dtYears float64) {
	if len(a.completionOffsets) == 0 {
		return
	}
	remaining := a.completionOffsets[:0]
	for _, offset := range a.completionOffsets {
		offset -= dtYears
		if offset <= 1e-12 {
			a.completed++
		} else {
			remaining = append(remaining, offset)
		}
	}
	a.completionOffsets = remaining
}

func (a *AnchorAgent) maybeStartProjects(periodsPerStep float64) {
	if a.ProjectsInProgress() >= a.params.MaxProjects {
		return
	}
	a.startAccumulator += a.params.ProjectGenerationRate * periodsPerStep
	toStart := int(a.startAccumulator)
	if toStart <= 0 {
		return
	}
	canStart := a.params.MaxProjects - a.ProjectsInProgress()
	if toStart < canStart {
		canStart = toStart
	}
	duration := a.params.ProjectDuration * PeriodYears
	for i := 0; i < canStart; i++ {
		a.started++
		a.completionOffsets = append(a.completionOffsets, duration)
	}
	a.startAccumulator -= float64(toStart)
}

func (a *AnchorAgent) requirementFor(line ProductLine, t float64) float64 {
	if a.State != Active {
		return 0
	}
	if t < line.Phases.StartYear-1e-9 {
		return 0
	}
	elapsed := t - a.activationTime
	if elapsed < 0 {
		elapsed = 0
	}
	period := int(elapsed/PeriodYears + 1e-9)
	return PhaseValue(line.Phases, period)
}

// PhaseValue computes the per-period requirement at the given number of
// periods since activation. Growth is additive within each phase; the ramp
// phase continues from the initial phase's ending value unless an explicit
// ramp rate is configured, and the steady phase is optionally capped at
// InitialRate × GrowthLimit.
func PhaseValue(p PhaseParams, period int) float64 {
	if period < 0 {
		period = 0
	}
	switch {
	case period < p.InitialDuration:
		return p.InitialRate + p.InitialGrowth*float64(period)
	case period < p.InitialDuration+p.RampDuration:
		base := p.InitialRate + p.InitialGrowth*float64(p.InitialDuration)
		if p.RampRate != nil {
			base = *p.RampRate
		}
		return base + p.RampGrowth*float64(period-p.InitialDuration)
	default:
		v := p.SteadyRate + p.SteadyGrowth*float64(period-p.InitialDuration-p.RampDuration)
		if p.GrowthLimit != nil {
			if limit := p.InitialRate * *p.GrowthLimit; v > limit {
				v = limit
			}
		}
		return v
	}
}
