package sim

import "fmt"

// AgentKey identifies a demand channel endpoint: a (sector, product) pair
// for anchor demand, a sector alone for sector-mode agent creation, or a
// product alone for direct-client slots.
type AgentKey struct {
	Sector  string
	Product string
}

func (k AgentKey) String() string {
	switch {
	case k.Sector == "":
		return k.Product
	case k.Product == "":
		return k.Sector
	default:
		return k.Sector + "/" + k.Product
	}
}

type gatewaySlot struct {
	value   float64
	written bool
}

// Gateway holds the per-step coupling slots that bridge discrete demand into
// the continuous evaluator. Slots are declared at build time; each is
// written exactly once per step and may be read many times within that step.
// Reset invalidates all slots at the start of the next step.
type Gateway struct {
	name  string
	slots map[AgentKey]*gatewaySlot
}

// NewGateway declares a gateway with a fixed slot universe.
func NewGateway(name string, keys []AgentKey) *Gateway {
	g := &Gateway{name: name, slots: make(map[AgentKey]*gatewaySlot, len(keys))}
	for _, k := range keys {
		g.slots[k] = &gatewaySlot{}
	}
	return g
}

// Write stores the demand value for a slot. Writing an undeclared slot or
// writing the same slot twice within a step is an error.
func (g *Gateway) Write(key AgentKey, v float64) error {
	s, ok := g.slots[key]
	if !ok {
		return fmt.Errorf("gateway %s: write to undeclared slot %s", g.name, key)
	}
	if s.written {
		return fmt.Errorf("gateway %s: slot %s written twice in one step", g.name, key)
	}
	s.value = v
	s.written = true
	return nil
}

// Read returns the slot value and whether it has been written this step.
func (g *Gateway) Read(key AgentKey) (float64, bool) {
	s, ok := g.slots[key]
	if !ok || !s.written {
		return 0, false
	}
	return s.value, true
}

// MustRead is the converter-side accessor. A read before the scheduler has
// written the slot is a pipeline-ordering bug, not a recoverable condition.
func (g *Gateway) MustRead(key AgentKey) float64 {
	v, ok := g.Read(key)
	if !ok {
		panic(fmt.Sprintf("sim: gateway %s slot %s read before write", g.name, key))
	}
	return v
}

// Reset invalidates every slot for the next step.
func (g *Gateway) Reset() {
	for _, s := range g.slots {
		s.written = false
		s.value = 0
	}
}
