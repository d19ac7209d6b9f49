package sim

import "testing"

func TestGateway_WriteThenRead(t *testing.T) {
	// GIVEN a gateway with one declared pair slot
	pair := AgentKey{Sector: "Defense", Product: "Fiber"}
	g := NewGateway("anchor", []AgentKey{pair})

	// WHEN the slot is written and read
	if err := g.Write(pair, 42.5); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, ok := g.Read(pair)

	// THEN the read returns the written value
	if !ok || got != 42.5 {
		t.Errorf("Read: got (%v, %v), want (42.5, true)", got, ok)
	}
	if got := g.MustRead(pair); got != 42.5 {
		t.Errorf("MustRead: got %v, want 42.5", got)
	}
}

func TestGateway_DoubleWriteFails(t *testing.T) {
	// GIVEN a slot already written this step
	pair := AgentKey{Sector: "Defense", Product: "Fiber"}
	g := NewGateway("anchor", []AgentKey{pair})
	if err := g.Write(pair, 1); err != nil {
		t.Fatalf("first Write: %v", err)
	}

	// WHEN it is written again in the same step
	err := g.Write(pair, 2)

	// THEN the second write fails
	if err == nil {
		t.Error("expected error on double write, got nil")
	}
}

func TestGateway_UndeclaredSlotFails(t *testing.T) {
	// GIVEN a gateway without the slot
	g := NewGateway("anchor", []AgentKey{{Sector: "Defense", Product: "Fiber"}})

	// WHEN an undeclared slot is written
	err := g.Write(AgentKey{Sector: "Energy", Product: "Fiber"}, 1)

	// THEN the write fails
	if err == nil {
		t.Error("expected error on undeclared slot, got nil")
	}
}

func TestGateway_MustReadBeforeWritePanics(t *testing.T) {
	// GIVEN an unwritten slot
	pair := AgentKey{Sector: "Defense", Product: "Fiber"}
	g := NewGateway("anchor", []AgentKey{pair})

	// WHEN MustRead runs before the scheduler wrote the slot
	defer func() {
		// THEN it panics: reading stale coupling state is a pipeline bug
		if recover() == nil {
			t.Error("expected panic on read before write")
		}
	}()
	g.MustRead(pair)
}

func TestGateway_ResetInvalidatesSlots(t *testing.T) {
	// GIVEN a written slot
	pair := AgentKey{Sector: "Defense", Product: "Fiber"}
	g := NewGateway("anchor", []AgentKey{pair})
	if err := g.Write(pair, 7); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// WHEN the gateway resets for the next step
	g.Reset()

	// THEN the slot is unwritten again and writable
	if _, ok := g.Read(pair); ok {
		t.Error("Read after Reset: slot still valid")
	}
	if err := g.Write(pair, 8); err != nil {
		t.Errorf("Write after Reset: %v", err)
	}
}

func TestAgentKey_String(t *testing.T) {
	// GIVEN the three key shapes
	cases := []struct {
		key  AgentKey
		want string
	}{
		{AgentKey{Sector: "Defense", Product: "Fiber"}, "Defense/Fiber"},
		{AgentKey{Sector: "Defense"}, "Defense"},
		{AgentKey{Product: "Fiber"}, "Fiber"},
	}
	for _, c := range cases {
		if got := c.key.String(); got != c.want {
			t.Errorf("String(%#v): got %q, want %q", c.key, got, c.want)
		}
	}
}
