// Package sim provides the hybrid simulation engine for the growth model:
// a fixed-step continuous stock/flow evaluator coupled to a discrete anchor
// agent population and a direct-client cohort ledger.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - engine.go: stocks, converters, per-step memoized evaluation, integration
//   - agent.go: anchor agent lifecycle (Potential → PendingActivation → Active)
//   - simulator.go: the per-step pipeline and KPI capture ordering
//
// # Architecture
//
// The sim package is the core; collaborators live in sub-packages:
//   - sim/scenario/: YAML scenario loading and pair/sector parameter resolution
//   - sim/report/: CSV export and end-of-run summary statistics
//
// A run is strictly sequential: Build constructs the full element network
// from a validated ParameterBundle, then Step executes one tick of the
// pipeline (create agents → act → aggregate → write gateways → evaluate →
// capture KPIs → integrate). Gateway slots are valid for exactly one step
// and are written exactly once per step; KPI capture happens before stock
// integration so every snapshot reflects the state that was true at its
// own step, never the final state of the run.
package sim
