// Package sim provides the household-structured epidemic model for household-sim.
//
// # Reading Guide
//
// Start with these files to understand the model kernel:
//   - enumerate.go: occupancy states of one household composition, in mixed-radix order
//   - index.go: reverse lookup from an occupancy vector to its state-table row
//   - household.go: the within-household CTMC generator (infection, incubation,
//     detection split, recovery)
//   - population.go: global layout of all compositions and the block-diagonal generator
//   - foi.go, imports.go, rhs.go: the mean-field coupling evaluated at every ODE step
//   - initial.go: the seeded starting distribution H0
//   - simulator.go: integration and projections of the solution
//
// # Architecture
//
// The sim package holds the model; supporting code lives in sub-packages:
//   - sim/sparse/: CSR matrices used for generators and import matrices
//   - sim/ode/: adaptive Dormand–Prince integrator
//   - sim/inputs/: composition tables, distributions and parameter files
//   - sim/cache/: persisted household builds keyed by compositions and rates
//   - sim/results/: SQL persistence of finished runs
//   - sim/trace/: integrator step trace
//
// Household generators are immutable once built and are shared by every household of
// the same composition. Only the import matrices change during a run; they are rebuilt
// on every right-hand-side evaluation from the current distribution H.
package sim
