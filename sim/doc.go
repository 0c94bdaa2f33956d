// Package sim provides the storage and routing engine for aegis.
//
// # Reading Guide
//
// Start with these files to understand the mass-balance kernel:
//   - store.go: bounded accumulator with hard capacity and a zero floor
//   - allocator.go: named, prioritized outflow requests and rationing
//   - table.go: monotonic lookup tables (elevation, volume, area)
//   - reservoir.go: a Store combined with geometry, spillway hydraulics and
//     an Allocator
//
// # Architecture
//
// The sim package holds the single-owner, single-writer state types; the
// rest of the simulator lives in sub-packages:
//   - sim/watershed/: routing graph of catchments and junctions
//   - sim/weather/: simulation calendar and daily weather sources
//   - sim/scenario/: the driver stepping weather, watershed and reservoir
//   - sim/trace/: per-step water-balance records
//
// Nothing in this package is safe for concurrent mutation. Parallel
// realizations must each build their own Store, Reservoir and Watershed.
package sim
