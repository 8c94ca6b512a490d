// Package sim provides the core of the field-evolution engine: named field
// buffers, their bounded histories, and the operator graph that recomputes
// them once per evaluation cycle.
//
// # Reading Guide
//
// Start with these three files to understand the engine kernel:
//   - store.go: buffer declaration, lookup by name or handle, history and host copies
//   - operator.go: the Operator contract (requested buffers in, supplied buffers out)
//   - graph.go: registration rules, dependency resolution and the evaluation loop
//
// # Architecture
//
// The sim package defines the data model and interfaces; implementations live
// in sub-packages:
//   - sim/spectral/: regular periodic grids, FFT transforms, spectral derivatives
//   - sim/operators/: concrete operators built from configuration
//   - sim/integrate/: time integrators that drive a Graph
//   - sim/trace/: per-operator and per-step execution traces
//
// Sub-packages register their implementations via init() functions into the
// operator factory table in sim/operators, keyed by configuration type name.
//
// # Key Interfaces
//
// The extension points are small interfaces:
//   - Operator: compute supplied buffers from requested ones
//   - Device: own buffer storage and produce host-resident copies
//   - Tensor: type-erased view of real (float64) and reciprocal (complex128) arrays
//
// A Store and its Graph are single-threaded. Parallelism lives inside
// individual transforms (see sim/spectral WithWorkers), never between
// operators.
package sim
