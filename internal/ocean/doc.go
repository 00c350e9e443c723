// Package ocean provides the shared primitives of the overturning model.
//
// The package defines the vertical grid and profile types exchanged between
// the column models and the circulation solvers:
//
//   - [Grid]: strictly increasing depths, bottom first
//   - [Profile]: buoyancy (or transport) values aligned to a grid
//   - [Field]: a diffusivity, streamfunction or wind-stress input normalised
//     from a scalar, sampled array or function into one callable
//   - [MapToIsopycnal] / [MapToDepth]: remapping of transports between depth
//     and buoyancy coordinates
//
// It also holds the error taxonomy used across the module: configuration
// errors are returned eagerly by constructors, numerical divergence is
// returned by solver calls and is never retried.
//
// # Units
//
// Depth is in metres (negative below the surface), buoyancy in m s⁻²,
// diffusivity in m² s⁻¹ and transports reported by solvers in Sv (1e6 m³ s⁻¹).
package ocean
