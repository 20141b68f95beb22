// Package policy implements the fixed-capacity spline control policy at the
// center of the planner: a bounded set of time-tagged knot vectors plus an
// interpolation discipline that reconstructs a clamped action at any query
// time.
//
// The policy is built for repeated use inside a hot optimization loop:
//
//   - [Policy.Allocate] sizes every buffer once, to actionDim x maxHorizon
//   - [Policy.Reset], [Policy.CopyFrom], and [Policy.Action] never allocate
//   - [Policy.Action] is read-only and safe to call from multiple goroutines
//     as long as nobody mutates the instance concurrently
//
// Precondition violations (horizon over capacity, short source slices) panic
// rather than truncate: inside a real-time loop a masked contract violation
// silently corrupts the optimization.
package policy
