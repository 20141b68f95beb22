// Package dynamo defines the shared primitives for simulated actuated systems.
//
// The package holds the interfaces the planner, policies, and integrators
// agree on:
//
//   - [State], [Control]: vector views of system state and actuator input
//   - [System]: ODE right-hand side (dX/dt = f(X, u, t))
//   - [Actuated]: a System with per-actuator control ranges and named options
//   - [Integrator]: fixed-step integration into a caller-owned buffer
//   - [Controller]: anything that fills a control vector at a query time
//
// All hot-path signatures write into destination buffers supplied by the
// caller. Nothing in this package allocates after setup; that property is
// what lets the planner run rollouts inside a real-time loop.
package dynamo
