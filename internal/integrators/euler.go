package integrators

import "github.com/san-kum/splinempc/internal/dynamo"

// Euler is a forward-Euler stepper, mostly useful for cheap rollouts where
// the planner resamples faster than integration error accumulates.
type Euler struct {
	deriv dynamo.State
}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dst dynamo.State, dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) {
	n := len(x)
	if len(e.deriv) != n {
		e.deriv = make(dynamo.State, n)
	}

	dyn.Derive(e.deriv, x, u, t)
	for i := 0; i < n; i++ {
		dst[i] = x[i] + dt*e.deriv[i]
	}
}

// New returns the integrator registered under name, defaulting to RK4.
func New(name string) dynamo.Integrator {
	switch name {
	case "euler":
		return NewEuler()
	default:
		return NewRK4()
	}
}
