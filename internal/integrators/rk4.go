package integrators

import "github.com/san-kum/splinempc/internal/dynamo"

// RK4 is a classical fourth-order Runge-Kutta stepper. Stage buffers are
// reused across calls, so a single instance must not be shared between
// rollout workers.
type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	stage          dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensure(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.stage = make(dynamo.State, n)
	}
}

func (r *RK4) Step(dst dynamo.State, dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) {
	n := len(x)
	r.ensure(n)

	dyn.Derive(r.k1, x, u, t)

	for i := 0; i < n; i++ {
		r.stage[i] = x[i] + dt*0.5*r.k1[i]
	}
	dyn.Derive(r.k2, r.stage, u, t+dt*0.5)

	for i := 0; i < n; i++ {
		r.stage[i] = x[i] + dt*0.5*r.k2[i]
	}
	dyn.Derive(r.k3, r.stage, u, t+dt*0.5)

	for i := 0; i < n; i++ {
		r.stage[i] = x[i] + dt*r.k3[i]
	}
	dyn.Derive(r.k4, r.stage, u, t+dt)

	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		dst[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
}
