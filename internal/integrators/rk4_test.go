package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/splinempc/internal/dynamo"
)

type oscillator struct{}

func (s *oscillator) Derive(dst dynamo.State, x dynamo.State, u dynamo.Control, t float64) {
	dst[0] = x[1]
	dst[1] = -x[0]
}

func (s *oscillator) StateDim() int   { return 2 }
func (s *oscillator) ControlDim() int { return 0 }

func TestRK4Accuracy(t *testing.T) {
	dyn := &oscillator{}
	integ := NewRK4()

	x := dynamo.State{1.0, 0.0}
	next := make(dynamo.State, 2)
	u := dynamo.Control{}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		integ.Step(next, dyn, x, u, float64(i)*dt, dt)
		copy(x, next)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestEulerFirstOrder(t *testing.T) {
	dyn := &oscillator{}
	integ := NewEuler()

	x := dynamo.State{1.0, 0.0}
	next := make(dynamo.State, 2)

	integ.Step(next, dyn, x, dynamo.Control{}, 0, 0.1)
	if next[0] != 1.0 {
		t.Errorf("euler position after one step = %f, want 1.0", next[0])
	}
	if next[1] != -0.1 {
		t.Errorf("euler velocity after one step = %f, want -0.1", next[1])
	}
}

func TestNewByName(t *testing.T) {
	if _, ok := New("euler").(*Euler); !ok {
		t.Error("expected euler integrator")
	}
	if _, ok := New("rk4").(*RK4); !ok {
		t.Error("expected rk4 integrator")
	}
	if _, ok := New("").(*RK4); !ok {
		t.Error("default integrator should be rk4")
	}
}
