package control

import (
	"math"
	"testing"

	"github.com/san-kum/splinempc/internal/dynamo"
	"github.com/san-kum/splinempc/internal/integrators"
	"github.com/san-kum/splinempc/internal/models"
)

func TestLinearizePendulum(t *testing.T) {
	m := models.NewPendulum()
	m.Damping = 0

	A, B := Linearize(m, dynamo.State{0, 0}, dynamo.Control{0})

	// d(theta)/dt = omega
	if math.Abs(A.At(0, 1)-1) > 1e-4 {
		t.Errorf("A[0][1] = %f, want 1", A.At(0, 1))
	}
	// d(omega)/dt ~= -(g/l) theta near the bottom
	if math.Abs(A.At(1, 0)+m.Gravity/m.Length) > 1e-3 {
		t.Errorf("A[1][0] = %f, want %f", A.At(1, 0), -m.Gravity/m.Length)
	}
	// torque enters through 1/(m l^2)
	if math.Abs(B.At(1, 0)-1/(m.Mass*m.Length*m.Length)) > 1e-3 {
		t.Errorf("B[1][0] = %f, want %f", B.At(1, 0), 1/(m.Mass*m.Length*m.Length))
	}
}

func TestNewLQRValidates(t *testing.T) {
	m := models.NewPendulum()

	if _, err := NewLQR(m, dynamo.State{0}, []float64{1}, 1, 0.01); err == nil {
		t.Error("expected error for wrong goal dimension")
	}
	if _, err := NewLQR(m, dynamo.State{0, 0}, []float64{1, 1}, 0, 0.01); err == nil {
		t.Error("expected error for zero control weight")
	}
}

func TestLQRZeroAtGoal(t *testing.T) {
	m := models.NewPendulum()
	lqr, err := NewLQR(m, dynamo.State{0, 0}, []float64{10, 1}, 0.1, 0.01)
	if err != nil {
		t.Fatal(err)
	}

	if r, c := lqr.Gain().Dims(); r != 1 || c != 2 {
		t.Errorf("gain dims = (%d,%d), want (1,2)", r, c)
	}

	u := make(dynamo.Control, 1)
	lqr.Compute(u, dynamo.State{0, 0}, 0)
	if u[0] != 0 {
		t.Errorf("expected zero control at goal, got %f", u[0])
	}

	lqr.Compute(u, dynamo.State{0.3, 0}, 0)
	if u[0] == 0 {
		t.Error("expected non-zero control away from goal")
	}
}

func TestLQRStabilizesPendulum(t *testing.T) {
	m := models.NewPendulum()
	lqr, err := NewLQR(m, dynamo.State{0, 0}, []float64{10, 1}, 0.1, 0.01)
	if err != nil {
		t.Fatal(err)
	}

	integ := integrators.NewRK4()
	x := dynamo.State{0.4, 0}
	next := make(dynamo.State, 2)
	u := make(dynamo.Control, 1)

	for i := 0; i < 1500; i++ {
		lqr.Compute(u, x, 0)
		integ.Step(next, m, x, u, float64(i)*0.01, 0.01)
		copy(x, next)
	}

	if math.Abs(x[0]) > 0.02 || math.Abs(x[1]) > 0.05 {
		t.Errorf("pendulum not regulated to rest: theta=%f omega=%f", x[0], x[1])
	}
}

func TestLQRRespectsTorqueLimit(t *testing.T) {
	m := models.NewPendulum()
	lqr, err := NewLQR(m, dynamo.State{0, 0}, []float64{100, 10}, 0.01, 0.01)
	if err != nil {
		t.Fatal(err)
	}

	u := make(dynamo.Control, 1)
	lqr.Compute(u, dynamo.State{3, 5}, 0)
	if u[0] < -m.MaxTorque || u[0] > m.MaxTorque {
		t.Errorf("control %f outside torque limit %f", u[0], m.MaxTorque)
	}
}
