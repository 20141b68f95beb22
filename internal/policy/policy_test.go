package policy

import (
	"math"
	"testing"

	"github.com/san-kum/splinempc/internal/dynamo"
)

type testModel struct {
	nu      int
	ranges  []dynamo.Range
	options map[string]float64
}

func (m *testModel) Derive(dst dynamo.State, x dynamo.State, u dynamo.Control, t float64) {
	for i := range dst {
		dst[i] = 0
	}
}

func (m *testModel) StateDim() int                { return 2 }
func (m *testModel) ControlDim() int              { return m.nu }
func (m *testModel) ControlRange() []dynamo.Range { return m.ranges }

func (m *testModel) Option(name string) (float64, bool) {
	v, ok := m.options[name]
	return v, ok
}

func newTestModel() *testModel {
	return &testModel{
		nu:     2,
		ranges: []dynamo.Range{{Lo: -1, Hi: 1}, {Lo: -10, Hi: 10}},
	}
}

func newPolicy(m *testModel, maxHorizon int) *Policy {
	p := &Policy{}
	p.Allocate(m, 2, maxHorizon)
	return p
}

func TestAllocateDefaults(t *testing.T) {
	m := newTestModel()
	p := newPolicy(m, 8)

	if p.NumParameters != 16 {
		t.Errorf("NumParameters = %d, want 16", p.NumParameters)
	}
	if p.NumSplinePoints != 8 {
		t.Errorf("default spline points should fill capacity, got %d", p.NumSplinePoints)
	}
	if p.Representation != Linear {
		t.Errorf("default representation should be linear, got %v", p.Representation)
	}
}

func TestAllocateReadsModelOptions(t *testing.T) {
	m := newTestModel()
	m.options = map[string]float64{
		OptionSplinePoints:   3,
		OptionRepresentation: float64(Smooth),
	}
	p := newPolicy(m, 8)

	if p.NumSplinePoints != 3 {
		t.Errorf("spline points = %d, want 3", p.NumSplinePoints)
	}
	if p.Representation != Smooth {
		t.Errorf("representation = %v, want smooth", p.Representation)
	}
}

func TestResetThenActionIsZero(t *testing.T) {
	m := newTestModel()
	for _, rep := range []Representation{Hold, Linear, Smooth} {
		p := newPolicy(m, 6)
		p.Representation = rep
		for i := range p.Parameters {
			p.Parameters[i] = 5
		}

		p.NumSplinePoints = 4
		p.Reset(4)

		action := make(dynamo.Control, 2)
		for _, q := range []float64{-1, 0, 0.5, 2} {
			p.Action(action, nil, q)
			if action[0] != 0 || action[1] != 0 {
				t.Errorf("%v: action after reset at t=%.1f = %v, want zero", rep, q, action)
			}
		}
	}
}

func TestSingleKnotHoldsForAllRepresentations(t *testing.T) {
	m := newTestModel()
	for _, rep := range []Representation{Hold, Linear, Smooth} {
		p := newPolicy(m, 4)
		p.Reset(4)
		p.Representation = rep
		p.NumSplinePoints = 1
		p.Times[0] = 1.0
		p.Parameters[0] = 0.5
		p.Parameters[1] = -3

		action := make(dynamo.Control, 2)
		for _, q := range []float64{-5, 1, 100} {
			p.Action(action, nil, q)
			if action[0] != 0.5 || action[1] != -3 {
				t.Errorf("%v: single knot at t=%.0f gave %v", rep, q, action)
			}
		}
	}
}

func TestLinearAction(t *testing.T) {
	m := newTestModel()
	p := newPolicy(m, 4)
	p.Reset(4)
	p.Representation = Linear
	p.NumSplinePoints = 2
	p.Times[0], p.Times[1] = 0, 1
	// knot 0: (0, -4), knot 1: (0.5, 4)
	p.Parameters[0], p.Parameters[1] = 0, -4
	p.Parameters[2], p.Parameters[3] = 0.5, 4

	action := make(dynamo.Control, 2)

	p.Action(action, nil, 0.5)
	if action[0] != 0.25 || action[1] != 0 {
		t.Errorf("midpoint = %v, want [0.25 0]", action)
	}

	p.Action(action, nil, 0)
	if action[0] != 0 || action[1] != -4 {
		t.Errorf("t=0 = %v, want first knot", action)
	}

	p.Action(action, nil, 1)
	if action[0] != 0.5 || action[1] != 4 {
		t.Errorf("t=1 = %v, want second knot", action)
	}
}

func TestSaturatingLookup(t *testing.T) {
	m := newTestModel()
	p := newPolicy(m, 4)
	p.Reset(4)
	p.NumSplinePoints = 3
	p.Times[0], p.Times[1], p.Times[2] = 1, 2, 3
	p.Parameters[0], p.Parameters[2], p.Parameters[4] = 0.1, 0.2, 0.3

	before := make(dynamo.Control, 2)
	first := make(dynamo.Control, 2)
	p.Action(before, nil, -10)
	p.Action(first, nil, 1)
	if before[0] != first[0] || before[1] != first[1] {
		t.Errorf("t before range %v != t at first knot %v", before, first)
	}

	after := make(dynamo.Control, 2)
	last := make(dynamo.Control, 2)
	p.Action(after, nil, 50)
	p.Action(last, nil, 3)
	if after[0] != last[0] || after[1] != last[1] {
		t.Errorf("t after range %v != t at last knot %v", after, last)
	}
}

func TestActionAlwaysClamped(t *testing.T) {
	m := newTestModel()
	p := newPolicy(m, 4)
	p.Reset(4)
	p.Representation = Smooth
	p.NumSplinePoints = 4
	for i := 0; i < 4; i++ {
		p.Times[i] = float64(i)
		p.Parameters[2*i] = math.Pow(-40, float64(i%2+1))
		p.Parameters[2*i+1] = 1e6
	}

	action := make(dynamo.Control, 2)
	for q := -1.0; q < 4.5; q += 0.05 {
		p.Action(action, nil, q)
		if action[0] < -1 || action[0] > 1 {
			t.Fatalf("dim 0 out of range at t=%.2f: %f", q, action[0])
		}
		if action[1] < -10 || action[1] > 10 {
			t.Fatalf("dim 1 out of range at t=%.2f: %f", q, action[1])
		}
	}
}

func TestSmoothActionContinuity(t *testing.T) {
	m := newTestModel()
	p := newPolicy(m, 6)
	p.Reset(6)
	p.Representation = Smooth
	p.NumSplinePoints = 5
	vals := []float64{0, 0.8, -0.6, 0.4, 0}
	for i := 0; i < 5; i++ {
		p.Times[i] = float64(i)
		p.Parameters[2*i] = vals[i]
	}

	left := make(dynamo.Control, 2)
	right := make(dynamo.Control, 2)
	for _, knot := range []float64{1, 2, 3} {
		p.Action(left, nil, knot-1e-9)
		p.Action(right, nil, knot+1e-9)
		if math.Abs(left[0]-right[0]) > 1e-6 {
			t.Errorf("discontinuity at t=%.0f: %f vs %f", knot, left[0], right[0])
		}
	}
}

func TestCopyFromIndependence(t *testing.T) {
	m := newTestModel()
	src := newPolicy(m, 4)
	dst := newPolicy(m, 4)

	src.Reset(4)
	src.Representation = Smooth
	src.NumSplinePoints = 2
	src.Times[0], src.Times[1] = 0, 1
	src.Parameters[0] = 0.5
	src.Improvement[0] = 0.25
	src.ParameterUpdate[0] = -0.5
	src.Trajectory.States[0] = 3

	dst.Reset(4)
	dst.CopyFrom(src, 4)

	if dst.NumSplinePoints != 2 || dst.Representation != Smooth {
		t.Fatal("scalar bookkeeping not copied")
	}
	if dst.Parameters[0] != 0.5 || dst.Improvement[0] != 0.25 ||
		dst.ParameterUpdate[0] != -0.5 || dst.Trajectory.States[0] != 3 {
		t.Fatal("buffers not copied")
	}

	action := make(dynamo.Control, 2)
	dst.Action(action, nil, 0)
	want := action[0]

	src.Parameters[0] = -0.9
	src.Trajectory.States[0] = -7
	dst.Action(action, nil, 0)
	if action[0] != want {
		t.Error("mutating source changed destination evaluation")
	}
	if dst.Trajectory.States[0] != 3 {
		t.Error("trajectory shares storage with source")
	}

	dst.Parameters[0] = 0.1
	if src.Parameters[0] != -0.9 {
		t.Error("mutating destination changed source")
	}
}

func TestCopyParametersFromIsolation(t *testing.T) {
	m := newTestModel()
	p := newPolicy(m, 4)
	p.Reset(4)
	p.Representation = Smooth
	p.NumSplinePoints = 2
	p.Improvement[0] = 0.7

	params := []float64{1, 2, 3, 4}
	times := []float64{0.5, 1.5}
	p.CopyParametersFrom(params, times)

	if p.Parameters[0] != 1 || p.Parameters[3] != 4 {
		t.Error("parameters not copied")
	}
	if p.Times[0] != 0.5 || p.Times[1] != 1.5 {
		t.Error("times not copied")
	}
	if p.Representation != Smooth {
		t.Error("representation must be untouched")
	}
	if p.NumParameters != 8 {
		t.Error("num parameters must be untouched")
	}
	if p.Improvement[0] != 0.7 {
		t.Error("improvement buffer must be untouched")
	}

	params[0] = 99
	if p.Parameters[0] != 1 {
		t.Error("parameter copy aliases the source slice")
	}
}

func TestCopyParametersFromShortInputPanics(t *testing.T) {
	m := newTestModel()
	p := newPolicy(m, 4)
	p.Reset(4)
	p.NumSplinePoints = 3

	defer func() {
		if recover() == nil {
			t.Error("expected panic for short source slices")
		}
	}()
	p.CopyParametersFrom([]float64{1, 2}, []float64{0})
}

func TestResetOverCapacityPanics(t *testing.T) {
	m := newTestModel()
	p := newPolicy(m, 4)

	defer func() {
		if recover() == nil {
			t.Error("expected panic for horizon over capacity")
		}
	}()
	p.Reset(5)
}
