package dynamo

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

type Control []float64

func (c Control) Clone() Control {
	out := make(Control, len(c))
	copy(out, c)
	return out
}

// Range is one actuator's admissible control interval.
type Range struct {
	Lo float64
	Hi float64
}

type System interface {
	Derive(dst State, x State, u Control, t float64)
	StateDim() int
	ControlDim() int
}

// Actuated describes a system whose controls are bounded and which carries
// named numeric options (spline point counts, representation overrides, ...)
// read once at allocation time.
type Actuated interface {
	System
	ControlRange() []Range
	Option(name string) (float64, bool)
}

// OptionOrDefault reads a named option off the model, falling back to def
// when the model does not define it.
func OptionOrDefault(m Actuated, name string, def float64) float64 {
	if v, ok := m.Option(name); ok {
		return v
	}
	return def
}

type Integrator interface {
	Step(dst State, dyn System, x State, u Control, t, dt float64)
}

type Controller interface {
	Compute(u Control, x State, t float64)
}

type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}
