package policy

import (
	"fmt"

	"github.com/san-kum/splinempc/internal/dynamo"
	"github.com/san-kum/splinempc/internal/spline"
	"github.com/san-kum/splinempc/internal/trajectory"
)

// Model options consulted by Allocate. A model that does not define them
// gets the package defaults.
const (
	OptionSplinePoints   = "policy_spline_points"
	OptionRepresentation = "policy_representation"
)

// DefaultMaxHorizon bounds the knot capacity when the caller does not
// configure one.
const DefaultMaxHorizon = 512

// Policy compresses a control signal over a planning horizon into time-tagged
// knot vectors and reconstructs a continuous action at any query time. All
// buffers are sized once by Allocate; no method allocates afterwards, so a
// Policy can live inside a real-time optimization loop.
//
// Action is read-only and safe for concurrent use; Reset, CopyFrom, and
// CopyParametersFrom require exclusive access to the instance.
type Policy struct {
	model dynamo.Actuated

	// Trajectory is the optimizer's reference rollout, reset and copied in
	// lockstep with the knot buffers.
	Trajectory trajectory.Trajectory

	// Improvement is optimizer scratch for accumulated update directions.
	// This package only stores and zeroes it.
	Improvement []float64

	Parameters      []float64
	ParameterUpdate []float64
	Times           []float64

	NumParameters   int
	NumSplinePoints int
	Representation  Representation

	actionDim  int
	maxHorizon int
}

// Allocate sizes every buffer to actionDim x maxHorizon and reads the spline
// point count and representation off the model's options. Safe to call again
// for the same model; never called on the hot path.
func (p *Policy) Allocate(model dynamo.Actuated, residualDim, maxHorizon int) {
	p.model = model
	p.actionDim = model.ControlDim()
	p.maxHorizon = maxHorizon

	p.Trajectory.Initialize(model.StateDim(), p.actionDim, residualDim, maxHorizon)
	p.Trajectory.Allocate(maxHorizon)

	p.Improvement = make([]float64, p.actionDim*maxHorizon)
	p.Parameters = make([]float64, p.actionDim*maxHorizon)
	p.ParameterUpdate = make([]float64, p.actionDim*maxHorizon)
	p.Times = make([]float64, maxHorizon)

	p.NumParameters = p.actionDim * maxHorizon

	points := int(dynamo.OptionOrDefault(model, OptionSplinePoints, float64(maxHorizon)))
	if points > maxHorizon {
		points = maxHorizon
	}
	p.NumSplinePoints = points

	p.Representation = Representation(int(dynamo.OptionOrDefault(
		model, OptionRepresentation, float64(Linear))))
}

// Reset zeroes the first horizon knots of every buffer and resets the owned
// trajectory. Content past the horizon is left stale; every other operation
// ignores it.
func (p *Policy) Reset(horizon int) {
	if horizon > p.maxHorizon {
		panic(fmt.Sprintf("policy: reset horizon %d exceeds capacity %d", horizon, p.maxHorizon))
	}

	p.Trajectory.Reset(horizon)

	zero(p.Improvement[:horizon*p.actionDim])
	zero(p.Parameters[:horizon*p.actionDim])
	zero(p.ParameterUpdate[:horizon*p.actionDim])
	zero(p.Times[:horizon])
}

// Action evaluates the policy at time t, writing an actionDim-length control
// into action and clamping each component to the model's actuator range. The
// state argument keeps the controller contract; interpolation ignores it.
// A collapsed time bracket always resolves to hold, whatever the configured
// representation.
func (p *Policy) Action(action dynamo.Control, state dynamo.State, t float64) {
	i0, i1 := spline.FindInterval(p.Times, t, p.NumSplinePoints)

	switch {
	case i0 == i1 || p.Representation == Hold:
		spline.Hold(action, t, p.Times, p.Parameters, p.actionDim, p.NumSplinePoints)
	case p.Representation == Linear:
		spline.Linear(action, t, p.Times, p.Parameters, p.actionDim, p.NumSplinePoints)
	case p.Representation == Smooth:
		spline.Smooth(action, t, p.Times, p.Parameters, p.actionDim, p.NumSplinePoints)
	}

	spline.Clamp(action, p.model.ControlRange(), p.actionDim)
}

// Compute makes Policy a dynamo.Controller.
func (p *Policy) Compute(u dynamo.Control, x dynamo.State, t float64) {
	p.Action(u, x, t)
}

// CopyFrom deep-copies src into p: trajectory, the first horizon knots of the
// improvement buffer, the source's active parameters and update buffer, the
// active times, and the scalar bookkeeping. The two policies share no backing
// storage afterwards.
func (p *Policy) CopyFrom(src *Policy, horizon int) {
	if src.NumParameters > len(p.Parameters) || src.NumSplinePoints > len(p.Times) ||
		horizon*p.actionDim > len(p.Improvement) {
		panic(fmt.Sprintf("policy: copy extents (%d params, %d knots) exceed capacity %d",
			src.NumParameters, src.NumSplinePoints, len(p.Parameters)))
	}

	p.Trajectory.CopyFrom(&src.Trajectory)

	copy(p.Improvement[:horizon*p.actionDim], src.Improvement)
	copy(p.Parameters[:src.NumParameters], src.Parameters)
	copy(p.ParameterUpdate[:src.NumParameters], src.ParameterUpdate)
	copy(p.Times[:src.NumSplinePoints], src.Times)

	p.NumSplinePoints = src.NumSplinePoints
	p.NumParameters = src.NumParameters
	p.Representation = src.Representation
}

// CopyParametersFrom overwrites the active knot parameters and times from
// externally supplied slices, using p's own active count. Representation,
// NumParameters, the improvement buffer, and the trajectory are untouched.
func (p *Policy) CopyParametersFrom(srcParameters, srcTimes []float64) {
	n := p.NumSplinePoints
	if len(srcParameters) < n*p.actionDim || len(srcTimes) < n {
		panic(fmt.Sprintf("policy: parameter copy needs %d params and %d times, got %d and %d",
			n*p.actionDim, n, len(srcParameters), len(srcTimes)))
	}

	copy(p.Parameters[:n*p.actionDim], srcParameters)
	copy(p.Times[:n], srcTimes)
}

// ActionDim returns the number of actuators the policy drives.
func (p *Policy) ActionDim() int { return p.actionDim }

// MaxHorizon returns the knot capacity fixed at allocation.
func (p *Policy) MaxHorizon() int { return p.maxHorizon }

func zero(s []float64) {
	for i := range s {
		s[i] = 0
	}
}
