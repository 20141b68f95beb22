package metrics

import (
	"math"

	"github.com/san-kum/splinempc/internal/dynamo"
)

type ControlEffort struct {
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{}
}

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(x dynamo.State, u dynamo.Control, t float64) {
	for _, v := range u {
		c.sum += math.Abs(v)
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// Saturation reports the fraction of observed steps where any actuator sat
// on its limit. High values usually mean the noise scale or cost weights
// push the policy into the clamp.
type Saturation struct {
	ranges    []dynamo.Range
	saturated int
	samples   int
}

func NewSaturation(ranges []dynamo.Range) *Saturation {
	return &Saturation{ranges: ranges}
}

func (s *Saturation) Name() string { return "saturation" }

func (s *Saturation) Observe(x dynamo.State, u dynamo.Control, t float64) {
	s.samples++
	for d, v := range u {
		if d >= len(s.ranges) {
			break
		}
		if v <= s.ranges[d].Lo || v >= s.ranges[d].Hi {
			s.saturated++
			return
		}
	}
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.saturated) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.saturated = 0
	s.samples = 0
}

// TrackingCost accumulates the same quadratic cost the planner optimizes, so
// a closed-loop run can be scored against the plan.
type TrackingCost struct {
	goal          dynamo.State
	stateWeights  []float64
	controlWeight float64
	dt            float64
	total         float64
}

func NewTrackingCost(goal dynamo.State, stateWeights []float64, controlWeight, dt float64) *TrackingCost {
	return &TrackingCost{
		goal:          goal.Clone(),
		stateWeights:  stateWeights,
		controlWeight: controlWeight,
		dt:            dt,
	}
}

func (tc *TrackingCost) Name() string { return "tracking_cost" }

func (tc *TrackingCost) Observe(x dynamo.State, u dynamo.Control, t float64) {
	step := 0.0
	for d := range x {
		r := x[d] - tc.goal[d]
		step += tc.stateWeights[d] * r * r
	}
	for _, v := range u {
		step += tc.controlWeight * v * v
	}
	tc.total += step * tc.dt
}

func (tc *TrackingCost) Value() float64 { return tc.total }

func (tc *TrackingCost) Reset() { tc.total = 0 }
