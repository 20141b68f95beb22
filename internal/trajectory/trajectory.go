package trajectory

import "fmt"

// Trajectory is a fixed-capacity rollout snapshot: states, actions, times,
// residuals, and per-step costs over one planning horizon. Buffers are sized
// once by Allocate and never grow; Reset touches only the active prefix.
type Trajectory struct {
	StateDim    int
	ActionDim   int
	ResidualDim int

	Horizon    int
	maxHorizon int

	States    []float64
	Actions   []float64
	Times     []float64
	Residuals []float64
	Costs     []float64
	TotalCost float64
}

// Initialize records the per-step dimensions. Capacity is established by
// Allocate; the two are split so a worker can re-dimension a trajectory for a
// new model without reallocating.
func (tr *Trajectory) Initialize(stateDim, actionDim, residualDim, horizon int) {
	tr.StateDim = stateDim
	tr.ActionDim = actionDim
	tr.ResidualDim = residualDim
	tr.Horizon = horizon
}

// Allocate sizes every buffer to maxHorizon steps.
func (tr *Trajectory) Allocate(maxHorizon int) {
	tr.maxHorizon = maxHorizon
	tr.States = make([]float64, tr.StateDim*maxHorizon)
	tr.Actions = make([]float64, tr.ActionDim*maxHorizon)
	tr.Times = make([]float64, maxHorizon)
	tr.Residuals = make([]float64, tr.ResidualDim*maxHorizon)
	tr.Costs = make([]float64, maxHorizon)
}

// Reset zeroes the first horizon steps of every buffer and sets the active
// horizon. Entries past the horizon keep whatever stale content they had.
func (tr *Trajectory) Reset(horizon int) {
	if horizon > tr.maxHorizon {
		panic(fmt.Sprintf("trajectory: reset horizon %d exceeds capacity %d", horizon, tr.maxHorizon))
	}

	zero(tr.States[:horizon*tr.StateDim])
	zero(tr.Actions[:horizon*tr.ActionDim])
	zero(tr.Times[:horizon])
	zero(tr.Residuals[:horizon*tr.ResidualDim])
	zero(tr.Costs[:horizon])
	tr.TotalCost = 0
	tr.Horizon = horizon
}

// CopyFrom deep-copies src. The destination must have been allocated with at
// least the source's capacity.
func (tr *Trajectory) CopyFrom(src *Trajectory) {
	if tr.maxHorizon < src.maxHorizon {
		panic(fmt.Sprintf("trajectory: copy capacity %d into %d", src.maxHorizon, tr.maxHorizon))
	}

	tr.StateDim = src.StateDim
	tr.ActionDim = src.ActionDim
	tr.ResidualDim = src.ResidualDim
	tr.Horizon = src.Horizon
	tr.TotalCost = src.TotalCost

	copy(tr.States, src.States)
	copy(tr.Actions, src.Actions)
	copy(tr.Times, src.Times)
	copy(tr.Residuals, src.Residuals)
	copy(tr.Costs, src.Costs)
}

// State returns the state vector at step i as a slice view.
func (tr *Trajectory) State(i int) []float64 {
	return tr.States[i*tr.StateDim : (i+1)*tr.StateDim]
}

// Action returns the action vector at step i as a slice view.
func (tr *Trajectory) Action(i int) []float64 {
	return tr.Actions[i*tr.ActionDim : (i+1)*tr.ActionDim]
}

func zero(s []float64) {
	for i := range s {
		s[i] = 0
	}
}
