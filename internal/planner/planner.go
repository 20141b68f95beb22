package planner

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/san-kum/splinempc/internal/dynamo"
	"github.com/san-kum/splinempc/internal/integrators"
	"github.com/san-kum/splinempc/internal/policy"
	"github.com/san-kum/splinempc/internal/spline"
)

// Task is a quadratic tracking objective: weighted squared distance to a goal
// state plus a control-effort penalty.
type Task struct {
	Goal          dynamo.State
	StateWeights  []float64
	ControlWeight float64
}

// StepCost fills res with the weighted state residual and returns the cost of
// one rollout step.
func (tk *Task) StepCost(res []float64, x dynamo.State, u dynamo.Control) float64 {
	cost := 0.0
	for d := range x {
		r := x[d] - tk.Goal[d]
		res[d] = tk.StateWeights[d] * r
		cost += tk.StateWeights[d] * r * r
	}
	for _, v := range u {
		cost += tk.ControlWeight * v * v
	}
	return cost
}

// Config controls one planner instance. Zero values fall back to Default.
type Config struct {
	Horizon        int     // rollout steps per plan
	Dt             float64 // rollout timestep
	Candidates     int     // sampled policies per iteration, nominal included
	Iterations     int     // resample rounds per Plan call
	NoiseScale     float64 // knot noise as a fraction of the actuator range
	Seed           int64
	SplinePoints   int // 0: model option / policy default
	Representation policy.Representation
	Integrator     string
}

func DefaultConfig() Config {
	return Config{
		Horizon:        80,
		Dt:             0.02,
		Candidates:     8,
		Iterations:     4,
		NoiseScale:     0.15,
		Representation: policy.Linear,
		Integrator:     "rk4",
	}
}

// Planner is a predictive-sampling trajectory optimizer. It owns one nominal
// policy and one candidate policy per worker; each iteration resamples knot
// parameters around the nominal, rolls every candidate out in parallel, and
// propagates the cheapest rollout back into the nominal via CopyFrom.
type Planner struct {
	model dynamo.Actuated
	task  Task
	cfg   Config

	nominal     *policy.Policy
	candidates  []*policy.Policy
	integrators []dynamo.Integrator
	rngs        []*rand.Rand
	costs       []float64

	actionDim int
}

// New allocates a planner for the model and task. All policy and rollout
// buffers are sized here; Plan allocates nothing.
func New(model dynamo.Actuated, task Task, cfg Config) (*Planner, error) {
	if cfg.Horizon <= 0 || cfg.Dt <= 0 {
		return nil, fmt.Errorf("planner: horizon and dt must be positive")
	}
	if cfg.Candidates < 1 || cfg.Iterations < 1 {
		return nil, fmt.Errorf("planner: need at least one candidate and one iteration")
	}
	if len(task.Goal) != model.StateDim() || len(task.StateWeights) != model.StateDim() {
		return nil, fmt.Errorf("planner: task dimensions do not match model state dim %d", model.StateDim())
	}

	if cfg.SplinePoints > 0 {
		if opt, ok := model.(interface{ SetOption(string, float64) }); ok {
			opt.SetOption(policy.OptionSplinePoints, float64(cfg.SplinePoints))
		}
	}

	p := &Planner{
		model:     model,
		task:      task,
		cfg:       cfg,
		costs:     make([]float64, cfg.Candidates),
		actionDim: model.ControlDim(),
	}

	maxHorizon := cfg.Horizon + 1

	p.nominal = &policy.Policy{}
	p.nominal.Allocate(model, model.StateDim(), maxHorizon)
	p.nominal.Representation = cfg.Representation
	p.nominal.Reset(maxHorizon)

	p.candidates = make([]*policy.Policy, cfg.Candidates)
	p.integrators = make([]dynamo.Integrator, cfg.Candidates)
	p.rngs = make([]*rand.Rand, cfg.Candidates)
	for i := range p.candidates {
		p.candidates[i] = &policy.Policy{}
		p.candidates[i].Allocate(model, model.StateDim(), maxHorizon)
		p.candidates[i].Reset(maxHorizon)
		p.integrators[i] = integrators.New(cfg.Integrator)
		p.rngs[i] = rand.New(rand.NewSource(cfg.Seed + int64(i)))
	}

	return p, nil
}

// Plan runs the configured number of resample rounds from state x0 at time
// t0 and returns the nominal rollout cost after the final round. Candidate 0
// always replays the unperturbed nominal, so the returned cost never exceeds
// the nominal's pre-plan cost.
func (p *Planner) Plan(ctx context.Context, x0 dynamo.State, t0 float64) (float64, error) {
	p.spaceKnots(t0)

	best := 0.0
	for iter := 0; iter < p.cfg.Iterations; iter++ {
		select {
		case <-ctx.Done():
			return best, ctx.Err()
		default:
		}

		p.resample(t0)
		p.rollout(x0, t0)

		winner := 0
		for i, c := range p.costs {
			if c < p.costs[winner] {
				winner = i
			}
		}
		best = p.costs[winner]

		p.accumulateImprovement(p.candidates[winner])
		p.nominal.CopyFrom(p.candidates[winner], p.cfg.Horizon)
	}

	return best, nil
}

// Action evaluates the nominal policy. Safe to call concurrently with other
// Action calls, but not with Plan.
func (p *Planner) Action(u dynamo.Control, x dynamo.State, t float64) {
	p.nominal.Action(u, x, t)
}

// Policy exposes the nominal policy for inspection and plotting.
func (p *Planner) Policy() *policy.Policy { return p.nominal }

// spaceKnots distributes the active knot times uniformly over the planning
// window starting at t0.
func (p *Planner) spaceKnots(t0 float64) {
	n := p.nominal.NumSplinePoints
	duration := float64(p.cfg.Horizon) * p.cfg.Dt
	for i := 0; i < n; i++ {
		if n > 1 {
			p.nominal.Times[i] = t0 + duration*float64(i)/float64(n-1)
		} else {
			p.nominal.Times[i] = t0
		}
	}
}

// resample refreshes every candidate from the nominal and perturbs all but
// candidate 0. The raw noise is kept in ParameterUpdate so the improvement
// pass can see what moved.
func (p *Planner) resample(t0 float64) {
	ranges := p.model.ControlRange()
	n := p.nominal.NumSplinePoints

	for ci, cand := range p.candidates {
		cand.CopyFrom(p.nominal, p.cfg.Horizon)
		if ci == 0 {
			continue
		}

		rng := p.rngs[ci]
		for k := 0; k < n; k++ {
			knot := cand.Parameters[k*p.actionDim : (k+1)*p.actionDim]
			for d := 0; d < p.actionDim; d++ {
				sigma := p.cfg.NoiseScale * (ranges[d].Hi - ranges[d].Lo)
				noise := rng.NormFloat64() * sigma
				cand.ParameterUpdate[k*p.actionDim+d] = noise
				knot[d] += noise
			}
			spline.Clamp(knot, ranges, p.actionDim)
		}
	}
}

// rollout simulates every candidate forward in parallel and records cost,
// states, and actions into the candidate's own trajectory.
func (p *Planner) rollout(x0 dynamo.State, t0 float64) {
	var wg sync.WaitGroup
	for ci := range p.candidates {
		wg.Add(1)
		go func(ci int) {
			defer wg.Done()
			p.costs[ci] = p.rolloutOne(p.candidates[ci], p.integrators[ci], x0, t0)
		}(ci)
	}
	wg.Wait()
}

func (p *Planner) rolloutOne(cand *policy.Policy, integ dynamo.Integrator, x0 dynamo.State, t0 float64) float64 {
	tr := &cand.Trajectory
	tr.Reset(p.cfg.Horizon + 1)

	copy(tr.State(0), x0)
	tr.Times[0] = t0

	total := 0.0
	for i := 0; i < p.cfg.Horizon; i++ {
		x := dynamo.State(tr.State(i))
		u := dynamo.Control(tr.Action(i))
		t := t0 + float64(i)*p.cfg.Dt

		cand.Action(u, x, t)

		res := tr.Residuals[i*tr.ResidualDim : (i+1)*tr.ResidualDim]
		c := p.task.StepCost(res, x, u) * p.cfg.Dt
		tr.Costs[i] = c
		total += c

		integ.Step(tr.State(i+1), p.model, x, u, t, p.cfg.Dt)
		tr.Times[i+1] = t + p.cfg.Dt
	}

	tr.TotalCost = total
	return total
}

const improvementDecay = 0.9

// accumulateImprovement folds the winner's offset from the current nominal
// into the winner's improvement buffer before CopyFrom carries it over.
func (p *Planner) accumulateImprovement(winner *policy.Policy) {
	n := p.nominal.NumSplinePoints * p.actionDim
	for i := 0; i < n; i++ {
		delta := winner.Parameters[i] - p.nominal.Parameters[i]
		winner.Improvement[i] = improvementDecay*p.nominal.Improvement[i] +
			(1-improvementDecay)*delta
	}
}
