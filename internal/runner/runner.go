package runner

import (
	"context"
	"fmt"

	"github.com/san-kum/splinempc/internal/dynamo"
	"github.com/san-kum/splinempc/internal/planner"
)

// Result collects one closed-loop run.
type Result struct {
	States   []dynamo.State
	Controls []dynamo.Control
	Times    []float64
	Metrics  map[string]float64
	PlanCost []float64 // planner cost at each replan
	Steps    int
}

// Config for a closed-loop run.
type Config struct {
	Dt          float64
	Duration    float64
	ReplanEvery int // control steps between Plan calls
}

// Runner drives a model with a receding-horizon planner: replan every few
// steps, evaluate the nominal policy in between.
type Runner struct {
	model      dynamo.Actuated
	integrator dynamo.Integrator
	planner    *planner.Planner
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
}

func New(model dynamo.Actuated, integrator dynamo.Integrator, pl *planner.Planner) *Runner {
	return &Runner{
		model:      model,
		integrator: integrator,
		planner:    pl,
	}
}

func (r *Runner) AddMetric(m dynamo.Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o dynamo.Observer) { r.observers = append(r.observers, o) }

func (r *Runner) Run(ctx context.Context, x0 dynamo.State, cfg Config) (*Result, error) {
	if cfg.Dt <= 0 || cfg.Duration <= 0 {
		return nil, fmt.Errorf("runner: dt and duration must be positive")
	}
	if cfg.ReplanEvery <= 0 {
		return nil, fmt.Errorf("runner: replan interval must be positive")
	}

	steps := int(cfg.Duration / cfg.Dt)
	result := &Result{
		States:   make([]dynamo.State, 0, steps+1),
		Controls: make([]dynamo.Control, 0, steps),
		Times:    make([]float64, 0, steps+1),
		Metrics:  make(map[string]float64),
		PlanCost: make([]float64, 0, steps/cfg.ReplanEvery+1),
	}

	for _, m := range r.metrics {
		m.Reset()
	}

	x := x0.Clone()
	next := make(dynamo.State, len(x0))
	u := make(dynamo.Control, r.model.ControlDim())
	t := 0.0

	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if i%cfg.ReplanEvery == 0 {
			cost, err := r.planner.Plan(ctx, x, t)
			if err != nil {
				return result, err
			}
			result.PlanCost = append(result.PlanCost, cost)
		}

		r.planner.Action(u, x, t)

		for _, m := range r.metrics {
			m.Observe(x, u, t)
		}
		for _, obs := range r.observers {
			obs.OnStep(x, u, t)
		}

		r.integrator.Step(next, r.model, x, u, t, cfg.Dt)

		if !next.IsValid() {
			return result, fmt.Errorf("runner: invalid state (NaN/Inf) at t=%.4f", t)
		}

		copy(x, next)
		t += cfg.Dt
		result.Steps++

		result.States = append(result.States, x.Clone())
		result.Controls = append(result.Controls, u.Clone())
		result.Times = append(result.Times, t)
	}

	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}
