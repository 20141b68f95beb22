package runner

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/splinempc/internal/dynamo"
	"github.com/san-kum/splinempc/internal/integrators"
	"github.com/san-kum/splinempc/internal/metrics"
	"github.com/san-kum/splinempc/internal/models"
	"github.com/san-kum/splinempc/internal/planner"
)

func newPendulumRunner(t *testing.T) (*Runner, *models.Pendulum) {
	t.Helper()

	m := models.NewPendulum()
	task := planner.Task{
		Goal:          dynamo.State{0, 0},
		StateWeights:  []float64{10, 0.1},
		ControlWeight: 0.01,
	}
	cfg := planner.DefaultConfig()
	cfg.Horizon = 40
	cfg.Candidates = 6
	cfg.Iterations = 2
	cfg.Seed = 7

	pl, err := planner.New(m, task, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return New(m, integrators.NewRK4(), pl), m
}

func TestRunValidatesConfig(t *testing.T) {
	r, _ := newPendulumRunner(t)
	if _, err := r.Run(context.Background(), dynamo.State{0.3, 0}, Config{Dt: 0, Duration: 1, ReplanEvery: 5}); err == nil {
		t.Error("expected error for zero dt")
	}
	if _, err := r.Run(context.Background(), dynamo.State{0.3, 0}, Config{Dt: 0.02, Duration: 1, ReplanEvery: 0}); err == nil {
		t.Error("expected error for zero replan interval")
	}
}

func TestRunCollectsTrajectory(t *testing.T) {
	r, m := newPendulumRunner(t)
	r.AddMetric(metrics.NewControlEffort())
	r.AddMetric(metrics.NewSaturation(m.ControlRange()))

	res, err := r.Run(context.Background(), dynamo.State{0.3, 0}, Config{Dt: 0.02, Duration: 1, ReplanEvery: 5})
	if err != nil {
		t.Fatal(err)
	}

	if res.Steps != 50 {
		t.Errorf("steps = %d, want 50", res.Steps)
	}
	if len(res.States) != res.Steps+1 || len(res.Controls) != res.Steps {
		t.Errorf("trajectory lengths inconsistent: %d states, %d controls",
			len(res.States), len(res.Controls))
	}
	if len(res.PlanCost) != 10 {
		t.Errorf("expected 10 replans, got %d", len(res.PlanCost))
	}
	if _, ok := res.Metrics["control_effort"]; !ok {
		t.Error("control effort metric missing from result")
	}

	sat := res.Metrics["saturation"]
	if sat < 0 || sat > 1 {
		t.Errorf("saturation fraction out of [0,1]: %f", sat)
	}
}

func TestRunControlsStayInRange(t *testing.T) {
	r, m := newPendulumRunner(t)
	res, err := r.Run(context.Background(), dynamo.State{0.8, 0}, Config{Dt: 0.02, Duration: 1, ReplanEvery: 5})
	if err != nil {
		t.Fatal(err)
	}

	lim := m.ControlRange()[0]
	for i, u := range res.Controls {
		if u[0] < lim.Lo || u[0] > lim.Hi {
			t.Fatalf("control %d = %f outside [%f, %f]", i, u[0], lim.Lo, lim.Hi)
		}
	}
}

func TestRunRegulatesSmallAngle(t *testing.T) {
	r, _ := newPendulumRunner(t)
	res, err := r.Run(context.Background(), dynamo.State{0.3, 0}, Config{Dt: 0.02, Duration: 4, ReplanEvery: 5})
	if err != nil {
		t.Fatal(err)
	}

	final := res.States[len(res.States)-1]
	if math.Abs(final[0]) > 0.25 {
		t.Errorf("pendulum angle did not shrink: start 0.3, end %f", final[0])
	}
}

func TestRunHonorsContext(t *testing.T) {
	r, _ := newPendulumRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Run(ctx, dynamo.State{0.3, 0}, Config{Dt: 0.02, Duration: 1, ReplanEvery: 5}); err == nil {
		t.Error("expected context error")
	}
}
