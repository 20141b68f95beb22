package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/splinempc/internal/config"
	"github.com/san-kum/splinempc/internal/control"
	"github.com/san-kum/splinempc/internal/dynamo"
	"github.com/san-kum/splinempc/internal/integrators"
	"github.com/san-kum/splinempc/internal/metrics"
	"github.com/san-kum/splinempc/internal/models"
	"github.com/san-kum/splinempc/internal/planner"
	"github.com/san-kum/splinempc/internal/runner"
	"github.com/san-kum/splinempc/internal/storage"
	"github.com/san-kum/splinempc/internal/tui"
)

var (
	dataDir        string
	configFile     string
	preset         string
	dt             float64
	duration       float64
	seed           int64
	integrator     string
	horizon        int
	candidates     int
	iterations     int
	splinePoints   int
	noiseScale     float64
	representation string
	replanEvery    int
	stateAxis      int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "splinempc",
		Short: "spline-policy predictive control lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".splinempc", "data directory")

	planCmd := &cobra.Command{
		Use:   "plan [model]",
		Short: "run a closed-loop planning session",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlan,
	}
	addRunFlags(planCmd)

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "watch the planner control the model live",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&stateAxis, "axis", 0, "state dimension to plot")

	benchCmd := &cobra.Command{
		Use:   "bench [model]",
		Short: "benchmark planning throughput",
		Args:  cobra.ExactArgs(1),
		RunE:  runBench,
	}
	addRunFlags(benchCmd)

	compareCmd := &cobra.Command{
		Use:   "compare [model]",
		Short: "compare the spline policy against an LQR baseline",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompare,
	}
	addRunFlags(compareCmd)

	rootCmd.AddCommand(planCmd, liveCmd, listCmd, plotCmd, benchCmd, compareCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator (euler, rk4)")
	cmd.Flags().IntVar(&horizon, "horizon", config.DefaultHorizon, "planning horizon (steps)")
	cmd.Flags().IntVar(&candidates, "candidates", config.DefaultCandidates, "sampled candidates per iteration")
	cmd.Flags().IntVar(&iterations, "iterations", config.DefaultIterations, "resample rounds per plan")
	cmd.Flags().IntVar(&splinePoints, "spline-points", 0, "knot count (0: model default)")
	cmd.Flags().Float64Var(&noiseScale, "noise", config.DefaultNoise, "knot noise scale")
	cmd.Flags().StringVar(&representation, "representation", "linear", "interpolation (hold, linear, smooth)")
	cmd.Flags().IntVar(&replanEvery, "replan-every", config.DefaultReplan, "control steps between replans")
}

// resolveConfig layers preset, config file, and changed flags over defaults.
func resolveConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q for model %q (have: %s)",
				preset, model, strings.Join(config.ListPresets(model), ", "))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	cfg.Model = model
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("seed") || cfg.Seed == 0 {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	if cmd.Flags().Changed("horizon") {
		cfg.Planner.Horizon = horizon
	}
	if cmd.Flags().Changed("candidates") {
		cfg.Planner.Candidates = candidates
	}
	if cmd.Flags().Changed("iterations") {
		cfg.Planner.Iterations = iterations
	}
	if cmd.Flags().Changed("spline-points") {
		cfg.Planner.SplinePoints = splinePoints
	}
	if cmd.Flags().Changed("noise") {
		cfg.Planner.NoiseScale = noiseScale
	}
	if cmd.Flags().Changed("representation") {
		cfg.Planner.Representation = representation
	}
	if cmd.Flags().Changed("replan-every") {
		cfg.Planner.ReplanEvery = replanEvery
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildRunner(cfg *config.Config) (*runner.Runner, dynamo.Actuated, error) {
	model := models.New(cfg.Model)
	if model == nil {
		return nil, nil, fmt.Errorf("unknown model %q (have: %s)", cfg.Model, strings.Join(models.Names(), ", "))
	}

	pcfg, err := cfg.ToPlanner()
	if err != nil {
		return nil, nil, err
	}
	pl, err := planner.New(model, cfg.ToTask(), pcfg)
	if err != nil {
		return nil, nil, err
	}

	r := runner.New(model, integrators.New(cfg.Integrator), pl)
	r.AddMetric(metrics.NewControlEffort())
	r.AddMetric(metrics.NewSaturation(model.ControlRange()))
	r.AddMetric(metrics.NewTrackingCost(cfg.Task.Goal, cfg.Task.StateWeights, cfg.Task.ControlWeight, cfg.Dt))
	return r, model, nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	r, _, err := buildRunner(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	result, err := r.Run(ctx, cfg.InitState, runner.Config{
		Dt:          cfg.Dt,
		Duration:    cfg.Duration,
		ReplanEvery: cfg.Planner.ReplanEvery,
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}
	runID, err := store.Save(storage.RunMetadata{
		Model:          cfg.Model,
		Seed:           cfg.Seed,
		Dt:             cfg.Dt,
		Duration:       cfg.Duration,
		Integrator:     cfg.Integrator,
		Representation: cfg.Planner.Representation,
		SplinePoints:   cfg.Planner.SplinePoints,
	}, result)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %d steps in %s\n\n", runID, result.Steps, elapsed.Round(time.Millisecond))

	series := make([]float64, len(result.States))
	for i, s := range result.States {
		series[i] = s[0]
	}
	fmt.Println(asciigraph.Plot(series, asciigraph.Height(10), asciigraph.Caption("state[0]")))
	fmt.Println()

	controls := make([]float64, len(result.Controls))
	for i, u := range result.Controls {
		controls[i] = u[0]
	}
	fmt.Println(asciigraph.Plot(controls, asciigraph.Height(8), asciigraph.Caption("control[0]")))
	fmt.Println()

	for name, value := range result.Metrics {
		fmt.Printf("%-16s %.4f\n", name, value)
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	return tui.Run(cfg)
}

func listRuns(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	runs, err := store.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tREPR\tKNOTS\tTRACKING COST")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4f\n",
			run.ID, run.Model, run.Representation, run.SplinePoints, run.Metrics["tracking_cost"])
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	meta, states, controls, err := store.Load(args[0])
	if err != nil {
		return err
	}

	if len(states) == 0 {
		return fmt.Errorf("run %s has no states", args[0])
	}
	if stateAxis < 0 || stateAxis >= len(states[0]) {
		return fmt.Errorf("axis %d out of range for %d state dimensions", stateAxis, len(states[0]))
	}

	series := make([]float64, len(states))
	for i, s := range states {
		series[i] = s[stateAxis]
	}
	fmt.Printf("%s (%s)\n\n", meta.ID, meta.Model)
	fmt.Println(asciigraph.Plot(series, asciigraph.Height(12),
		asciigraph.Caption(fmt.Sprintf("state[%d]", stateAxis))))

	if len(controls) > 0 {
		us := make([]float64, len(controls))
		for i, u := range controls {
			us[i] = u[0]
		}
		fmt.Println()
		fmt.Println(asciigraph.Plot(us, asciigraph.Height(8), asciigraph.Caption("control[0]")))
	}
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	model := models.New(cfg.Model)
	if model == nil {
		return fmt.Errorf("unknown model %q", cfg.Model)
	}
	pcfg, err := cfg.ToPlanner()
	if err != nil {
		return err
	}
	pl, err := planner.New(model, cfg.ToTask(), pcfg)
	if err != nil {
		return err
	}

	const rounds = 50
	x0 := dynamo.State(cfg.InitState)

	start := time.Now()
	for i := 0; i < rounds; i++ {
		if _, err := pl.Plan(context.Background(), x0, 0); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	rollouts := rounds * cfg.Planner.Iterations * cfg.Planner.Candidates
	fmt.Printf("%d plans (%d rollouts of %d steps) in %s\n",
		rounds, rollouts, cfg.Planner.Horizon, elapsed.Round(time.Millisecond))
	fmt.Printf("%.1f plans/sec, %.0f rollouts/sec\n",
		float64(rounds)/elapsed.Seconds(), float64(rollouts)/elapsed.Seconds())
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r, model, err := buildRunner(cfg)
	if err != nil {
		return err
	}
	planned, err := r.Run(ctx, cfg.InitState, runner.Config{
		Dt:          cfg.Dt,
		Duration:    cfg.Duration,
		ReplanEvery: cfg.Planner.ReplanEvery,
	})
	if err != nil {
		return err
	}

	lqr, err := control.NewLQR(model, cfg.Task.Goal, cfg.Task.StateWeights, cfg.Task.ControlWeight, cfg.Dt)
	if err != nil {
		return err
	}
	lqrCost, err := controllerCost(ctx, model, lqr, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("spline policy (%s, %d knots): tracking cost %.4f\n",
		cfg.Planner.Representation, cfg.Planner.SplinePoints, planned.Metrics["tracking_cost"])
	fmt.Printf("lqr baseline: tracking cost %.4f\n", lqrCost)
	return nil
}

// controllerCost rolls a plain feedback controller forward and scores it with
// the same tracking cost the planner optimizes.
func controllerCost(ctx context.Context, model dynamo.Actuated, ctrl dynamo.Controller, cfg *config.Config) (float64, error) {
	integ := integrators.New(cfg.Integrator)
	tc := metrics.NewTrackingCost(cfg.Task.Goal, cfg.Task.StateWeights, cfg.Task.ControlWeight, cfg.Dt)

	x := dynamo.State(cfg.InitState).Clone()
	next := make(dynamo.State, model.StateDim())
	u := make(dynamo.Control, model.ControlDim())

	steps := int(cfg.Duration / cfg.Dt)
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return tc.Value(), ctx.Err()
		default:
		}

		t := float64(i) * cfg.Dt
		ctrl.Compute(u, x, t)
		tc.Observe(x, u, t)
		integ.Step(next, model, x, u, t, cfg.Dt)
		if !next.IsValid() {
			return tc.Value(), fmt.Errorf("baseline diverged at t=%.3f", t)
		}
		copy(x, next)
	}
	return tc.Value(), nil
}
