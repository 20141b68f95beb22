package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/splinempc/internal/planner"
	"github.com/san-kum/splinempc/internal/policy"
)

const (
	DefaultDt         = 0.02
	DefaultDuration   = 6.0
	DefaultHorizon    = 80
	DefaultCandidates = 8
	DefaultIterations = 4
	DefaultNoise      = 0.15
	DefaultReplan     = 5
)

type Config struct {
	Model      string        `yaml:"model"`
	Integrator string        `yaml:"integrator"`
	Dt         float64       `yaml:"dt"`
	Duration   float64       `yaml:"duration"`
	Seed       int64         `yaml:"seed"`
	InitState  []float64     `yaml:"init_state"`
	Planner    PlannerConfig `yaml:"planner"`
	Task       TaskConfig    `yaml:"task"`
}

type PlannerConfig struct {
	Horizon        int     `yaml:"horizon"`
	Candidates     int     `yaml:"candidates"`
	Iterations     int     `yaml:"iterations"`
	SplinePoints   int     `yaml:"spline_points"`
	NoiseScale     float64 `yaml:"noise_scale"`
	Representation string  `yaml:"representation"`
	ReplanEvery    int     `yaml:"replan_every"`
}

type TaskConfig struct {
	Goal          []float64 `yaml:"goal"`
	StateWeights  []float64 `yaml:"state_weights"`
	ControlWeight float64   `yaml:"control_weight"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:      "pendulum",
		Integrator: "rk4",
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		InitState:  []float64{0.8, 0},
		Planner: PlannerConfig{
			Horizon:        DefaultHorizon,
			Candidates:     DefaultCandidates,
			Iterations:     DefaultIterations,
			NoiseScale:     DefaultNoise,
			Representation: "linear",
			ReplanEvery:    DefaultReplan,
		},
		Task: TaskConfig{
			Goal:          []float64{0, 0},
			StateWeights:  []float64{10, 0.1},
			ControlWeight: 0.01,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ToPlanner maps the yaml planner block onto a planner.Config.
func (c *Config) ToPlanner() (planner.Config, error) {
	rep, err := policy.ParseRepresentation(c.Planner.Representation)
	if err != nil {
		return planner.Config{}, err
	}

	return planner.Config{
		Horizon:        c.Planner.Horizon,
		Dt:             c.Dt,
		Candidates:     c.Planner.Candidates,
		Iterations:     c.Planner.Iterations,
		NoiseScale:     c.Planner.NoiseScale,
		Seed:           c.Seed,
		SplinePoints:   c.Planner.SplinePoints,
		Representation: rep,
		Integrator:     c.Integrator,
	}, nil
}

// ToTask maps the yaml task block onto a planner.Task.
func (c *Config) ToTask() planner.Task {
	return planner.Task{
		Goal:          c.Task.Goal,
		StateWeights:  c.Task.StateWeights,
		ControlWeight: c.Task.ControlWeight,
	}
}

func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", c.Duration)
	}
	if c.Planner.Horizon <= 0 {
		return fmt.Errorf("planner horizon must be positive, got %d", c.Planner.Horizon)
	}
	if c.Planner.ReplanEvery <= 0 {
		return fmt.Errorf("replan_every must be positive, got %d", c.Planner.ReplanEvery)
	}
	return nil
}
