package config

// Presets are named starting points per model, patched over DefaultConfig.
var presets = map[string]map[string]func(*Config){
	"pendulum": {
		"small": func(c *Config) {
			c.InitState = []float64{0.2, 0}
		},
		"swingup": func(c *Config) {
			c.InitState = []float64{3.1, 0}
			c.Duration = 10
			c.Planner.Horizon = 120
			c.Planner.Candidates = 16
			c.Planner.NoiseScale = 0.3
		},
	},
	"cartpole": {
		"balance": func(c *Config) {
			c.Model = "cartpole"
			c.InitState = []float64{0, 0, 0.15, 0}
			c.Task.Goal = []float64{0, 0, 0, 0}
			c.Task.StateWeights = []float64{1, 0.1, 10, 0.1}
		},
	},
}

// GetPreset returns the preset configuration or nil when either the model or
// the preset name is unknown.
func GetPreset(model, name string) *Config {
	group, ok := presets[model]
	if !ok {
		return nil
	}
	patch, ok := group[name]
	if !ok {
		return nil
	}

	cfg := DefaultConfig()
	cfg.Model = model
	patch(cfg)
	return cfg
}

// ListPresets returns the preset names for a model, nil when none exist.
func ListPresets(model string) []string {
	group, ok := presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(group))
	for name := range group {
		names = append(names, name)
	}
	return names
}
