package models

import (
	"math"

	"github.com/san-kum/splinempc/internal/dynamo"
)

// Pendulum is a torque-limited pendulum. State: [theta, omega], zero angle at
// the upright target used by the swing-up task.
type Pendulum struct {
	Mass      float64
	Length    float64
	Damping   float64
	Gravity   float64
	MaxTorque float64

	options map[string]float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{
		Mass:      1.0,
		Length:    1.0,
		Damping:   0.1,
		Gravity:   9.81,
		MaxTorque: 2.5,
		options: map[string]float64{
			"policy_spline_points": 10,
		},
	}
}

func (p *Pendulum) StateDim() int   { return 2 }
func (p *Pendulum) ControlDim() int { return 1 }

func (p *Pendulum) ControlRange() []dynamo.Range {
	return []dynamo.Range{{Lo: -p.MaxTorque, Hi: p.MaxTorque}}
}

func (p *Pendulum) Option(name string) (float64, bool) {
	v, ok := p.options[name]
	return v, ok
}

func (p *Pendulum) SetOption(name string, value float64) {
	p.options[name] = value
}

func (p *Pendulum) Derive(dst dynamo.State, x dynamo.State, u dynamo.Control, t float64) {
	theta := x[0]
	omega := x[1]

	torque := 0.0
	if len(u) > 0 {
		torque = u[0]
	}

	dst[0] = omega
	dst[1] = (-p.Damping*omega - p.Mass*p.Gravity*p.Length*math.Sin(theta) + torque) /
		(p.Mass * p.Length * p.Length)
}
