package models

import (
	"math"

	"github.com/san-kum/splinempc/internal/dynamo"
)

// CartPole is the classic cart-and-pole balance system. State:
// [pos, vel, theta, omega] with theta measured from upright.
type CartPole struct {
	CartMass   float64
	PoleMass   float64
	PoleLength float64
	Gravity    float64
	MaxForce   float64

	options map[string]float64
}

func NewCartPole() *CartPole {
	return &CartPole{
		CartMass:   1.0,
		PoleMass:   0.1,
		PoleLength: 1.0,
		Gravity:    9.81,
		MaxForce:   10.0,
		options: map[string]float64{
			"policy_spline_points": 10,
		},
	}
}

func (c *CartPole) StateDim() int   { return 4 }
func (c *CartPole) ControlDim() int { return 1 }

func (c *CartPole) ControlRange() []dynamo.Range {
	return []dynamo.Range{{Lo: -c.MaxForce, Hi: c.MaxForce}}
}

func (c *CartPole) Option(name string) (float64, bool) {
	v, ok := c.options[name]
	return v, ok
}

func (c *CartPole) SetOption(name string, value float64) {
	c.options[name] = value
}

func (c *CartPole) Derive(dst dynamo.State, x dynamo.State, u dynamo.Control, t float64) {
	vel := x[1]
	theta := x[2]
	omega := x[3]

	force := 0.0
	if len(u) > 0 {
		force = u[0]
	}

	mc := c.CartMass
	mp := c.PoleMass
	l := c.PoleLength
	g := c.Gravity

	sint := math.Sin(theta)
	cost := math.Cos(theta)

	temp := (force + mp*l*omega*omega*sint) / (mc + mp)
	alpha := (g*sint - cost*temp) / (l * (4.0/3.0 - mp*cost*cost/(mc+mp)))
	acc := temp - mp*l*alpha*cost/(mc+mp)

	dst[0] = vel
	dst[1] = acc
	dst[2] = omega
	dst[3] = alpha
}
