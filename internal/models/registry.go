package models

import "github.com/san-kum/splinempc/internal/dynamo"

// New returns the model registered under name, or nil when unknown.
func New(name string) dynamo.Actuated {
	switch name {
	case "pendulum":
		return NewPendulum()
	case "cartpole":
		return NewCartPole()
	default:
		return nil
	}
}

// Names lists the registered models.
func Names() []string {
	return []string{"pendulum", "cartpole"}
}
