package policy

import "fmt"

// Representation selects the interpolation discipline used to reconstruct a
// continuous action from the knot set.
type Representation int

const (
	Hold Representation = iota
	Linear
	Smooth
)

func (r Representation) String() string {
	switch r {
	case Hold:
		return "hold"
	case Linear:
		return "linear"
	case Smooth:
		return "smooth"
	default:
		return fmt.Sprintf("representation(%d)", int(r))
	}
}

// ParseRepresentation maps a config/CLI name to a Representation.
func ParseRepresentation(name string) (Representation, error) {
	switch name {
	case "hold", "zero":
		return Hold, nil
	case "linear", "":
		return Linear, nil
	case "smooth", "cubic":
		return Smooth, nil
	default:
		return Linear, fmt.Errorf("unknown representation %q", name)
	}
}
