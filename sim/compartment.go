package sim

import "fmt"

// Compartment is an individual's disease state.
// Individuals progress S → E → P → {D, U} → R and never move backwards.
type Compartment int

const (
	Susceptible Compartment = iota
	Exposed
	Prodromal
	Detected
	Undetected
	Recovered
)

// NumCompartments is the number of occupancy columns per present age class.
const NumCompartments = 6

// infectious lists the compartments that transmit, in the order used for
// transmission matrices and import matrices.
var infectious = [3]Compartment{Prodromal, Detected, Undetected}

func (c Compartment) String() string {
	switch c {
	case Susceptible:
		return "S"
	case Exposed:
		return "E"
	case Prodromal:
		return "P"
	case Detected:
		return "D"
	case Undetected:
		return "U"
	case Recovered:
		return "R"
	}
	return fmt.Sprintf("Compartment(%d)", int(c))
}

// ParseCompartment maps a one-letter name back to its Compartment.
func ParseCompartment(name string) (Compartment, error) {
	for c := Susceptible; c <= Recovered; c++ {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown compartment %q; valid: S, E, P, D, U, R", name)
}
