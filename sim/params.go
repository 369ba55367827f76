package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Params holds the epidemiological rates of the model.
// Per-class slices are indexed by age class and must all have the same length.
type Params struct {
	Susceptibility             []float64   `yaml:"susceptibility"`              // σ
	DetectionProbability       []float64   `yaml:"detection_probability"`       // det
	ProdromalInfectiousness    float64     `yaml:"prodromal_infectiousness"`    // φ
	AsymptomaticInfectiousness []float64   `yaml:"asymptomatic_infectiousness"` // τ
	IncubationRate             float64     `yaml:"incubation_rate"`             // α, E → P
	SymptomOnsetRate           float64     `yaml:"symptom_onset_rate"`          // ω, P → D/U
	RecoveryRate               float64     `yaml:"recovery_rate"`               // γ, D/U → R
	HomeContacts               [][]float64 `yaml:"home_contacts"`
	ExternalContacts           [][]float64 `yaml:"external_contacts"`
	// CoarseBounds are class boundaries for reporting buckets: bucket b covers
	// classes [CoarseBounds[b], CoarseBounds[b+1]).
	CoarseBounds []int `yaml:"coarse_bounds,omitempty"`
}

// NumClasses returns the number of age classes.
func (p *Params) NumClasses() int { return len(p.Susceptibility) }

// Validate checks that all fields are consistent and finite.
func (p *Params) Validate() error {
	k := p.NumClasses()
	if k == 0 {
		return fmt.Errorf("%w: susceptibility must list at least one age class", ErrInvalidParams)
	}
	vectors := []struct {
		name string
		v    []float64
		prob bool
	}{
		{"susceptibility", p.Susceptibility, false},
		{"detection_probability", p.DetectionProbability, true},
		{"asymptomatic_infectiousness", p.AsymptomaticInfectiousness, false},
	}
	for _, vec := range vectors {
		if len(vec.v) != k {
			return fmt.Errorf("%w: %s has %d entries, want %d", ErrInvalidParams, vec.name, len(vec.v), k)
		}
		for i, x := range vec.v {
			if err := validateNonNegative(fmt.Sprintf("%s[%d]", vec.name, i), x); err != nil {
				return err
			}
			if vec.prob && x > 1 {
				return fmt.Errorf("%w: %s[%d] must be a probability, got %f", ErrInvalidParams, vec.name, i, x)
			}
		}
	}
	scalars := []struct {
		name string
		v    float64
	}{
		{"prodromal_infectiousness", p.ProdromalInfectiousness},
		{"incubation_rate", p.IncubationRate},
		{"symptom_onset_rate", p.SymptomOnsetRate},
		{"recovery_rate", p.RecoveryRate},
	}
	for _, s := range scalars {
		if err := validateNonNegative(s.name, s.v); err != nil {
			return err
		}
	}
	if err := validateContacts("home_contacts", p.HomeContacts, k); err != nil {
		return err
	}
	if err := validateContacts("external_contacts", p.ExternalContacts, k); err != nil {
		return err
	}
	for i, b := range p.CoarseBounds {
		if b < 0 || b >= k {
			return fmt.Errorf("%w: coarse_bounds[%d]=%d outside [0, %d)", ErrInvalidParams, i, b, k)
		}
		if i > 0 && b <= p.CoarseBounds[i-1] {
			return fmt.Errorf("%w: coarse_bounds must be strictly increasing", ErrInvalidParams)
		}
	}
	return nil
}

func validateNonNegative(name string, x float64) error {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return fmt.Errorf("%w: %s must be a finite number, got %f", ErrInvalidParams, name, x)
	}
	if x < 0 {
		return fmt.Errorf("%w: %s must be non-negative, got %f", ErrInvalidParams, name, x)
	}
	return nil
}

func validateContacts(name string, m [][]float64, k int) error {
	if len(m) != k {
		return fmt.Errorf("%w: %s has %d rows, want %d", ErrInvalidParams, name, len(m), k)
	}
	for i, row := range m {
		if len(row) != k {
			return fmt.Errorf("%w: %s row %d has %d columns, want %d", ErrInvalidParams, name, i, len(row), k)
		}
		for j, x := range row {
			if err := validateNonNegative(fmt.Sprintf("%s[%d][%d]", name, i, j), x); err != nil {
				return err
			}
		}
	}
	return nil
}

// contactMatrix converts a validated contact table into a dense matrix.
func contactMatrix(rows [][]float64) *mat.Dense {
	k := len(rows)
	m := mat.NewDense(k, k, nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}
	return m
}
