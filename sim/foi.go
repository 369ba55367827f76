package sim

import (
	"gonum.org/v1/gonum/mat"
)

// Transmission holds the between-household transmission matrices, one per
// infectious compartment. Entry [i][j] is the rate at which class j
// prevalence infects a susceptible of class i.
type Transmission struct {
	Prodromal  *mat.Dense // φ·diag(σ)·K_ext
	Detected   *mat.Dense // diag(σ)·K_ext
	Undetected *mat.Dense // diag(σ)·K_ext·diag(τ)
}

// NewTransmission derives the transmission matrices from validated parameters.
func NewTransmission(p *Params) *Transmission {
	k := p.NumClasses()
	sus := mat.NewDiagDense(k, append([]float64(nil), p.Susceptibility...))
	tau := mat.NewDiagDense(k, append([]float64(nil), p.AsymptomaticInfectiousness...))
	ext := contactMatrix(p.ExternalContacts)

	det := mat.NewDense(k, k, nil)
	det.Mul(sus, ext)
	undet := mat.NewDense(k, k, nil)
	undet.Mul(det, tau)
	pro := mat.NewDense(k, k, nil)
	pro.Scale(p.ProdromalInfectiousness, det)
	return &Transmission{Prodromal: pro, Detected: det, Undetected: undet}
}

func (tr *Transmission) byCompartment(c Compartment) *mat.Dense {
	switch c {
	case Prodromal:
		return tr.Prodromal
	case Detected:
		return tr.Detected
	case Undetected:
		return tr.Undetected
	}
	panic("sim: no transmission matrix for compartment " + c.String())
}

// ForceOfInfection holds, per infectious compartment, a states × classes
// matrix: entry [s][c] is the rate at which households in state s acquire a
// class c infection from outside.
type ForceOfInfection struct {
	Prodromal  *mat.Dense
	Detected   *mat.Dense
	Undetected *mat.Dense
}

func (f *ForceOfInfection) byCompartment(c Compartment) *mat.Dense {
	switch c {
	case Prodromal:
		return f.Prodromal
	case Detected:
		return f.Detected
	}
	return f.Undetected
}

// Prevalence returns, per class, the expected number of members in
// compartment c divided by the expected number of members, under h.
// Classes absent from every household with mass get zero.
func (pop *Population) Prevalence(h []float64, c Compartment) *mat.VecDense {
	hv := mat.NewVecDense(len(h), h)
	var den mat.VecDense
	den.MulVec(pop.members.T(), hv)
	prev := mat.NewVecDense(pop.numClasses, nil)
	prev.MulVec(pop.occupancy[c].T(), hv)
	for k := 0; k < pop.numClasses; k++ {
		if d := den.AtVec(k); d > 0 {
			prev.SetVec(k, prev.AtVec(k)/d)
		} else {
			prev.SetVec(k, 0)
		}
	}
	return prev
}

// ForceOfInfection computes the external infection rates of every state
// under the household-state distribution h. h is read, never modified.
func (pop *Population) ForceOfInfection(h []float64, tr *Transmission) *ForceOfInfection {
	out := &ForceOfInfection{}
	for _, c := range infectious {
		var rate mat.VecDense
		rate.MulVec(tr.byCompartment(c), pop.Prevalence(h, c))

		foi := mat.NewDense(pop.size, pop.numClasses, nil)
		foi.Apply(func(_, k int, s float64) float64 {
			return s * rate.AtVec(k)
		}, pop.occupancy[Susceptible])

		switch c {
		case Prodromal:
			out.Prodromal = foi
		case Detected:
			out.Detected = foi
		case Undetected:
			out.Undetected = foi
		}
	}
	return out
}
