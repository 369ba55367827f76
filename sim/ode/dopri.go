package ode

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Dormand–Prince 5(4) tableau.
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	// difference between the 5th and embedded 4th order weights
	dpE = [7]float64{71.0 / 57600, 0, -71.0 / 16695, 71.0 / 1920, -17253.0 / 339200, 22.0 / 525, -1.0 / 40}
)

const (
	safety    = 0.9
	minFactor = 0.2
	maxFactor = 10.0

	defaultRelTol = 1e-3
	defaultAbsTol = 1e-6
)

// DormandPrince is the explicit adaptive Runge-Kutta 5(4) pair with the
// first-same-as-last property. Errors are controlled in the RMS norm
// weighted by AbsoluteTolerance + RelativeTolerance·|y|.
type DormandPrince struct{}

var _ Integrator = DormandPrince{}

// Info describes the method.
func (DormandPrince) Info() IntegratorInfo {
	return IntegratorInfo{Name: "dopri5", Stages: 7, Order: 5}
}

// Integrate advances y from t to tEnd in place. On failure y holds the last
// accepted state and the returned Statistics report how far integration got.
func (dp DormandPrince) Integrate(t, tEnd float64, y []float64, cfg *Config) (Statistics, error) {
	stats := Statistics{CurrentTime: t}
	if cfg == nil || cfg.Fcn == nil {
		return stats, fmt.Errorf("%w: no right hand side", ErrBadConfig)
	}
	if tEnd < t || math.IsNaN(t) || math.IsNaN(tEnd) {
		return stats, fmt.Errorf("%w: end time %g before start %g", ErrBadConfig, tEnd, t)
	}
	rtol, atol := cfg.RelativeTolerance, cfg.AbsoluteTolerance
	if rtol <= 0 {
		rtol = defaultRelTol
	}
	if atol <= 0 {
		atol = defaultAbsTol
	}

	n := len(y)
	var k [7][]float64
	for i := range k {
		k[i] = make([]float64, n)
	}
	ynew := make([]float64, n)
	work := make([]float64, n)

	eval := func(t float64, y, dy []float64) {
		cfg.Fcn(t, y, dy)
		stats.EvaluationCount++
	}

	eval(t, y, k[0])
	if !allFinite(k[0]) {
		return stats, fmt.Errorf("%w: derivative at t=%g", ErrNonFinite, t)
	}
	if cfg.OnAccept != nil {
		cfg.OnAccept(t, y)
	}
	if t == tEnd {
		return stats, nil
	}

	h := cfg.InitialStepSize
	if h <= 0 {
		h = initialStep(eval, t, y, k[0], work, ynew, atol, rtol)
	}
	if cfg.MaxStepSize > 0 {
		h = math.Min(h, cfg.MaxStepSize)
	}

	attempts := 0
	rejectedLast := false
	for t < tEnd {
		if cfg.MaxStepCount > 0 && attempts >= cfg.MaxStepCount {
			return stats, fmt.Errorf("%w: %d steps attempted, reached t=%g of %g", ErrMaxStepsExceeded, attempts, t, tEnd)
		}
		minStep := cfg.MinStepSize
		if minStep <= 0 {
			minStep = 10 * (math.Nextafter(t, math.Inf(1)) - t)
		}
		if h < minStep {
			return stats, fmt.Errorf("%w: h=%g at t=%g", ErrStepSizeTooSmall, h, t)
		}
		last := false
		if t+h >= tEnd {
			h = tEnd - t
			last = true
		}
		attempts++

		errNorm := dp.step(eval, t, h, y, &k, ynew, work, atol, rtol)
		finite := !math.IsNaN(errNorm) && !math.IsInf(errNorm, 0)
		accepted := finite && errNorm <= 1
		if cfg.OnStep != nil {
			cfg.OnStep(t, h, errNorm, accepted)
		}
		if !accepted {
			stats.RejectedCount++
			factor := minFactor
			if finite {
				factor = math.Max(minFactor, safety*math.Pow(errNorm, -0.2))
			}
			h *= math.Min(1, factor)
			rejectedLast = true
			continue
		}
		if !allFinite(ynew) || !allFinite(k[6]) {
			return stats, fmt.Errorf("%w: accepted step at t=%g", ErrNonFinite, t+h)
		}

		if last {
			t = tEnd
		} else {
			t += h
		}
		copy(y, ynew)
		k[0], k[6] = k[6], k[0]
		stats.StepCount++
		stats.LastStepSize = h
		stats.CurrentTime = t
		if cfg.OnAccept != nil {
			cfg.OnAccept(t, y)
		}

		factor := maxFactor
		if errNorm > 0 {
			factor = math.Min(maxFactor, safety*math.Pow(errNorm, -0.2))
		}
		if rejectedLast {
			factor = math.Min(1, factor)
		}
		rejectedLast = false
		h *= factor
		if cfg.MaxStepSize > 0 {
			h = math.Min(h, cfg.MaxStepSize)
		}
		stats.NextStepSize = h
	}
	return stats, nil
}

// step computes stages 2..7 from k[0] = f(t, y), writes the 5th order
// solution into ynew and k[6] = f(t+h, ynew), and returns the scaled error norm.
func (DormandPrince) step(eval Function, t, h float64, y []float64, k *[7][]float64, ynew, work []float64, atol, rtol float64) float64 {
	for s := 1; s < 7; s++ {
		copy(work, y)
		for j := 0; j < s; j++ {
			if a := dpA[s][j]; a != 0 {
				floats.AddScaled(work, h*a, k[j])
			}
		}
		if s == 6 {
			copy(ynew, work)
		}
		eval(t+dpC[s]*h, work, k[s])
	}

	var sum float64
	for i := range y {
		var e float64
		for s := 0; s < 7; s++ {
			e += dpE[s] * k[s][i]
		}
		e *= h
		sc := atol + rtol*math.Max(math.Abs(y[i]), math.Abs(ynew[i]))
		sum += (e / sc) * (e / sc)
	}
	if len(y) == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(len(y)))
}

// initialStep follows Hairer, Nørsett & Wanner's starting step heuristic.
func initialStep(eval Function, t float64, y, f0, y1, f1 []float64, atol, rtol float64) float64 {
	if len(y) == 0 {
		return 1e-6
	}
	var d0, d1 float64
	for i := range y {
		sc := atol + rtol*math.Abs(y[i])
		d0 += (y[i] / sc) * (y[i] / sc)
		d1 += (f0[i] / sc) * (f0[i] / sc)
	}
	n := float64(len(y))
	d0, d1 = math.Sqrt(d0/n), math.Sqrt(d1/n)

	h0 := 1e-6
	if d0 >= 1e-5 && d1 >= 1e-5 {
		h0 = 0.01 * d0 / d1
	}
	floats.AddScaledTo(y1, y, h0, f0)
	eval(t+h0, y1, f1)
	var d2 float64
	for i := range y {
		sc := atol + rtol*math.Abs(y[i])
		d := (f1[i] - f0[i]) / sc
		d2 += d * d
	}
	d2 = math.Sqrt(d2/n) / h0

	var h1 float64
	if d1 <= 1e-15 && d2 <= 1e-15 {
		h1 = math.Max(1e-6, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/math.Max(d1, d2), 1.0/5)
	}
	return math.Min(100*h0, h1)
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
