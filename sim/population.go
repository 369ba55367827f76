package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/inference-sim/household-sim/sim/sparse"
)

// ErrCacheMiss is returned by a HouseholdCache that holds no entry for the
// requested compositions and parameters.
var ErrCacheMiss = errors.New("household cache miss")

// HouseholdCache persists household builds between runs. Entries must be
// keyed by both the compositions and the rate parameters.
type HouseholdCache interface {
	Load(ctx context.Context, compositions [][]int, p *Params) ([]*Household, error)
	Save(ctx context.Context, compositions [][]int, p *Params, households []*Household) error
}

// BuildOptions controls NewPopulation. The zero value builds sequentially
// without a cache.
type BuildOptions struct {
	Workers int // concurrent household builds; 0 means no limit
	Cache   HouseholdCache
	Metrics *Metrics
}

// Block locates one composition's states in the global state vector.
type Block struct {
	Composition int // row of the composition table
	Offset      int
	Size        int
}

// Population lays out every household composition in one global state space.
//
// States of composition i occupy [Blocks[i].Offset, Blocks[i].Offset+Blocks[i].Size).
// The global generator is block diagonal: households never exchange
// probability mass, they only interact through the force of infection.
type Population struct {
	Compositions [][]int
	Weights      []float64
	Households   []*Household // per composition row; identical rows share a build
	Blocks       []Block
	Generator    *sparse.CSR
	// Infections are the S → E moves of every block in global indices.
	Infections []InfectionEvent

	numClasses int
	size       int
	occupancy  [NumCompartments]*mat.Dense // states × classes
	members    *mat.Dense                  // states × classes, composition counts
}

// NewPopulation builds or loads the household of every distinct composition
// and assembles the global layout. weights must be non-negative and sum to 1.
func NewPopulation(ctx context.Context, compositions [][]int, weights []float64, p *Params, opts BuildOptions) (*Population, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := validateWeights(compositions, weights); err != nil {
		return nil, err
	}
	for i, comp := range compositions {
		if len(comp) != p.NumClasses() {
			return nil, fmt.Errorf("%w: composition row %d has %d classes, parameters have %d",
				ErrInvalidComposition, i, len(comp), p.NumClasses())
		}
		if err := validateComposition(comp); err != nil {
			return nil, fmt.Errorf("composition row %d: %w", i, err)
		}
	}

	distinct, rowToDistinct := dedupeCompositions(compositions)
	var households []*Household
	if opts.Cache != nil {
		hs, err := opts.Cache.Load(ctx, distinct, p)
		switch {
		case err == nil && len(hs) == len(distinct):
			logrus.Infof("Loaded %d household builds from cache", len(hs))
			opts.Metrics.ObserveCacheLookup("hit")
			households = hs
		case err == nil:
			logrus.Warnf("Ignoring household cache: %d entries for %d compositions", len(hs), len(distinct))
			opts.Metrics.ObserveCacheLookup("error")
		case errors.Is(err, ErrCacheMiss):
			logrus.Infof("Household cache miss; building %d compositions", len(distinct))
			opts.Metrics.ObserveCacheLookup("miss")
		default:
			logrus.Warnf("Ignoring household cache: %v", err)
			opts.Metrics.ObserveCacheLookup("error")
		}
	}
	if households == nil {
		var err error
		households, err = buildHouseholds(ctx, distinct, p, opts)
		if err != nil {
			return nil, err
		}
		if opts.Cache != nil {
			if err := opts.Cache.Save(ctx, distinct, p, households); err != nil {
				logrus.Warnf("Failed to save household cache: %v", err)
			}
		}
	}

	pop := assemble(compositions, weights, households, rowToDistinct, p.NumClasses())
	opts.Metrics.SetStates(pop.size)
	logrus.Infof("Population has %d compositions (%d distinct), %d states, %d generator entries",
		len(compositions), len(distinct), pop.size, pop.Generator.NNZ())
	return pop, nil
}

func validateWeights(compositions [][]int, weights []float64) error {
	if len(compositions) == 0 {
		return fmt.Errorf("%w: no household compositions", ErrInvalidComposition)
	}
	if len(weights) != len(compositions) {
		return fmt.Errorf("%d weights for %d compositions", len(weights), len(compositions))
	}
	sum := 0.0
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("weight %d must be a non-negative finite number, got %f", i, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("composition weights sum to %f, want 1", sum)
	}
	return nil
}

func dedupeCompositions(compositions [][]int) (distinct [][]int, rowToDistinct []int) {
	seen := make(map[string]int, len(compositions))
	rowToDistinct = make([]int, len(compositions))
	for i, comp := range compositions {
		key := fmt.Sprint(comp)
		idx, ok := seen[key]
		if !ok {
			idx = len(distinct)
			seen[key] = idx
			distinct = append(distinct, append([]int(nil), comp...))
		}
		rowToDistinct[i] = idx
	}
	return distinct, rowToDistinct
}

// buildHouseholds builds every composition concurrently. Builds share no
// mutable state; each writes only its own slot.
func buildHouseholds(ctx context.Context, compositions [][]int, p *Params, opts BuildOptions) ([]*Household, error) {
	out := make([]*Household, len(compositions))
	g, ctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i, comp := range compositions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			h, err := BuildHousehold(comp, p)
			if err != nil {
				return err
			}
			opts.Metrics.ObserveHouseholdBuild(time.Since(start))
			logrus.Debugf("Built composition %v: %d states, %d transitions", comp, h.Table.Len(), h.Q.NNZ())
			out[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func assemble(compositions [][]int, weights []float64, households []*Household, rowToDistinct []int, numClasses int) *Population {
	pop := &Population{
		Compositions: compositions,
		Weights:      weights,
		Households:   make([]*Household, len(compositions)),
		Blocks:       make([]Block, len(compositions)),
		numClasses:   numClasses,
	}
	qs := make([]*sparse.CSR, len(compositions))
	for i := range compositions {
		h := households[rowToDistinct[i]]
		pop.Households[i] = h
		pop.Blocks[i] = Block{Composition: i, Offset: pop.size, Size: h.Table.Len()}
		qs[i] = h.Q
		for _, ev := range h.Infections {
			pop.Infections = append(pop.Infections, InfectionEvent{
				From:  ev.From + pop.size,
				To:    ev.To + pop.size,
				Class: ev.Class,
			})
		}
		pop.size += h.Table.Len()
	}
	pop.Generator = sparse.BlockDiag(qs...)

	for c := range pop.occupancy {
		pop.occupancy[c] = mat.NewDense(pop.size, numClasses, nil)
	}
	pop.members = mat.NewDense(pop.size, numClasses, nil)
	for _, b := range pop.Blocks {
		st := pop.Households[b.Composition].Table
		for r := 0; r < st.Len(); r++ {
			g := b.Offset + r
			for class, n := range st.composition {
				pop.members.Set(g, class, float64(n))
			}
			for pos, class := range st.present {
				for c := Susceptible; c <= Recovered; c++ {
					pop.occupancy[c].Set(g, class, float64(st.Count(r, pos, c)))
				}
			}
		}
	}
	return pop
}

// Size returns the number of global states.
func (pop *Population) Size() int { return pop.size }

// NumClasses returns the number of age classes.
func (pop *Population) NumClasses() int { return pop.numClasses }

// Occupancy returns the states × classes matrix of compartment counts.
// The matrix is shared and must not be modified.
func (pop *Population) Occupancy(c Compartment) *mat.Dense { return pop.occupancy[c] }

// Members returns the states × classes matrix of household composition counts.
// The matrix is shared and must not be modified.
func (pop *Population) Members() *mat.Dense { return pop.members }

// BlockOf returns the block containing global state s.
func (pop *Population) BlockOf(s int) (Block, bool) {
	i := sort.Search(len(pop.Blocks), func(i int) bool {
		return pop.Blocks[i].Offset+pop.Blocks[i].Size > s
	})
	if s < 0 || i == len(pop.Blocks) {
		return Block{}, false
	}
	return pop.Blocks[i], true
}
