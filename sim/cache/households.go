package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/household-sim/sim"
	"github.com/inference-sim/household-sim/sim/sparse"
)

// formatVersion is bumped whenever the payload layout or the generator
// construction changes, invalidating older entries.
const formatVersion = 1

// Households stores household builds in a Store. It implements
// sim.HouseholdCache.
type Households struct {
	store Store
}

var _ sim.HouseholdCache = (*Households)(nil)

// NewHouseholds wraps store.
func NewHouseholds(store Store) *Households { return &Households{store: store} }

// keyMaterial lists everything the within-household generator depends on.
// External contacts and coarse bounds only matter after the build.
type keyMaterial struct {
	Version                    int         `json:"version"`
	Compositions               [][]int     `json:"compositions"`
	Susceptibility             []float64   `json:"susceptibility"`
	DetectionProbability       []float64   `json:"detection_probability"`
	ProdromalInfectiousness    float64     `json:"prodromal_infectiousness"`
	AsymptomaticInfectiousness []float64   `json:"asymptomatic_infectiousness"`
	IncubationRate             float64     `json:"incubation_rate"`
	SymptomOnsetRate           float64     `json:"symptom_onset_rate"`
	RecoveryRate               float64     `json:"recovery_rate"`
	HomeContacts               [][]float64 `json:"home_contacts"`
}

// Key returns the blob key of the build of compositions under p.
func Key(compositions [][]int, p *sim.Params) (string, error) {
	b, err := json.Marshal(keyMaterial{
		Version:                    formatVersion,
		Compositions:               compositions,
		Susceptibility:             p.Susceptibility,
		DetectionProbability:       p.DetectionProbability,
		ProdromalInfectiousness:    p.ProdromalInfectiousness,
		AsymptomaticInfectiousness: p.AsymptomaticInfectiousness,
		IncubationRate:             p.IncubationRate,
		SymptomOnsetRate:           p.SymptomOnsetRate,
		RecoveryRate:               p.RecoveryRate,
		HomeContacts:               p.HomeContacts,
	})
	if err != nil {
		return "", fmt.Errorf("encoding cache key: %w", err)
	}
	sum := sha256.Sum256(b)
	return "households/" + hex.EncodeToString(sum[:]) + ".json", nil
}

type payload struct {
	Version int     `json:"version"`
	Entries []entry `json:"entries"`
}

type entry struct {
	Composition []int                `json:"composition"`
	States      []int                `json:"states"`
	N           int                  `json:"n"`
	RowPtr      []int                `json:"row_ptr"`
	ColIdx      []int                `json:"col_idx"`
	Values      []float64            `json:"values"`
	Infections  []sim.InfectionEvent `json:"infections"`
}

// Load returns the cached builds of compositions, in order. A missing entry
// yields an error wrapping sim.ErrCacheMiss.
func (c *Households) Load(ctx context.Context, compositions [][]int, p *sim.Params) ([]*sim.Household, error) {
	key, err := Key(compositions, p)
	if err != nil {
		return nil, err
	}
	_, rc, err := c.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", sim.ErrCacheMiss, key)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	var pl payload
	if err := json.NewDecoder(rc).Decode(&pl); err != nil {
		return nil, fmt.Errorf("decoding cache entry %s: %w", key, err)
	}
	if pl.Version != formatVersion {
		return nil, fmt.Errorf("%w: %s has format version %d", sim.ErrCacheMiss, key, pl.Version)
	}
	if len(pl.Entries) != len(compositions) {
		return nil, fmt.Errorf("cache entry %s holds %d households, want %d", key, len(pl.Entries), len(compositions))
	}
	out := make([]*sim.Household, len(pl.Entries))
	for i, e := range pl.Entries {
		if fmt.Sprint(e.Composition) != fmt.Sprint(compositions[i]) {
			return nil, fmt.Errorf("cache entry %s: household %d is %v, want %v", key, i, e.Composition, compositions[i])
		}
		q, err := sparse.FromArrays(e.N, e.RowPtr, e.ColIdx, e.Values)
		if err != nil {
			return nil, fmt.Errorf("cache entry %s household %d: %w", key, i, err)
		}
		h, err := sim.RestoreHousehold(e.Composition, e.States, q, e.Infections)
		if err != nil {
			return nil, fmt.Errorf("cache entry %s: %w", key, err)
		}
		out[i] = h
	}
	logrus.Debugf("Loaded cache entry %s", key)
	return out, nil
}

// Save writes the builds of compositions, replacing any previous entry.
func (c *Households) Save(ctx context.Context, compositions [][]int, p *sim.Params, households []*sim.Household) error {
	if len(households) != len(compositions) {
		return fmt.Errorf("%d households for %d compositions", len(households), len(compositions))
	}
	key, err := Key(compositions, p)
	if err != nil {
		return err
	}
	pl := payload{Version: formatVersion, Entries: make([]entry, len(households))}
	for i, h := range households {
		n, rowPtr, colIdx, values := h.Q.Export()
		pl.Entries[i] = entry{
			Composition: compositions[i],
			States:      h.States(),
			N:           n,
			RowPtr:      rowPtr,
			ColIdx:      colIdx,
			Values:      values,
			Infections:  h.Infections,
		}
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(pl); err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	info, err := c.store.Put(ctx, key, &buf)
	if err != nil {
		return fmt.Errorf("writing cache entry %s: %w", key, err)
	}
	logrus.Infof("Saved %d household builds to %s cache (%d bytes)", len(households), c.store.Driver(), info.Size)
	return nil
}
