// Package inputs reads the household composition table, the composition
// distribution and the model parameters from disk.
package inputs

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/household-sim/sim"
)

// weightTolerance is how far composition weights may sum from one before
// they are rescaled.
const weightTolerance = 1e-6

// LoadCompositions reads a headerless CSV with one household composition per
// row and one column per age class.
func LoadCompositions(path string) ([][]int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening compositions: %w", err)
	}
	defer func() { _ = file.Close() }()
	return ReadCompositions(file)
}

// ReadCompositions parses a composition table. Counts written as floats
// ("2.0") are accepted when integral; fractional or negative counts fail with
// sim.ErrInvalidComposition.
func ReadCompositions(r io.Reader) ([][]int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	var out [][]int
	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading compositions CSV row %d: %w", line, err)
		}
		comp := make([]int, len(row))
		for j, field := range row {
			n, err := parseCount(field)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %d: %v", sim.ErrInvalidComposition, line, j, err)
			}
			comp[j] = n
		}
		out = append(out, comp)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: compositions CSV is empty", sim.ErrInvalidComposition)
	}
	return out, nil
}

func parseCount(field string) (int, error) {
	field = strings.TrimSpace(field)
	if n, err := strconv.Atoi(field); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative count %d", n)
		}
		return n, nil
	}
	x, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, fmt.Errorf("count %q is not a number", field)
	}
	if x != math.Trunc(x) || math.IsInf(x, 0) {
		return 0, fmt.Errorf("count %q is not an integer", field)
	}
	if x < 0 {
		return 0, fmt.Errorf("negative count %g", x)
	}
	if x > math.MaxInt32 {
		return 0, fmt.Errorf("count %g too large", x)
	}
	return int(x), nil
}

// LoadDistribution reads a headerless CSV of composition weights, either one
// per line or all on one line.
func LoadDistribution(path string) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening distribution: %w", err)
	}
	defer func() { _ = file.Close() }()
	return ReadDistribution(file)
}

// ReadDistribution parses composition weights. Weights must be non-negative;
// if they do not sum to one they are rescaled with a warning.
func ReadDistribution(r io.Reader) ([]float64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	var out []float64
	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading distribution CSV row %d: %w", line, err)
		}
		for _, field := range row {
			x, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("distribution row %d: weight %q is not a number", line, field)
			}
			if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
				return nil, fmt.Errorf("distribution row %d: weight must be a non-negative finite number, got %g", line, x)
			}
			out = append(out, x)
		}
	}
	return Normalize(out)
}

// Normalize rescales weights to sum to one, warning if they were off by more
// than rounding.
func Normalize(weights []float64) ([]float64, error) {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return nil, fmt.Errorf("composition weights sum to %g, want a positive total", sum)
	}
	if math.Abs(sum-1) <= weightTolerance {
		return weights, nil
	}
	logrus.Warnf("Composition weights sum to %g; rescaling to 1", sum)
	out := make([]float64, len(weights))
	for i, w := range weights {
		out[i] = w / sum
	}
	return out, nil
}

// LoadParams reads model parameters from a YAML file. Unknown keys are
// rejected.
func LoadParams(path string) (*sim.Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading params: %w", err)
	}
	return ParseParams(data)
}

// ParseParams decodes and validates YAML parameters.
func ParseParams(data []byte) (*sim.Params, error) {
	var p sim.Params
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return nil, fmt.Errorf("parsing params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
