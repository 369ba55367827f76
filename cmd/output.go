package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/inference-sim/household-sim/sim"
)

// writeSeriesCSV writes one row per recorded time: t, expected detected and
// undetected counts per class (or per coarse bucket), then their totals.
func writeSeriesCSV(w io.Writer, sol *sim.Solution, bounds []int) error {
	det, err := sim.Coarsen(sol.Project(sim.Detected), bounds)
	if err != nil {
		return err
	}
	undet, err := sim.Coarsen(sol.Project(sim.Undetected), bounds)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	_, cols := det.Dims()
	if det.IsEmpty() {
		cols = 0
	}
	header := []string{"t"}
	for _, name := range []string{"D", "U"} {
		for k := 0; k < cols; k++ {
			header = append(header, fmt.Sprintf("%s_%d", name, k))
		}
	}
	header = append(header, "D_total", "U_total")
	if err := cw.Write(header); err != nil {
		return err
	}
	format := func(x float64) string { return strconv.FormatFloat(x, 'g', -1, 64) }
	for i, t := range sol.Times {
		dRow, uRow := mat.Row(nil, i, det), mat.Row(nil, i, undet)
		row := []string{format(t)}
		for _, x := range append(append([]float64(nil), dRow...), uRow...) {
			row = append(row, format(x))
		}
		row = append(row, format(floats.Sum(dRow)), format(floats.Sum(uRow)))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
