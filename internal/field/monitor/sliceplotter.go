// Package monitor provides visualization helpers for inspecting trained
// fields: planar density slices rendered as heatmaps.
package monitor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/lumen-data/radiance.field/internal/field"
)

// SliceConfig describes one planar probe of a field: a Resolution×
// Resolution grid spanning the bounds at height Z, viewed straight down
// the z axis.
type SliceConfig struct {
	Bounds     field.SceneBounds `json:"bounds"`
	Z          float64           `json:"z"`
	Resolution int               `json:"resolution"`
	// WavelengthSet is forwarded to the field when its injection mode
	// requires one.
	WavelengthSet []float64 `json:"wavelength_set,omitempty"`
	// Wavelengths assigns every probe point the same per-sample
	// wavelength, for before-backbone injection.
	Wavelength float64 `json:"wavelength,omitempty"`
	// Output is the PNG path; empty skips rendering and only collects
	// stats.
	Output string `json:"output,omitempty"`
}

// SliceStats summarizes the probed densities.
type SliceStats struct {
	Samples     int     `json:"samples"`
	MinDensity  float64 `json:"min_density"`
	MaxDensity  float64 `json:"max_density"`
	MeanDensity float64 `json:"mean_density"`
}

// ProbeDensitySlice evaluates the field's density stage over the slice
// grid, optionally rendering a heatmap PNG.
func ProbeDensitySlice(f field.Field, cfg SliceConfig) (SliceStats, error) {
	if cfg.Resolution < 2 {
		return SliceStats{}, fmt.Errorf("monitor: slice resolution %d too small", cfg.Resolution)
	}
	res := cfg.Resolution
	n := res * res

	positions := mat.NewDense(n, 3, nil)
	directions := mat.NewDense(n, 3, nil)
	xs := make([]float64, res)
	ys := make([]float64, res)
	for i := 0; i < res; i++ {
		t := float64(i) / float64(res-1)
		xs[i] = cfg.Bounds.Min[0] + t*(cfg.Bounds.Max[0]-cfg.Bounds.Min[0])
		ys[i] = cfg.Bounds.Min[1] + t*(cfg.Bounds.Max[1]-cfg.Bounds.Min[1])
	}
	for iy := 0; iy < res; iy++ {
		for ix := 0; ix < res; ix++ {
			row := iy*res + ix
			positions.Set(row, 0, xs[ix])
			positions.Set(row, 1, ys[iy])
			positions.Set(row, 2, cfg.Z)
			directions.Set(row, 2, -1)
		}
	}

	samples := &field.RaySamples{Positions: positions, Directions: directions}
	switch f.Config().WavelengthMode {
	case field.WavelengthBeforeBackbone:
		wl := make([]float64, n)
		for i := range wl {
			wl[i] = cfg.Wavelength
		}
		samples.Wavelengths = wl
	case field.WavelengthAfterBackbone:
		samples.WavelengthSet = cfg.WavelengthSet
	}

	result, err := f.GetDensity(samples)
	if err != nil {
		return SliceStats{}, fmt.Errorf("monitor: probe density: %w", err)
	}

	rows, _ := result.Density.Dims()
	perPoint := rows / n
	grid := &densityGrid{xs: xs, ys: ys, values: make([]float64, n)}
	stats := SliceStats{Samples: n}
	sum := 0.0
	for i := 0; i < n; i++ {
		// Average across wavelengths when the density stage emits one
		// row per sample-wavelength pair.
		v := 0.0
		for k := 0; k < perPoint; k++ {
			v += result.Density.At(i*perPoint+k, 0)
		}
		v /= float64(perPoint)
		grid.values[i] = v
		sum += v
		if i == 0 || v < stats.MinDensity {
			stats.MinDensity = v
		}
		if i == 0 || v > stats.MaxDensity {
			stats.MaxDensity = v
		}
	}
	stats.MeanDensity = sum / float64(n)

	if cfg.Output == "" {
		return stats, nil
	}
	if err := renderHeatmap(grid, cfg.Output); err != nil {
		return stats, err
	}
	Logf("monitor: wrote %dx%d density slice to %s", res, res, cfg.Output)
	return stats, nil
}

func renderHeatmap(grid *densityGrid, path string) error {
	p := plot.New()
	p.Title.Text = "density slice"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(plotter.NewHeatMap(grid, palette.Heat(16, 1)))
	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("monitor: save heatmap: %w", err)
	}
	return nil
}

// densityGrid adapts probed densities to plotter.GridXYZ.
type densityGrid struct {
	xs     []float64
	ys     []float64
	values []float64 // row-major, ys outer
}

func (g *densityGrid) Dims() (int, int)   { return len(g.xs), len(g.ys) }
func (g *densityGrid) X(c int) float64    { return g.xs[c] }
func (g *densityGrid) Y(r int) float64    { return g.ys[r] }
func (g *densityGrid) Z(c, r int) float64 { return g.values[r*len(g.xs)+c] }

var _ plotter.GridXYZ = (*densityGrid)(nil)
