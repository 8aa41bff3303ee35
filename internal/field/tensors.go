package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/lumen-data/radiance.field/internal/field/nn"
)

// hcat concatenates batches column-wise. All parts must share a row count.
func hcat(parts ...*mat.Dense) *mat.Dense {
	rows, total := 0, 0
	for i, p := range parts {
		r, c := p.Dims()
		if i == 0 {
			rows = r
		} else if r != rows {
			panic(fmt.Sprintf("field: concat row mismatch (%d vs %d)", r, rows))
		}
		total += c
	}
	out := mat.NewDense(rows, total, nil)
	col := 0
	for _, p := range parts {
		_, c := p.Dims()
		for i := 0; i < rows; i++ {
			copy(out.RawRowView(i)[col:col+c], p.RawRowView(i))
		}
		col += c
	}
	return out
}

// hcatBroadcast builds the per-wavelength color-head input: for sample i
// and wavelength k, row i·w+k is [d_i, geo_{i·w+k}, app_i]. d and app have
// one row per sample; geo has one row per (sample, wavelength) pair.
func hcatBroadcast(d, geo, app *mat.Dense, w int) *mat.Dense {
	n, dc := d.Dims()
	rows, gc := geo.Dims()
	_, ac := app.Dims()
	if rows != n*w {
		panic(fmt.Sprintf("field: geo has %d rows, want %d×%d", rows, n, w))
	}
	out := mat.NewDense(rows, dc+gc+ac, nil)
	for i := 0; i < n; i++ {
		for k := 0; k < w; k++ {
			row := out.RawRowView(i*w + k)
			copy(row, d.RawRowView(i))
			copy(row[dc:], geo.RawRowView(i*w+k))
			copy(row[dc+gc:], app.RawRowView(i))
		}
	}
	return out
}

// applyElem applies fn to every entry of m in place.
func applyElem(m *mat.Dense, fn func(float64) float64) {
	m.Apply(func(_, _ int, v float64) float64 { return fn(v) }, m)
}

// normalizedDirections remaps unit direction components from [-1,1] to
// [0,1]; the spherical-harmonics encoding requires a non-negative domain.
func normalizedDirections(d *mat.Dense) *mat.Dense {
	out := mat.DenseCopyOf(d)
	applyElem(out, func(v float64) float64 { return (v + 1) / 2 })
	return out
}

// normalizeRows scales each row to unit L2 norm, leaving near-zero rows
// untouched.
func normalizeRows(m *mat.Dense) {
	n, c := m.Dims()
	for i := 0; i < n; i++ {
		row := m.RawRowView(i)
		norm := 0.0
		for _, v := range row {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm < 1e-12 {
			continue
		}
		for j := 0; j < c; j++ {
			row[j] /= norm
		}
	}
}

// rectifyDensity applies the truncated-exponential activation to a batch
// of density logits.
func rectifyDensity(logits *mat.Dense) *mat.Dense {
	out := mat.DenseCopyOf(logits)
	applyElem(out, nn.TruncExp)
	return out
}
