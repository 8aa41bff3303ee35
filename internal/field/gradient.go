package field

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// defaultGradientStep is the finite-difference half-step in raw scene
// units.
const defaultGradientStep = 1e-4

// DensityGradient estimates the gradient of the first density channel
// with respect to the raw sample position by central finite differences.
// The result has one row per density row and one column per axis. A
// non-positive step selects the default.
func DensityGradient(f Field, samples *RaySamples, step float64) (*mat.Dense, error) {
	if step <= 0 {
		step = defaultGradientStep
	}
	var grad *mat.Dense
	for axis := 0; axis < 3; axis++ {
		plus, err := f.GetDensity(shiftPositions(samples, axis, step))
		if err != nil {
			return nil, fmt.Errorf("density gradient axis %d: %w", axis, err)
		}
		minus, err := f.GetDensity(shiftPositions(samples, axis, -step))
		if err != nil {
			return nil, fmt.Errorf("density gradient axis %d: %w", axis, err)
		}
		rows, _ := plus.Density.Dims()
		if grad == nil {
			grad = mat.NewDense(rows, 3, nil)
		}
		for i := 0; i < rows; i++ {
			grad.Set(i, axis, (plus.Density.At(i, 0)-minus.Density.At(i, 0))/(2*step))
		}
	}
	return grad, nil
}

// GradientNormals returns unit surface normals opposing the density
// gradient: the direction in which density falls off fastest.
func GradientNormals(f Field, samples *RaySamples, step float64) (*mat.Dense, error) {
	grad, err := DensityGradient(f, samples, step)
	if err != nil {
		return nil, err
	}
	applyElem(grad, func(v float64) float64 { return -v })
	normalizeRows(grad)
	return grad, nil
}

// shiftPositions returns a shallow copy of samples whose positions are
// offset by delta along one axis.
func shiftPositions(samples *RaySamples, axis int, delta float64) *RaySamples {
	shifted := mat.DenseCopyOf(samples.Positions)
	n, _ := shifted.Dims()
	for i := 0; i < n; i++ {
		shifted.Set(i, axis, shifted.At(i, axis)+delta)
	}
	out := *samples
	out.Positions = shifted
	return &out
}
