// Package field implements a compound scene-representation field: raw 3D
// positions (and viewing direction, optionally wavelength) are mapped to
// volumetric density and emitted color for consumption by a volume
// renderer. Two interchangeable backends evaluate the same pipeline: a
// fused float32 path and an explicit float64 reference path.
package field

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// OutputName identifies one entry of a field's output mapping.
type OutputName string

const (
	OutputDensity          OutputName = "density"
	OutputRGB              OutputName = "rgb"
	OutputUncertainty      OutputName = "uncertainty"
	OutputTransientRGB     OutputName = "transient_rgb"
	OutputTransientDensity OutputName = "transient_density"
	OutputSemantics        OutputName = "semantics"
	OutputPredNormals      OutputName = "pred_normals"
)

// FieldOutputs maps output kinds to batch tensors. Which keys are present
// is determined by construction-time configuration, not per call.
type FieldOutputs map[OutputName]*mat.Dense

// RaySamples is an ordered batch of sample points along rays, produced by
// an external sampler and consumed read-only by the field.
type RaySamples struct {
	// Positions holds one raw 3D position per sample (N×3).
	Positions *mat.Dense
	// Directions holds one unit viewing direction per sample (N×3).
	Directions *mat.Dense
	// CameraIndices maps each sample to its source image. Nil means
	// absent, which is fatal for the outputs stage in any mode.
	CameraIndices []int
	// Wavelengths is an optional per-sample scalar wavelength.
	Wavelengths []float64
	// WavelengthSet is an optional shared set of wavelengths applied to
	// every sample.
	WavelengthSet []float64
	// Metadata carries auxiliary named tensors untouched by the field.
	Metadata map[string]*mat.Dense
}

// NumSamples returns the batch size.
func (rs *RaySamples) NumSamples() int {
	n, _ := rs.Positions.Dims()
	return n
}

// SceneBounds is an axis-aligned box used for linear position
// normalization. Immutable after construction.
type SceneBounds struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// Normalize min-max maps positions into the unit cube:
// (x - min) / (max - min) per axis.
func (b SceneBounds) Normalize(p *mat.Dense) *mat.Dense {
	n, d := p.Dims()
	if d != 3 {
		panic(fmt.Sprintf("field: positions have %d columns, want 3", d))
	}
	out := mat.NewDense(n, 3, nil)
	for j := 0; j < 3; j++ {
		span := b.Max[j] - b.Min[j]
		for i := 0; i < n; i++ {
			out.Set(i, j, (p.At(i, j)-b.Min[j])/span)
		}
	}
	return out
}
