// Package encoding provides the feature encoders used by the radiance
// field: frequency (sinusoidal) encodings, a spherical-harmonics direction
// encoding, and a multi-resolution hash-grid position encoding.
package encoding

import "gonum.org/v1/gonum/mat"

// Encoder maps a batch of low-dimensional inputs to a batch of feature
// vectors. Output dimensionality is fixed by configuration and never
// depends on input values.
type Encoder interface {
	// Encode maps an N×InDim batch to an N×OutDim feature batch.
	Encode(x *mat.Dense) *mat.Dense

	// InDim returns the expected number of input columns.
	InDim() int

	// OutDim returns the number of output columns.
	OutDim() int
}
