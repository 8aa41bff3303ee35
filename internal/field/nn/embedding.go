package nn

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrIndexOutOfRange reports an embedding lookup outside the table.
var ErrIndexOutOfRange = errors.New("embedding index out of range")

// Embedding is a per-image table of learned latent vectors.
type Embedding struct {
	num     int
	dim     int
	weights *mat.Dense
}

// NewEmbedding creates a num×dim table with standard-normal entries from rng.
func NewEmbedding(num, dim int, rng *rand.Rand) *Embedding {
	if num <= 0 || dim <= 0 {
		panic(fmt.Sprintf("nn: invalid embedding shape %d×%d", num, dim))
	}
	w := mat.NewDense(num, dim, nil)
	for i := 0; i < num; i++ {
		for j := 0; j < dim; j++ {
			w.Set(i, j, rng.NormFloat64())
		}
	}
	return &Embedding{num: num, dim: dim, weights: w}
}

// Lookup gathers the rows for the given image indices. An out-of-range
// index is a precondition violation and fails the whole lookup.
func (e *Embedding) Lookup(indices []int) (*mat.Dense, error) {
	out := mat.NewDense(len(indices), e.dim, nil)
	for i, idx := range indices {
		if idx < 0 || idx >= e.num {
			return nil, fmt.Errorf("nn: lookup image %d in table of %d: %w", idx, e.num, ErrIndexOutOfRange)
		}
		out.SetRow(i, e.weights.RawRowView(idx))
	}
	return out, nil
}

// Mean returns the arithmetic mean of all rows.
func (e *Embedding) Mean() []float64 {
	mean := make([]float64, e.dim)
	for i := 0; i < e.num; i++ {
		floats.Add(mean, e.weights.RawRowView(i))
	}
	floats.Scale(1/float64(e.num), mean)
	return mean
}

// NumEntries returns the number of images in the table.
func (e *Embedding) NumEntries() int { return e.num }

// Dim returns the latent vector width.
func (e *Embedding) Dim() int { return e.dim }
