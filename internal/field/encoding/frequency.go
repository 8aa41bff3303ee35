package encoding

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// FrequencyEncoding expands each input component into sin/cos pairs at
// octave-spaced frequencies: sin(2^k·π·x), cos(2^k·π·x) for k in
// [0, freqs). Output width is inDim · 2 · freqs.
type FrequencyEncoding struct {
	inDim int
	freqs int
}

// NewFrequencyEncoding creates a frequency encoding for inDim input
// components with the given number of frequency octaves.
func NewFrequencyEncoding(inDim, freqs int) *FrequencyEncoding {
	if inDim <= 0 || freqs <= 0 {
		panic(fmt.Sprintf("encoding: invalid frequency encoding dims (in=%d freqs=%d)", inDim, freqs))
	}
	return &FrequencyEncoding{inDim: inDim, freqs: freqs}
}

// Encode maps an N×inDim batch to its N×OutDim sinusoidal expansion.
func (e *FrequencyEncoding) Encode(x *mat.Dense) *mat.Dense {
	n, d := x.Dims()
	if d != e.inDim {
		panic(fmt.Sprintf("encoding: frequency input has %d columns, want %d", d, e.inDim))
	}
	out := mat.NewDense(n, e.OutDim(), nil)
	for i := 0; i < n; i++ {
		col := 0
		for j := 0; j < d; j++ {
			v := x.At(i, j)
			for k := 0; k < e.freqs; k++ {
				phase := math.Pi * v * float64(uint64(1)<<uint(k))
				out.Set(i, col, math.Sin(phase))
				out.Set(i, col+1, math.Cos(phase))
				col += 2
			}
		}
	}
	return out
}

// InDim returns the expected number of input columns.
func (e *FrequencyEncoding) InDim() int { return e.inDim }

// OutDim returns the number of output columns.
func (e *FrequencyEncoding) OutDim() int { return e.inDim * 2 * e.freqs }

var _ Encoder = (*FrequencyEncoding)(nil)
