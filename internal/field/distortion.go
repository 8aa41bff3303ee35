package field

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SpatialDistortion is a pure function contracting raw scene positions
// into a bounded region. Mutually exclusive with SceneBounds
// normalization.
type SpatialDistortion interface {
	// Contract maps an N×3 position batch into the distortion's bounded
	// output range.
	Contract(p *mat.Dense) *mat.Dense
}

// SceneContraction maps unbounded positions into the L∞ ball of radius 2:
// points with max-norm at most 1 pass through unchanged, everything
// further out is pulled in to (2 − 1/‖x‖)·x/‖x‖.
type SceneContraction struct{}

// Contract applies the contraction row-wise.
func (SceneContraction) Contract(p *mat.Dense) *mat.Dense {
	n, d := p.Dims()
	out := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		norm := 0.0
		for j := 0; j < d; j++ {
			if a := math.Abs(p.At(i, j)); a > norm {
				norm = a
			}
		}
		if norm <= 1 {
			for j := 0; j < d; j++ {
				out.Set(i, j, p.At(i, j))
			}
			continue
		}
		scale := (2 - 1/norm) / norm
		for j := 0; j < d; j++ {
			out.Set(i, j, p.At(i, j)*scale)
		}
	}
	return out
}

var _ SpatialDistortion = SceneContraction{}
