package field

import (
	"gonum.org/v1/gonum/mat"

	"github.com/lumen-data/radiance.field/internal/field/nn"
)

// fieldHead is a final linear projection with a fixed element-wise output
// activation, applied to the shared output vector of a head network.
type fieldHead struct {
	linear     nn.Network
	activation func(float64) float64 // nil leaves the projection linear
}

func (h *fieldHead) forward(x *mat.Dense) *mat.Dense {
	out := h.linear.Forward(x)
	if h.activation != nil {
		out.Apply(func(_, _ int, v float64) float64 { return h.activation(v) }, out)
	}
	return out
}
