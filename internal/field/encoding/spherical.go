package encoding

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SHEncoding evaluates the real spherical-harmonics basis of a unit
// direction up to the configured degree (degree 4 yields 16 components).
// Inputs are expected component-wise remapped from [-1,1] to [0,1]; the
// encoding maps them back internally before evaluating the basis.
type SHEncoding struct {
	degree int
}

// NewSHEncoding creates a spherical-harmonics encoding of the given degree.
// Degrees 1 through 4 are supported.
func NewSHEncoding(degree int) *SHEncoding {
	if degree < 1 || degree > 4 {
		panic(fmt.Sprintf("encoding: unsupported spherical harmonics degree %d", degree))
	}
	return &SHEncoding{degree: degree}
}

// Encode maps an N×3 batch of [0,1]-remapped directions to the N×OutDim
// spherical-harmonics components.
func (e *SHEncoding) Encode(dirs *mat.Dense) *mat.Dense {
	n, d := dirs.Dims()
	if d != 3 {
		panic(fmt.Sprintf("encoding: spherical harmonics input has %d columns, want 3", d))
	}
	out := mat.NewDense(n, e.OutDim(), nil)
	for i := 0; i < n; i++ {
		// Undo the [0,1] remap back to direction components.
		x := dirs.At(i, 0)*2 - 1
		y := dirs.At(i, 1)*2 - 1
		z := dirs.At(i, 2)*2 - 1
		xx, yy, zz := x*x, y*y, z*z

		out.Set(i, 0, 0.28209479177387814)
		if e.degree > 1 {
			out.Set(i, 1, 0.4886025119029199*y)
			out.Set(i, 2, 0.4886025119029199*z)
			out.Set(i, 3, 0.4886025119029199*x)
		}
		if e.degree > 2 {
			out.Set(i, 4, 1.0925484305920792*x*y)
			out.Set(i, 5, 1.0925484305920792*y*z)
			out.Set(i, 6, 0.9461746957575601*zz-0.31539156525252)
			out.Set(i, 7, 1.0925484305920792*x*z)
			out.Set(i, 8, 0.5462742152960396*(xx-yy))
		}
		if e.degree > 3 {
			out.Set(i, 9, 0.5900435899266435*y*(3*xx-yy))
			out.Set(i, 10, 2.890611442640554*x*y*z)
			out.Set(i, 11, 0.4570457994644658*y*(4*zz-xx-yy))
			out.Set(i, 12, 0.3731763325901154*z*(2*zz-3*xx-3*yy))
			out.Set(i, 13, 0.4570457994644658*x*(4*zz-xx-yy))
			out.Set(i, 14, 1.445305721320277*z*(xx-yy))
			out.Set(i, 15, 0.5900435899266435*x*(xx-3*yy))
		}
	}
	return out
}

// InDim returns 3: a unit direction per sample.
func (e *SHEncoding) InDim() int { return 3 }

// OutDim returns the number of basis components (degree squared).
func (e *SHEncoding) OutDim() int { return e.degree * e.degree }

var _ Encoder = (*SHEncoding)(nil)
