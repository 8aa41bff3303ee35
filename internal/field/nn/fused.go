package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/lumen-data/radiance.field/internal/field/encoding"
)

// FusedMLP evaluates the parameters of an MLP in float32, mirroring the
// accelerated fully-fused network path. Outputs agree with the reference
// implementation within float32 truncation error.
type FusedMLP struct {
	inDim  int
	outDim int
	// layerDims[i] is the output width of layer i; weights[i] is its flat
	// row-major layerDims[i]×prevDim matrix.
	layerDims []int
	weights   [][]float32
	biases    [][]float32
	outAct    Activation
}

// NewFusedMLPFrom truncates an MLP's parameters to float32.
func NewFusedMLPFrom(m *MLP) *FusedMLP {
	f := &FusedMLP{inDim: m.InDim(), outDim: m.OutDim(), outAct: m.OutputActivation()}
	for l, w := range m.Weights() {
		rows, cols := w.Dims()
		flat := make([]float32, rows*cols)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				flat[i*cols+j] = float32(w.At(i, j))
			}
		}
		bias := make([]float32, rows)
		for i, b := range m.Biases()[l] {
			bias[i] = float32(b)
		}
		f.layerDims = append(f.layerDims, rows)
		f.weights = append(f.weights, flat)
		f.biases = append(f.biases, bias)
	}
	return f
}

// Forward evaluates the network on an N×InDim batch, upcasting the float32
// result to float64.
func (f *FusedMLP) Forward(x *mat.Dense) *mat.Dense {
	n, d := x.Dims()
	if d != f.inDim {
		panic(fmt.Sprintf("nn: fused MLP input has %d columns, want %d", d, f.inDim))
	}
	in := make([]float32, n*d)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			in[i*d+j] = float32(x.At(i, j))
		}
	}
	return flatToDense(f.forwardFlat(in, n), n, f.outDim)
}

// forwardFlat evaluates n rows of width inDim held in a flat float32 slice.
func (f *FusedMLP) forwardFlat(h []float32, n int) []float32 {
	inW := f.inDim
	for l, w := range f.weights {
		outW := f.layerDims[l]
		last := l == len(f.weights)-1
		next := make([]float32, n*outW)
		for i := 0; i < n; i++ {
			row := h[i*inW : (i+1)*inW]
			for j := 0; j < outW; j++ {
				sum := f.biases[l][j]
				wrow := w[j*inW : (j+1)*inW]
				for k, v := range row {
					sum += v * wrow[k]
				}
				switch {
				case !last:
					if sum < 0 {
						sum = 0
					}
				case f.outAct == ActivationSigmoid:
					sum = float32(Sigmoid(float64(sum)))
				}
				next[i*outW+j] = sum
			}
		}
		h = next
		inW = outW
	}
	return h
}

// InDim returns the expected number of input columns.
func (f *FusedMLP) InDim() int { return f.inDim }

// OutDim returns the number of output columns.
func (f *FusedMLP) OutDim() int { return f.outDim }

var _ Network = (*FusedMLP)(nil)

// FusedEncMLP fuses the hash-grid encoding and the backbone evaluation
// into one float32 call, the accelerated counterpart of encoding a batch
// explicitly and forwarding it through an MLP. Its input is the raw
// normalized position batch, not encoded features.
type FusedEncMLP struct {
	cfg       encoding.HashGridConfig
	levelRes  []int
	tableSize int
	tables    [][]float32
	mlp       *FusedMLP
}

// NewFusedEncMLP builds the fused operator from a reference hash grid and
// the backbone MLP evaluating its features.
func NewFusedEncMLP(grid *encoding.HashGridEncoding, m *MLP) *FusedEncMLP {
	if m.InDim() != grid.OutDim() {
		panic(fmt.Sprintf("nn: backbone expects %d inputs, hash grid produces %d", m.InDim(), grid.OutDim()))
	}
	f := &FusedEncMLP{
		cfg:       grid.Config(),
		levelRes:  grid.LevelResolutions(),
		tableSize: 1 << uint(grid.Config().Log2HashmapSize),
		mlp:       NewFusedMLPFrom(m),
	}
	for _, table := range grid.Tables() {
		t := make([]float32, len(table))
		for i, v := range table {
			t[i] = float32(v)
		}
		f.tables = append(f.tables, t)
	}
	return f
}

// Forward encodes an N×InDim batch of unit-domain positions and evaluates
// the backbone in a single float32 pass.
func (f *FusedEncMLP) Forward(x *mat.Dense) *mat.Dense {
	n, d := x.Dims()
	if d != f.cfg.InDim {
		panic(fmt.Sprintf("nn: fused encoder input has %d columns, want %d", d, f.cfg.InDim))
	}
	encDim := f.cfg.NumLevels * f.cfg.FeaturesPerLevel
	features := make([]float32, n*encDim)
	point := make([]float64, d)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			point[j] = x.At(i, j)
		}
		f.encodePoint(point, features[i*encDim:(i+1)*encDim])
	}
	return flatToDense(f.mlp.forwardFlat(features, n), n, f.mlp.outDim)
}

// encodePoint mirrors the reference hash-grid interpolation with float32
// tables. Cell addressing is identical; only the feature arithmetic loses
// precision.
func (f *FusedEncMLP) encodePoint(p []float64, out []float32) {
	d := f.cfg.InDim
	nf := f.cfg.FeaturesPerLevel
	var cell [4]uint64
	var frac [4]float32
	for l, res := range f.levelRes {
		scale := float64(res)
		for j := 0; j < d; j++ {
			s := p[j] * scale
			fl := math.Floor(s)
			cell[j] = uint64(int64(fl))
			frac[j] = float32(s - fl)
		}
		table := f.tables[l]
		for corner := 0; corner < 1<<uint(d); corner++ {
			w := float32(1)
			var idx uint64
			for j := 0; j < d; j++ {
				c := cell[j]
				if corner&(1<<uint(j)) != 0 {
					c++
					w *= frac[j]
				} else {
					w *= 1 - frac[j]
				}
				idx ^= c * encoding.HashPrimes[j]
			}
			slot := int(idx%uint64(f.tableSize)) * nf
			for ft := 0; ft < nf; ft++ {
				out[l*nf+ft] += w * table[slot+ft]
			}
		}
	}
}

// InDim returns the raw position dimensionality consumed by the fused call.
func (f *FusedEncMLP) InDim() int { return f.cfg.InDim }

// OutDim returns the backbone output width.
func (f *FusedEncMLP) OutDim() int { return f.mlp.outDim }

var _ Network = (*FusedEncMLP)(nil)

func flatToDense(h []float32, n, dim int) *mat.Dense {
	out := mat.NewDense(n, dim, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < dim; j++ {
			out.Set(i, j, float64(h[i*dim+j]))
		}
	}
	return out
}
