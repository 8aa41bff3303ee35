package encoding

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// HashPrimes mixes quantized cell coordinates into a table index, one
// prime per input dimension. The fused backend reuses them so both
// implementations address identical table slots.
var HashPrimes = [4]uint64{1, 2654435761, 805459861, 3674653429}

// tableInitScale bounds the uniform initialization of the level tables.
const tableInitScale = 1e-4

// HashGridConfig describes a multi-resolution hash-grid encoding.
type HashGridConfig struct {
	InDim            int `json:"in_dim"`
	NumLevels        int `json:"num_levels"`
	FeaturesPerLevel int `json:"features_per_level"`
	Log2HashmapSize  int `json:"log2_hashmap_size"`
	BaseResolution   int `json:"base_resolution"`
	MaxResolution    int `json:"max_resolution"`
}

// HashGridEncoding is a learned multi-resolution spatial feature lookup.
// Each level quantizes the input domain at a geometrically growing
// resolution, hashes the cell corners into a fixed-size feature table and
// interpolates the corner features multilinearly. Inputs are expected in
// the unit domain; out-of-range coordinates still hash deterministically.
type HashGridEncoding struct {
	cfg       HashGridConfig
	growth    float64
	levelRes  []int
	tableSize int
	tables    [][]float64
}

// NewHashGridEncoding creates a hash-grid encoding with tables seeded from
// rng (uniform in ±1e-4).
func NewHashGridEncoding(cfg HashGridConfig, rng *rand.Rand) *HashGridEncoding {
	if cfg.InDim < 1 || cfg.InDim > len(HashPrimes) {
		panic(fmt.Sprintf("encoding: hash grid input dim %d out of range [1,%d]", cfg.InDim, len(HashPrimes)))
	}
	if cfg.NumLevels < 1 || cfg.FeaturesPerLevel < 1 || cfg.Log2HashmapSize < 1 {
		panic(fmt.Sprintf("encoding: invalid hash grid config %+v", cfg))
	}
	if cfg.BaseResolution < 1 || cfg.MaxResolution < cfg.BaseResolution {
		panic(fmt.Sprintf("encoding: invalid hash grid resolutions %+v", cfg))
	}

	growth := 1.0
	if cfg.NumLevels > 1 {
		growth = math.Exp((math.Log(float64(cfg.MaxResolution)) - math.Log(float64(cfg.BaseResolution))) / float64(cfg.NumLevels-1))
	}

	e := &HashGridEncoding{
		cfg:       cfg,
		growth:    growth,
		levelRes:  make([]int, cfg.NumLevels),
		tableSize: 1 << uint(cfg.Log2HashmapSize),
		tables:    make([][]float64, cfg.NumLevels),
	}
	for l := 0; l < cfg.NumLevels; l++ {
		e.levelRes[l] = int(math.Floor(float64(cfg.BaseResolution) * math.Pow(growth, float64(l))))
		table := make([]float64, e.tableSize*cfg.FeaturesPerLevel)
		for i := range table {
			table[i] = (rng.Float64()*2 - 1) * tableInitScale
		}
		e.tables[l] = table
	}
	return e
}

// Encode maps an N×InDim batch of unit-domain positions to their N×OutDim
// interpolated hash-grid features.
func (e *HashGridEncoding) Encode(x *mat.Dense) *mat.Dense {
	n, d := x.Dims()
	if d != e.cfg.InDim {
		panic(fmt.Sprintf("encoding: hash grid input has %d columns, want %d", d, e.cfg.InDim))
	}
	out := mat.NewDense(n, e.OutDim(), nil)
	point := make([]float64, d)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			point[j] = x.At(i, j)
		}
		e.encodePoint(point, out.RawRowView(i))
	}
	return out
}

// encodePoint accumulates the interpolated features of one point into out,
// which must be zeroed and of length OutDim.
func (e *HashGridEncoding) encodePoint(p, out []float64) {
	d := e.cfg.InDim
	nf := e.cfg.FeaturesPerLevel
	var cell [4]uint64
	var frac [4]float64
	for l, res := range e.levelRes {
		scale := float64(res)
		for j := 0; j < d; j++ {
			s := p[j] * scale
			f := math.Floor(s)
			cell[j] = uint64(int64(f))
			frac[j] = s - f
		}
		table := e.tables[l]
		for corner := 0; corner < 1<<uint(d); corner++ {
			w := 1.0
			var idx uint64
			for j := 0; j < d; j++ {
				c := cell[j]
				if corner&(1<<uint(j)) != 0 {
					c++
					w *= frac[j]
				} else {
					w *= 1 - frac[j]
				}
				idx ^= c * HashPrimes[j]
			}
			slot := int(idx%uint64(e.tableSize)) * nf
			for f := 0; f < nf; f++ {
				out[l*nf+f] += w * table[slot+f]
			}
		}
	}
}

// InDim returns the expected number of input columns.
func (e *HashGridEncoding) InDim() int { return e.cfg.InDim }

// OutDim returns NumLevels·FeaturesPerLevel.
func (e *HashGridEncoding) OutDim() int { return e.cfg.NumLevels * e.cfg.FeaturesPerLevel }

// GrowthFactor returns the per-level resolution growth factor.
func (e *HashGridEncoding) GrowthFactor() float64 { return e.growth }

// LevelResolutions returns the quantization resolution of each level.
func (e *HashGridEncoding) LevelResolutions() []int {
	out := make([]int, len(e.levelRes))
	copy(out, e.levelRes)
	return out
}

// Tables exposes the per-level feature tables. Callers must treat the
// returned slices as read-only.
func (e *HashGridEncoding) Tables() [][]float64 { return e.tables }

// Config returns the encoding configuration.
func (e *HashGridEncoding) Config() HashGridConfig { return e.cfg }

var _ Encoder = (*HashGridEncoding)(nil)
