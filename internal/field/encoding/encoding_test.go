package encoding

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFrequencyEncoding(t *testing.T) {
	t.Parallel()

	t.Run("output dim is a pure function of configuration", func(t *testing.T) {
		t.Parallel()
		e := NewFrequencyEncoding(3, 2)
		assert.Equal(t, 3, e.InDim())
		assert.Equal(t, 12, e.OutDim())

		out := e.Encode(mat.NewDense(5, 3, nil))
		r, c := out.Dims()
		assert.Equal(t, 5, r)
		assert.Equal(t, e.OutDim(), c)
	})

	t.Run("zero input yields alternating sin/cos values", func(t *testing.T) {
		t.Parallel()
		e := NewFrequencyEncoding(1, 3)
		out := e.Encode(mat.NewDense(1, 1, []float64{0}))
		for k := 0; k < 3; k++ {
			assert.InDelta(t, 0, out.At(0, 2*k), 1e-15)   // sin
			assert.InDelta(t, 1, out.At(0, 2*k+1), 1e-15) // cos
		}
	})

	t.Run("frequencies are octave spaced", func(t *testing.T) {
		t.Parallel()
		e := NewFrequencyEncoding(1, 2)
		x := 0.3
		out := e.Encode(mat.NewDense(1, 1, []float64{x}))
		assert.InDelta(t, math.Sin(math.Pi*x), out.At(0, 0), 1e-15)
		assert.InDelta(t, math.Sin(2*math.Pi*x), out.At(0, 2), 1e-15)
	})
}

func TestSHEncoding(t *testing.T) {
	t.Parallel()

	t.Run("degree four has sixteen components", func(t *testing.T) {
		t.Parallel()
		e := NewSHEncoding(4)
		assert.Equal(t, 16, e.OutDim())
		assert.Equal(t, 3, e.InDim())
	})

	t.Run("constant and linear bands", func(t *testing.T) {
		t.Parallel()
		e := NewSHEncoding(4)
		// Direction (0,0,1) remapped to [0,1] per component.
		out := e.Encode(mat.NewDense(1, 3, []float64{0.5, 0.5, 1}))
		assert.InDelta(t, 0.28209479177387814, out.At(0, 0), 1e-15)
		assert.InDelta(t, 0, out.At(0, 1), 1e-12)                  // y band
		assert.InDelta(t, 0.4886025119029199, out.At(0, 2), 1e-12) // z band
		assert.InDelta(t, 0, out.At(0, 3), 1e-12)                  // x band
	})

	t.Run("rejects unsupported degree", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { NewSHEncoding(5) })
	})
}

func TestHashGridEncoding(t *testing.T) {
	t.Parallel()

	cfg := HashGridConfig{
		InDim:            3,
		NumLevels:        4,
		FeaturesPerLevel: 2,
		Log2HashmapSize:  12,
		BaseResolution:   16,
		MaxResolution:    128,
	}

	t.Run("growth factor interpolates resolutions geometrically", func(t *testing.T) {
		t.Parallel()
		e := NewHashGridEncoding(cfg, rand.New(rand.NewSource(1)))
		want := math.Exp((math.Log(128) - math.Log(16)) / 3)
		assert.InDelta(t, want, e.GrowthFactor(), 1e-12)

		res := e.LevelResolutions()
		require.Len(t, res, 4)
		assert.Equal(t, 16, res[0])
		assert.Equal(t, 128, res[3])
	})

	t.Run("output dim is levels times features", func(t *testing.T) {
		t.Parallel()
		e := NewHashGridEncoding(cfg, rand.New(rand.NewSource(1)))
		assert.Equal(t, 8, e.OutDim())
		out := e.Encode(mat.NewDense(3, 3, nil))
		r, c := out.Dims()
		assert.Equal(t, 3, r)
		assert.Equal(t, 8, c)
	})

	t.Run("deterministic for a fixed seed", func(t *testing.T) {
		t.Parallel()
		a := NewHashGridEncoding(cfg, rand.New(rand.NewSource(7)))
		b := NewHashGridEncoding(cfg, rand.New(rand.NewSource(7)))
		x := mat.NewDense(2, 3, []float64{0.25, 0.5, 0.75, 0.1, 0.9, 0.3})
		assert.True(t, mat.Equal(a.Encode(x), b.Encode(x)))
	})

	t.Run("features stay within interpolated table range", func(t *testing.T) {
		t.Parallel()
		e := NewHashGridEncoding(cfg, rand.New(rand.NewSource(3)))
		out := e.Encode(mat.NewDense(1, 3, []float64{0.4, 0.6, 0.2}))
		_, c := out.Dims()
		for j := 0; j < c; j++ {
			// Convex combination of corner features, each within the
			// initialization scale.
			assert.LessOrEqual(t, math.Abs(out.At(0, j)), 1e-4)
		}
	})

	t.Run("distinct points produce distinct features", func(t *testing.T) {
		t.Parallel()
		e := NewHashGridEncoding(cfg, rand.New(rand.NewSource(5)))
		a := e.Encode(mat.NewDense(1, 3, []float64{0.1, 0.1, 0.1}))
		b := e.Encode(mat.NewDense(1, 3, []float64{0.9, 0.9, 0.9}))
		assert.False(t, mat.Equal(a, b))
	})

	t.Run("four dimensional input", func(t *testing.T) {
		t.Parallel()
		cfg4 := cfg
		cfg4.InDim = 4
		e := NewHashGridEncoding(cfg4, rand.New(rand.NewSource(1)))
		out := e.Encode(mat.NewDense(2, 4, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8}))
		r, c := out.Dims()
		assert.Equal(t, 2, r)
		assert.Equal(t, 8, c)
	})
}
