package field

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headsConfig() Config {
	cfg := testConfig()
	cfg.UseTransientEmbedding = true
	cfg.UseSemantics = true
	cfg.NumSemanticClasses = 10
	cfg.UsePredNormals = true
	return cfg
}

func TestOptionalHeads(t *testing.T) {
	t.Parallel()

	t.Run("training evaluates every enabled head", func(t *testing.T) {
		t.Parallel()
		f := mustField(t, headsConfig())
		f.SetTraining(true)
		samples := testSamples()

		res, err := f.GetDensity(samples)
		require.NoError(t, err)
		outputs, err := f.GetOutputs(samples, res.GeoFeatures)
		require.NoError(t, err)

		require.Len(t, outputs, 6)
		for _, name := range []OutputName{
			OutputRGB, OutputUncertainty, OutputTransientRGB,
			OutputTransientDensity, OutputSemantics, OutputPredNormals,
		} {
			assert.Contains(t, outputs, name)
		}

		r, c := outputs[OutputUncertainty].Dims()
		assert.Equal(t, 4, r)
		assert.Equal(t, 1, c)
		assertAllInRange(t, outputs[OutputUncertainty], 0, math.Inf(1))

		_, c = outputs[OutputTransientRGB].Dims()
		assert.Equal(t, 3, c)
		assertAllInRange(t, outputs[OutputTransientRGB], 0, 1)

		_, c = outputs[OutputTransientDensity].Dims()
		assert.Equal(t, 1, c)
		assertAllInRange(t, outputs[OutputTransientDensity], 0, math.Inf(1))

		_, c = outputs[OutputSemantics].Dims()
		assert.Equal(t, 10, c)

		normals := outputs[OutputPredNormals]
		r, c = normals.Dims()
		assert.Equal(t, 4, r)
		assert.Equal(t, 3, c)
		for i := 0; i < r; i++ {
			norm := 0.0
			for j := 0; j < c; j++ {
				norm += normals.At(i, j) * normals.At(i, j)
			}
			assert.InDelta(t, 1, math.Sqrt(norm), 1e-9)
		}
	})

	t.Run("transient heads are training only", func(t *testing.T) {
		t.Parallel()
		f := mustField(t, headsConfig())
		samples := testSamples()

		res, err := f.GetDensity(samples)
		require.NoError(t, err)
		outputs, err := f.GetOutputs(samples, res.GeoFeatures)
		require.NoError(t, err)

		assert.NotContains(t, outputs, OutputUncertainty)
		assert.NotContains(t, outputs, OutputTransientRGB)
		assert.NotContains(t, outputs, OutputTransientDensity)
		assert.Contains(t, outputs, OutputSemantics)
		assert.Contains(t, outputs, OutputPredNormals)
		assert.Contains(t, outputs, OutputRGB)
	})

	t.Run("transient lookup requires camera indices", func(t *testing.T) {
		t.Parallel()
		cfg := headsConfig()
		cfg.UseSemantics = false
		cfg.UsePredNormals = false
		f := mustField(t, cfg)
		f.SetTraining(true)
		samples := testSamples()
		samples.CameraIndices = nil

		res, err := f.GetDensity(samples)
		require.NoError(t, err)
		_, err = f.GetOutputs(samples, res.GeoFeatures)
		require.ErrorIs(t, err, ErrMissingCameraIndices)
	})
}
