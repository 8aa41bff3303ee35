package field

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/lumen-data/radiance.field/internal/field/encoding"
	"github.com/lumen-data/radiance.field/internal/field/nn"
)

// pipeline holds the component graph shared by both backends. Network
// fields carry either explicit float64 or fused float32 implementations;
// the composition logic is identical.
type pipeline struct {
	cfg      Config
	training bool

	directionEnc  *encoding.SHEncoding
	positionEnc   *encoding.FrequencyEncoding
	wavelengthEnc *encoding.FrequencyEncoding

	appearance   *nn.Embedding
	transientEmb *nn.Embedding

	base         nn.Network
	densityHead  nn.Network
	colorHead    nn.Network
	transientNet nn.Network
	semanticsNet nn.Network
	normalsNet   nn.Network

	transientHeads map[OutputName]*fieldHead
	semanticsHead  *fieldHead
	normalsHead    *fieldHead
}

// SetTraining toggles training mode.
func (p *pipeline) SetTraining(training bool) { p.training = training }

// Config returns the construction configuration.
func (p *pipeline) Config() Config { return p.cfg }

// normalizePositions maps raw positions into the unit domain: contraction
// followed by the fixed (x+2)/4 remap when a distortion is configured,
// min-max box normalization otherwise.
func (p *pipeline) normalizePositions(raw *mat.Dense) *mat.Dense {
	if p.cfg.Distortion != nil {
		out := p.cfg.Distortion.Contract(raw)
		applyElem(out, func(v float64) float64 { return (v + 2) / 4 })
		return out
	}
	return p.cfg.Bounds.Normalize(raw)
}

// GetDensity runs the spatial normalizer and backbone, returning densities
// and the geo feature batch for the outputs stage.
func (p *pipeline) GetDensity(samples *RaySamples) (*DensityResult, error) {
	positions := p.normalizePositions(samples.Positions)
	n, _ := positions.Dims()

	input := positions
	if p.cfg.WavelengthMode == WavelengthBeforeBackbone {
		switch {
		case samples.Wavelengths != nil:
			if len(samples.Wavelengths) != n {
				return nil, fmt.Errorf("field: %d wavelengths for %d samples", len(samples.Wavelengths), n)
			}
			wl := mat.NewDense(n, 1, append([]float64(nil), samples.Wavelengths...))
			input = hcat(positions, wl)
		case samples.WavelengthSet != nil:
			return nil, ErrWavelengthSetUnsupported
		default:
			return nil, ErrMissingWavelengths
		}
	}

	h := p.base.Forward(input)

	if p.cfg.WavelengthMode == WavelengthAfterBackbone {
		geo, err := p.wavelengthAugmentedFeatures(samples, h)
		if err != nil {
			return nil, err
		}
		density := rectifyDensity(p.densityHead.Forward(geo))
		return &DensityResult{Density: density, GeoFeatures: geo, Positions: positions}, nil
	}

	dc := p.cfg.NumDensityChannels
	logits := mat.DenseCopyOf(h.Slice(0, n, 0, dc))
	geo := mat.DenseCopyOf(h.Slice(0, n, dc, dc+p.cfg.GeoFeatDim))
	applyElem(geo, nn.Sigmoid)
	return &DensityResult{Density: rectifyDensity(logits), GeoFeatures: geo, Positions: positions}, nil
}

// wavelengthAugmentedFeatures broadcasts the backbone output across the
// shared wavelength set and appends the encoded wavelength per pair,
// producing the squashed geo feature consumed by the density head and the
// outputs stage.
func (p *pipeline) wavelengthAugmentedFeatures(samples *RaySamples, h *mat.Dense) (*mat.Dense, error) {
	if samples.Wavelengths != nil {
		return nil, ErrPerSampleWavelengthsUnsupported
	}
	if len(samples.WavelengthSet) == 0 {
		return nil, ErrMissingWavelengths
	}
	if p.cfg.ApplyPreDensityRectify {
		applyElem(h, nn.ReLU)
	}

	n, geoDim := h.Dims()
	w := len(samples.WavelengthSet)
	wl := mat.NewDense(w, 1, append([]float64(nil), samples.WavelengthSet...))
	wenc := p.wavelengthEnc.Encode(wl)

	out := mat.NewDense(n*w, geoDim+p.wavelengthEnc.OutDim(), nil)
	for i := 0; i < n; i++ {
		for k := 0; k < w; k++ {
			row := out.RawRowView(i*w + k)
			copy(row, h.RawRowView(i))
			copy(row[geoDim:], wenc.RawRowView(k))
		}
	}
	applyElem(out, nn.Sigmoid)
	return out, nil
}

// GetOutputs evaluates the enabled heads against a prior density-stage geo
// feature batch.
func (p *pipeline) GetOutputs(samples *RaySamples, densityEmbedding *mat.Dense) (FieldOutputs, error) {
	if densityEmbedding == nil {
		return nil, ErrMissingDensityEmbedding
	}
	// Camera indices are required in every mode. At inference they do not
	// feed the lookup, but their absence is still a caller error rather
	// than an implicit single-camera default.
	if samples.CameraIndices == nil {
		return nil, ErrMissingCameraIndices
	}
	n, _ := samples.Directions.Dims()
	outputs := FieldOutputs{}

	d := p.directionEnc.Encode(normalizedDirections(samples.Directions))

	appearance, err := p.resolveAppearance(samples, n)
	if err != nil {
		return nil, err
	}

	if p.transientNet != nil && p.training {
		transient, err := p.transientEmb.Lookup(samples.CameraIndices)
		if err != nil {
			return nil, err
		}
		x := p.transientNet.Forward(hcat(densityEmbedding, transient))
		for name, head := range p.transientHeads {
			outputs[name] = head.forward(x)
		}
	}

	if p.semanticsNet != nil {
		// Isolation copy: nothing propagates from the semantics branch
		// back into the shared geo feature.
		detached := mat.DenseCopyOf(densityEmbedding)
		outputs[OutputSemantics] = p.semanticsHead.forward(p.semanticsNet.Forward(detached))
	}

	if p.normalsNet != nil {
		penc := p.positionEnc.Encode(samples.Positions)
		normals := p.normalsHead.forward(p.normalsNet.Forward(hcat(penc, densityEmbedding)))
		normalizeRows(normals)
		outputs[OutputPredNormals] = normals
	}

	var h *mat.Dense
	if p.cfg.WavelengthMode == WavelengthAfterBackbone {
		rows, _ := densityEmbedding.Dims()
		if n == 0 || rows%n != 0 {
			return nil, fmt.Errorf("field: density embedding has %d rows for %d samples", rows, n)
		}
		h = hcatBroadcast(d, densityEmbedding, appearance, rows/n)
	} else {
		h = hcat(d, densityEmbedding, appearance)
	}
	outputs[OutputRGB] = p.colorHead.Forward(h)
	return outputs, nil
}

// resolveAppearance looks up per-image appearance embeddings during
// training. At inference the true per-image latent is unavailable, so a
// shape-compatible stand-in is substituted: the table mean when averaging
// is enabled, zeros otherwise.
func (p *pipeline) resolveAppearance(samples *RaySamples, n int) (*mat.Dense, error) {
	if p.training {
		if len(samples.CameraIndices) != n {
			return nil, fmt.Errorf("field: %d camera indices for %d samples", len(samples.CameraIndices), n)
		}
		return p.appearance.Lookup(samples.CameraIndices)
	}
	out := mat.NewDense(n, p.cfg.AppearanceEmbeddingDim, nil)
	if p.cfg.UseAverageAppearanceEmbedding {
		mean := p.appearance.Mean()
		for i := 0; i < n; i++ {
			out.SetRow(i, mean)
		}
	}
	return out, nil
}

// Forward runs both stages and merges density into the output mapping.
func (p *pipeline) Forward(samples *RaySamples) (FieldOutputs, error) {
	res, err := p.GetDensity(samples)
	if err != nil {
		return nil, err
	}
	outputs, err := p.GetOutputs(samples, res.GeoFeatures)
	if err != nil {
		return nil, err
	}
	outputs[OutputDensity] = res.Density
	return outputs, nil
}
