package field

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/lumen-data/radiance.field/internal/field/encoding"
	"github.com/lumen-data/radiance.field/internal/field/nn"
)

// Field maps ray samples to volumetric density and per-head appearance
// outputs in two stages. GetDensity runs the backbone alone so an
// integrator can decide whether the appearance heads are worth evaluating;
// GetOutputs reuses the returned geo feature without recomputing the
// backbone.
//
// Forward passes are stateless and safe for concurrent use on one
// instance; SetTraining is not and must be serialized by the caller.
type Field interface {
	// GetDensity computes non-negative densities and the geo feature
	// batch consumed by the output heads.
	GetDensity(samples *RaySamples) (*DensityResult, error)

	// GetOutputs evaluates the enabled output heads against the geo
	// feature batch of a prior GetDensity call.
	GetOutputs(samples *RaySamples, densityEmbedding *mat.Dense) (FieldOutputs, error)

	// Forward runs both stages and merges density into the output
	// mapping.
	Forward(samples *RaySamples) (FieldOutputs, error)

	// SetTraining toggles training mode, which controls embedding
	// resolution and the transient heads.
	SetTraining(training bool)

	// Config returns the construction configuration.
	Config() Config
}

// DensityResult is the density-stage output. Positions carries the
// normalized sample locations as an explicit return value so callers can
// run gradient queries against them; the field keeps no per-call state.
type DensityResult struct {
	// Density is non-negative, NumDensityChannels wide, with one row per
	// sample (or per sample-wavelength pair under after-backbone
	// injection).
	Density *mat.Dense
	// GeoFeatures feeds the output heads; entries are in [0,1].
	GeoFeatures *mat.Dense
	// Positions holds the normalized sample locations.
	Positions *mat.Dense
}

// FusedField evaluates the pipeline with fused float32 operators: the
// hash-grid encoding and backbone run as one call, heads as fully-fused
// float32 networks.
type FusedField struct {
	pipeline
}

// ReferenceField evaluates the pipeline with an explicit hash-grid
// encoding step and float64 networks. It exists as the slow equivalent of
// FusedField for verification.
type ReferenceField struct {
	pipeline
}

// New constructs the field implementation selected by cfg.Backend.
func New(cfg Config) (Field, error) {
	if cfg.Backend == BackendReference {
		return NewReferenceField(cfg)
	}
	return NewFusedField(cfg)
}

// NewFusedField constructs the fused float32 implementation.
func NewFusedField(cfg Config) (*FusedField, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, raw := buildPipeline(cfg)
	p.base = nn.NewFusedEncMLP(raw.grid, raw.base)
	p.colorHead = nn.NewFusedMLPFrom(raw.color)
	if raw.density != nil {
		p.densityHead = nn.NewFusedMLPFrom(raw.density)
	}
	if raw.transientNet != nil {
		p.transientNet = nn.NewFusedMLPFrom(raw.transientNet)
	}
	if raw.semanticsNet != nil {
		p.semanticsNet = nn.NewFusedMLPFrom(raw.semanticsNet)
	}
	if raw.normalsNet != nil {
		p.normalsNet = nn.NewFusedMLPFrom(raw.normalsNet)
	}
	wireHeads(p, raw, func(m *nn.MLP) nn.Network { return nn.NewFusedMLPFrom(m) })
	return &FusedField{pipeline: *p}, nil
}

// NewReferenceField constructs the explicit float64 implementation.
func NewReferenceField(cfg Config) (*ReferenceField, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, raw := buildPipeline(cfg)
	p.base = &hashMLP{enc: raw.grid, mlp: raw.base}
	p.colorHead = raw.color
	if raw.density != nil {
		p.densityHead = raw.density
	}
	if raw.transientNet != nil {
		p.transientNet = raw.transientNet
	}
	if raw.semanticsNet != nil {
		p.semanticsNet = raw.semanticsNet
	}
	if raw.normalsNet != nil {
		p.normalsNet = raw.normalsNet
	}
	wireHeads(p, raw, func(m *nn.MLP) nn.Network { return m })
	return &ReferenceField{pipeline: *p}, nil
}

var (
	_ Field = (*FusedField)(nil)
	_ Field = (*ReferenceField)(nil)
)

// hashMLP chains the explicit hash-grid encoding with the float64
// backbone MLP, the reference counterpart of the fused
// encode-and-evaluate operator.
type hashMLP struct {
	enc *encoding.HashGridEncoding
	mlp *nn.MLP
}

func (h *hashMLP) Forward(x *mat.Dense) *mat.Dense { return h.mlp.Forward(h.enc.Encode(x)) }
func (h *hashMLP) InDim() int                      { return h.enc.InDim() }
func (h *hashMLP) OutDim() int                     { return h.mlp.OutDim() }

var _ nn.Network = (*hashMLP)(nil)

// rawNetworks is the shared float64 parameterization both backends are
// built from; a common seeded construction order keeps their parameters
// identical.
type rawNetworks struct {
	grid         *encoding.HashGridEncoding
	base         *nn.MLP
	density      *nn.MLP // after-backbone injection only
	color        *nn.MLP
	transientNet *nn.MLP
	semanticsNet *nn.MLP
	normalsNet   *nn.MLP

	uncertaintyHead      *nn.MLP
	transientRGBHead     *nn.MLP
	transientDensityHead *nn.MLP
	semanticsHead        *nn.MLP
	normalsHead          *nn.MLP
}

// buildPipeline allocates encoders, embeddings and the float64 networks.
// All derived dimensionalities are resolved here, once; the per-call paths
// never recompute them.
func buildPipeline(cfg Config) (*pipeline, *rawNetworks) {
	rng := rand.New(rand.NewSource(cfg.Seed))

	p := &pipeline{
		cfg:           cfg,
		directionEnc:  encoding.NewSHEncoding(4),
		positionEnc:   encoding.NewFrequencyEncoding(3, 2),
		wavelengthEnc: encoding.NewFrequencyEncoding(1, cfg.NumWavelengthFreqs),
	}
	raw := &rawNetworks{}

	baseIn := 3
	if cfg.WavelengthMode == WavelengthBeforeBackbone {
		baseIn = 4
	}
	baseOut := cfg.GeoFeatDim + cfg.NumDensityChannels
	if cfg.WavelengthMode == WavelengthAfterBackbone {
		baseOut = cfg.GeoFeatDim
	}

	raw.grid = encoding.NewHashGridEncoding(encoding.HashGridConfig{
		InDim:            baseIn,
		NumLevels:        cfg.NumLevels,
		FeaturesPerLevel: featuresPerLevel,
		Log2HashmapSize:  cfg.Log2HashmapSize,
		BaseResolution:   baseGridResolution,
		MaxResolution:    cfg.MaxRes,
	}, rng)
	raw.base = nn.NewMLP(raw.grid.OutDim(), baseOut, cfg.HiddenDim, cfg.NumLayers, nn.ActivationNone, rng)

	p.appearance = nn.NewEmbedding(cfg.NumImages, cfg.AppearanceEmbeddingDim, rng)

	if cfg.UseTransientEmbedding {
		p.transientEmb = nn.NewEmbedding(cfg.NumImages, cfg.TransientEmbeddingDim, rng)
		raw.transientNet = nn.NewMLP(cfg.GeoFeatDim+cfg.TransientEmbeddingDim, cfg.HiddenDimTransient,
			cfg.HiddenDimTransient, cfg.NumLayersTransient, nn.ActivationNone, rng)
		raw.uncertaintyHead = linearLayer(cfg.HiddenDimTransient, 1, rng)
		raw.transientRGBHead = linearLayer(cfg.HiddenDimTransient, cfg.NumColorChannels, rng)
		raw.transientDensityHead = linearLayer(cfg.HiddenDimTransient, cfg.NumDensityChannels, rng)
	}

	if cfg.UseSemantics {
		raw.semanticsNet = nn.NewMLP(cfg.GeoFeatDim, cfg.HiddenDimTransient, 64, 2, nn.ActivationNone, rng)
		raw.semanticsHead = linearLayer(cfg.HiddenDimTransient, cfg.NumSemanticClasses, rng)
	}

	if cfg.UsePredNormals {
		raw.normalsNet = nn.NewMLP(cfg.GeoFeatDim+p.positionEnc.OutDim(), cfg.HiddenDimTransient, 64, 3, nn.ActivationNone, rng)
		raw.normalsHead = linearLayer(cfg.HiddenDimTransient, 3, rng)
	}

	if cfg.WavelengthMode == WavelengthAfterBackbone {
		raw.density = nn.NewMLP(cfg.GeoFeatDim+p.wavelengthEnc.OutDim(), cfg.NumDensityChannels,
			cfg.HiddenDimDensity, cfg.NumLayersDensity, nn.ActivationNone, rng)
	}

	colorIn := p.directionEnc.OutDim() + cfg.GeoFeatDim + cfg.AppearanceEmbeddingDim
	if cfg.WavelengthMode == WavelengthAfterBackbone {
		colorIn += p.wavelengthEnc.OutDim()
	}
	// Monochromatic output under wavelength injection: one spectral
	// response channel per wavelength.
	colorOut := cfg.NumColorChannels
	if cfg.WavelengthMode != WavelengthNone {
		colorOut = 1
	}
	raw.color = nn.NewMLP(colorIn, colorOut, cfg.HiddenDimColor, cfg.NumLayersColor, nn.ActivationSigmoid, rng)

	return p, raw
}

func linearLayer(in, out int, rng *rand.Rand) *nn.MLP {
	return nn.NewMLP(in, out, 0, 1, nn.ActivationNone, rng)
}

// wireHeads installs the final projection heads, converting each linear
// layer with conv (identity for the reference backend, float32 truncation
// for the fused one).
func wireHeads(p *pipeline, raw *rawNetworks, conv func(*nn.MLP) nn.Network) {
	if raw.transientNet != nil {
		p.transientHeads = map[OutputName]*fieldHead{
			OutputUncertainty:      {linear: conv(raw.uncertaintyHead), activation: nn.Softplus},
			OutputTransientRGB:     {linear: conv(raw.transientRGBHead), activation: nn.Sigmoid},
			OutputTransientDensity: {linear: conv(raw.transientDensityHead), activation: nn.Softplus},
		}
	}
	if raw.semanticsNet != nil {
		p.semanticsHead = &fieldHead{linear: conv(raw.semanticsHead)}
	}
	if raw.normalsNet != nil {
		p.normalsHead = &fieldHead{linear: conv(raw.normalsHead), activation: nn.Tanh}
	}
}
