package field

import "fmt"

// Backend selects which implementation evaluates the field networks.
type Backend string

const (
	// BackendFused evaluates encoding and networks in a single float32
	// pass per stage.
	BackendFused Backend = "fused"
	// BackendReference encodes explicitly and evaluates float64 networks.
	BackendReference Backend = "reference"
)

// WavelengthMode determines where a spectral-channel signal is merged
// into the pipeline. Fixed at construction; it governs the input
// dimensionality of the backbone and head networks.
type WavelengthMode int

const (
	// WavelengthNone disables wavelength injection.
	WavelengthNone WavelengthMode = iota
	// WavelengthBeforeBackbone concatenates the raw per-sample wavelength
	// onto the normalized position before the backbone.
	WavelengthBeforeBackbone
	// WavelengthInsideBackbone is unsupported; construction fails.
	WavelengthInsideBackbone
	// WavelengthAfterBackbone defers density to a dedicated head that
	// consumes backbone features concatenated with encoded wavelengths.
	WavelengthAfterBackbone
)

// String returns the mode name used in configuration and logs.
func (m WavelengthMode) String() string {
	switch m {
	case WavelengthNone:
		return "none"
	case WavelengthBeforeBackbone:
		return "before_backbone"
	case WavelengthInsideBackbone:
		return "inside_backbone"
	case WavelengthAfterBackbone:
		return "after_backbone"
	}
	return fmt.Sprintf("wavelength_mode(%d)", int(m))
}

// Hash-grid constants shared by both backends.
const (
	baseGridResolution = 16
	featuresPerLevel   = 2
)

// Config holds the construction-time configuration of a compound field.
type Config struct {
	NumImages int `json:"num_images"`

	// Backbone network and hash grid.
	NumLayers       int `json:"num_layers"`
	HiddenDim       int `json:"hidden_dim"`
	GeoFeatDim      int `json:"geo_feat_dim"`
	NumLevels       int `json:"num_levels"`
	MaxRes          int `json:"max_res"`
	Log2HashmapSize int `json:"log2_hashmap_size"`

	// Head networks.
	NumLayersDensity   int `json:"num_layers_density"`
	NumLayersColor     int `json:"num_layers_color"`
	NumLayersTransient int `json:"num_layers_transient"`
	HiddenDimDensity   int `json:"hidden_dim_density"`
	HiddenDimColor     int `json:"hidden_dim_color"`
	HiddenDimTransient int `json:"hidden_dim_transient"`

	// Embeddings.
	AppearanceEmbeddingDim        int  `json:"appearance_embedding_dim"`
	TransientEmbeddingDim         int  `json:"transient_embedding_dim"`
	UseAverageAppearanceEmbedding bool `json:"use_average_appearance_embedding"`

	// Optional heads.
	UseTransientEmbedding bool `json:"use_transient_embedding"`
	UseSemantics          bool `json:"use_semantics"`
	NumSemanticClasses    int  `json:"num_semantic_classes"`
	UsePredNormals        bool `json:"use_pred_normals"`

	// Output channels.
	NumColorChannels   int `json:"num_color_channels"`
	NumDensityChannels int `json:"num_density_channels"`

	// Wavelength injection.
	WavelengthMode     WavelengthMode `json:"wavelength_mode"`
	NumWavelengthFreqs int            `json:"num_wavelength_freqs"`
	// ApplyPreDensityRectify rectifies the backbone output before the
	// wavelength concat under after-backbone injection.
	ApplyPreDensityRectify bool `json:"apply_pre_density_rectify"`

	Backend Backend `json:"backend"`
	Seed    int64   `json:"seed"`

	// Exactly one of Bounds and Distortion is active: when Distortion is
	// set, Bounds is ignored.
	Bounds     SceneBounds       `json:"bounds"`
	Distortion SpatialDistortion `json:"-"`
}

// DefaultConfig returns the canonical field configuration.
func DefaultConfig() Config {
	return Config{
		NumImages:              1,
		NumLayers:              2,
		HiddenDim:              64,
		GeoFeatDim:             15,
		NumLevels:              16,
		MaxRes:                 2048,
		Log2HashmapSize:        19,
		NumLayersDensity:       3,
		NumLayersColor:         3,
		NumLayersTransient:     2,
		HiddenDimDensity:       64,
		HiddenDimColor:         64,
		HiddenDimTransient:     64,
		AppearanceEmbeddingDim: 32,
		TransientEmbeddingDim:  16,
		NumSemanticClasses:     100,
		NumColorChannels:       3,
		NumDensityChannels:     1,
		WavelengthMode:         WavelengthNone,
		NumWavelengthFreqs:     2,
		Backend:                BackendFused,
		Seed:                   1,
		Bounds:                 SceneBounds{Min: [3]float64{-1, -1, -1}, Max: [3]float64{1, 1, 1}},
	}
}

// Validate enforces the construction-time invariants. It runs before any
// parameter is allocated.
func (c Config) Validate() error {
	switch c.WavelengthMode {
	case WavelengthNone, WavelengthBeforeBackbone, WavelengthAfterBackbone:
	case WavelengthInsideBackbone:
		return fmt.Errorf("field: wavelength mode %s is not supported", c.WavelengthMode)
	default:
		return fmt.Errorf("field: unknown wavelength mode %s", c.WavelengthMode)
	}
	if c.WavelengthMode == WavelengthAfterBackbone && (c.UseTransientEmbedding || c.UseSemantics || c.UsePredNormals) {
		return fmt.Errorf("field: transient, semantics and normals heads require a plain geo feature, incompatible with wavelength mode %s", c.WavelengthMode)
	}
	if c.NumImages <= 0 {
		return fmt.Errorf("field: num_images must be positive, got %d", c.NumImages)
	}
	if c.GeoFeatDim <= 0 || c.HiddenDim <= 0 || c.NumLayers <= 0 {
		return fmt.Errorf("field: invalid backbone dims (geo=%d hidden=%d layers=%d)", c.GeoFeatDim, c.HiddenDim, c.NumLayers)
	}
	if c.NumLevels <= 0 || c.MaxRes < baseGridResolution || c.Log2HashmapSize <= 0 {
		return fmt.Errorf("field: invalid hash grid config (levels=%d max_res=%d log2_size=%d)", c.NumLevels, c.MaxRes, c.Log2HashmapSize)
	}
	if c.NumColorChannels <= 0 || c.NumDensityChannels <= 0 {
		return fmt.Errorf("field: invalid output channels (color=%d density=%d)", c.NumColorChannels, c.NumDensityChannels)
	}
	if c.NumWavelengthFreqs <= 0 {
		return fmt.Errorf("field: num_wavelength_freqs must be positive, got %d", c.NumWavelengthFreqs)
	}
	switch c.Backend {
	case BackendFused, BackendReference, "":
	default:
		return fmt.Errorf("field: unknown backend %q", c.Backend)
	}
	return nil
}
