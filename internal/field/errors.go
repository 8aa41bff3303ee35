package field

import "errors"

// Usage errors: per-call precondition violations, raised immediately and
// never silently defaulted.
var (
	// ErrMissingCameraIndices reports an outputs-stage call without
	// camera indices on the samples.
	ErrMissingCameraIndices = errors.New("camera indices are not provided")

	// ErrMissingWavelengths reports an active wavelength injection mode
	// with no wavelength data on the samples.
	ErrMissingWavelengths = errors.New("wavelengths are not provided")

	// ErrWavelengthSetUnsupported reports the shared-wavelength-set path
	// under before-backbone injection, which is deliberately
	// unimplemented.
	ErrWavelengthSetUnsupported = errors.New("shared wavelength set is not supported before the backbone")

	// ErrPerSampleWavelengthsUnsupported reports per-sample wavelengths
	// under after-backbone injection, which expects a shared set.
	ErrPerSampleWavelengthsUnsupported = errors.New("per-sample wavelengths are not supported after the backbone")

	// ErrMissingDensityEmbedding reports an outputs-stage call without
	// the geo feature tensor from a prior density-stage call.
	ErrMissingDensityEmbedding = errors.New("density embedding is required")
)
