package optimizer

import "errors"

// Sentinel failures for the optimize pipeline. Callers match them with
// errors.Is; pipeline stages wrap them with stage context via multierr, so
// the sentinel survives the wrapping.
var (
	// ErrUnsupportedInput carries the user-facing message verbatim. It is
	// raised before any decode work happens.
	ErrUnsupportedInput = errors.New("Unsupported file type. Please choose an image file.")

	// ErrConversionFailed covers the pre-conversion of non-native containers
	// such as HEIC, including the converter being unavailable.
	ErrConversionFailed = errors.New("conversion failed")

	// ErrDecodeFailed means the input claimed to be an image but no decoder
	// produced pixels from it.
	ErrDecodeFailed = errors.New("decode failed")

	// ErrInputTooLarge means the declared pixel grid exceeds the configured
	// ceiling. The check runs on the header, before the raster is
	// materialized.
	ErrInputTooLarge = errors.New("input image is too large")

	// ErrInvalidDimensions means a decode succeeded but reported a zero or
	// negative pixel grid.
	ErrInvalidDimensions = errors.New("invalid image dimensions")

	// ErrSurfaceUnavailable means a render target could not be acquired.
	ErrSurfaceUnavailable = errors.New("drawing surface unavailable")

	// ErrEncodingFailed means a variant rendered but could not be encoded
	// into a non-empty blob.
	ErrEncodingFailed = errors.New("encoding failed")

	// ErrSuperseded tells a caller that a newer request finished first and
	// its own outcome was discarded without being applied.
	ErrSuperseded = errors.New("request superseded by a newer one")
)
