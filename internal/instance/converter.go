package instance

import "context"

// Converter produces natively decodable image blobs from a container format
// the in-process decoders cannot read. A single conversion may yield several
// blobs (multi-frame HEIC bursts); callers take the first. Implementations
// initialize their backing tool once per process and share that load between
// concurrent callers.
type Converter interface {
	Convert(ctx context.Context, data []byte, targetMediaType string, quality float64) ([][]byte, error)
	Available() bool
}
