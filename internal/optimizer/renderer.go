package optimizer

import (
	"encoding/hex"
	"fmt"
	"image"
	"math"

	"github.com/valyala/bytebufferpool"
	"go.uber.org/multierr"
	"golang.org/x/crypto/sha3"
)

// renderVariant downsizes the decoded raster to one target width, preserving
// aspect ratio, and encodes it as JPEG into a pooled buffer. Sources already
// narrower than the target are re-encoded at their own width; nothing is
// ever upscaled.
func (o *Optimizer) renderVariant(img image.Image, kind Kind, spec Spec) (VariantResult, error) {
	done := o.gCtx.Inst().Prometheus.RenderVariant()
	defer done()

	width := img.Bounds().Dx()
	height := img.Bounds().Dy()

	clamped := spec.TargetWidth
	if clamped > width {
		clamped = width
	}

	if clamped < 1 {
		clamped = 1
	}

	scale := float64(clamped) / float64(width)

	scaledHeight := int(math.Round(float64(height) * scale))
	if scaledHeight < 1 {
		scaledHeight = 1
	}

	surface, err := o.rasterizer.Surface(clamped, scaledHeight)
	if err != nil {
		return VariantResult{}, multierr.Append(ErrSurfaceUnavailable, err)
	}

	surface.Draw(img)

	blob := bytebufferpool.Get()

	if err := surface.Encode(blob, spec.jpegQuality()); err != nil {
		bytebufferpool.Put(blob)

		return VariantResult{}, multierr.Append(ErrEncodingFailed, err)
	}

	if blob.Len() == 0 {
		bytebufferpool.Put(blob)

		return VariantResult{}, multierr.Append(ErrEncodingFailed, fmt.Errorf("empty %s blob", kind))
	}

	digest := sha3.Sum512(blob.B)

	return VariantResult{
		Width:   clamped,
		Height:  scaledHeight,
		Size:    blob.Len(),
		Quality: spec.Quality,
		SHA3:    hex.EncodeToString(digest[:]),
		blob:    blob,
	}, nil
}
