package optimizer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/backdroplabs/backdrop/container"
	"github.com/backdroplabs/backdrop/internal/global"
	"github.com/h2non/filetype/matchers"
	"go.uber.org/multierr"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// convertQuality is the JPEG quality used for the intermediate produced from
// non-native containers. It sits high so the real quality knobs are applied
// only once, at variant encode time.
const convertQuality = 0.92

type decoder interface {
	Decode(ctx context.Context, input Input) (image.Image, error)
}

// rasterDecoder turns an accepted input into pixels. Inputs whose declared
// type or extension is HEIC go through the external converter first; the
// resulting blob then takes the same decode path as every native image.
type rasterDecoder struct {
	gCtx global.Context
}

func (d rasterDecoder) Decode(ctx context.Context, input Input) (image.Image, error) {
	data := input.Data

	if container.IsHEIC(input.MediaType, input.Name) {
		done := d.gCtx.Inst().Prometheus.ConvertInput()

		blobs, err := d.gCtx.Inst().Converter.Convert(ctx, data, container.MimeJPEG, convertQuality)

		done()

		if err != nil {
			return nil, multierr.Append(ErrConversionFailed, err)
		}

		if len(blobs) == 0 || len(blobs[0]) == 0 {
			return nil, multierr.Append(ErrConversionFailed, fmt.Errorf("converter returned no frames"))
		}

		// Sequence containers convert to one still per frame; the first
		// frame is the photo.
		data = blobs[0]
	}

	if err := d.checkDimensions(data); err != nil {
		return nil, err
	}

	done := d.gCtx.Inst().Prometheus.DecodeInput()

	img, err := decodeRaster(data)

	done()

	if err != nil {
		return nil, multierr.Append(ErrDecodeFailed, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() < 1 || bounds.Dy() < 1 {
		return nil, ErrInvalidDimensions
	}

	return img, nil
}

// checkDimensions rejects oversized rasters from the header alone, before
// any pixels are allocated. Inputs whose header cannot be read fall through
// to the decoder, which produces the real error.
func (d rasterDecoder) checkDimensions(data []byte) error {
	maxWidth := d.gCtx.Config().Optimizer.MaxWidth
	maxHeight := d.gCtx.Config().Optimizer.MaxHeight

	if maxWidth <= 0 && maxHeight <= 0 {
		return nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	if (maxWidth > 0 && cfg.Width > maxWidth) || (maxHeight > 0 && cfg.Height > maxHeight) {
		return multierr.Append(ErrInputTooLarge, fmt.Errorf("%dx%d exceeds %dx%d", cfg.Width, cfg.Height, maxWidth, maxHeight))
	}

	return nil
}

// fastDecoders maps sniffed containers to their direct decoders so the
// common formats skip the registry scan in image.Decode.
var fastDecoders = map[string]func(io.Reader) (image.Image, error){
	matchers.TypeJpeg.Extension: jpeg.Decode,
	matchers.TypePng.Extension:  png.Decode,
	matchers.TypeGif.Extension:  gif.Decode,
	matchers.TypeWebp.Extension: webp.Decode,
	matchers.TypeBmp.Extension:  bmp.Decode,
	matchers.TypeTiff.Extension: tiff.Decode,
}

func decodeRaster(data []byte) (image.Image, error) {
	var fastErr error

	if decode := fastDecoders[container.Match(data).Extension]; decode != nil {
		img, err := decode(bytes.NewReader(data))
		if err == nil {
			return img, nil
		}

		fastErr = err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, multierr.Append(fastErr, err)
	}

	return img, nil
}
