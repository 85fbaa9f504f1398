package optimizer

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"testing"

	"github.com/backdroplabs/backdrop/internal/configure"
	"github.com/backdroplabs/backdrop/internal/global"
	"github.com/backdroplabs/backdrop/internal/svc/converter"
	"github.com/backdroplabs/backdrop/internal/svc/prometheus"
	"github.com/backdroplabs/backdrop/internal/svc/store"
)

func testContext(t *testing.T) (global.Context, *converter.MockInstance, *store.MockInstance) {
	t.Helper()

	config := &configure.Config{}
	config.Optimizer.Desktop = configure.VariantConfig{Width: 1920, Quality: 0.8}
	config.Optimizer.Mobile = configure.VariantConfig{Width: 720, Quality: 0.7}
	config.History.Limit = 20

	gCtx := global.New(context.Background(), config)

	conv := converter.NewMock()
	st := store.NewMock()

	gCtx.Inst().Converter = conv
	gCtx.Inst().Store = st
	gCtx.Inst().Prometheus = prometheus.New(prometheus.Options{})

	return gCtx, conv, st
}

// testImage renders a gradient so encoded outputs have realistic entropy.
func testImage(width int, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / width),
				G: uint8((y * 255) / height),
				B: 0x80,
				A: 0xff,
			})
		}
	}

	return img
}

func encodeImage(t *testing.T, img image.Image, enc func(w io.Writer, img image.Image) error) []byte {
	t.Helper()

	buf := bytes.Buffer{}
	if err := enc(&buf, img); err != nil {
		t.Fatal("failed to encode test image: ", err)
	}

	return buf.Bytes()
}

func pngImage(t *testing.T, width int, height int) []byte {
	return encodeImage(t, testImage(width, height), png.Encode)
}

func jpegImage(t *testing.T, width int, height int) []byte {
	return encodeImage(t, testImage(width, height), func(w io.Writer, img image.Image) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	})
}
