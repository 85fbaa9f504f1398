package optimizer

import (
	"image"
	"image/jpeg"
	"io"

	"golang.org/x/image/draw"
)

// Rasterizer hands out drawing surfaces sized for one variant. The standard
// implementation is backed by an RGBA raster; tests swap in failing or
// instrumented ones.
type Rasterizer interface {
	Surface(width int, height int) (Surface, error)
}

// Surface is one render target: draw the source into it, then encode what
// was drawn.
type Surface interface {
	Draw(src image.Image)
	Encode(w io.Writer, quality int) error
}

type stdRasterizer struct{}

// NewRasterizer returns the RGBA-backed rasterizer used outside of tests.
func NewRasterizer() Rasterizer {
	return stdRasterizer{}
}

func (stdRasterizer) Surface(width int, height int) (Surface, error) {
	return &rgbaSurface{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
	}, nil
}

type rgbaSurface struct {
	img *image.RGBA
}

// Draw scales the source onto the surface with Catmull-Rom resampling, the
// slowest and best-looking of the x/image kernels.
func (s *rgbaSurface) Draw(src image.Image) {
	draw.CatmullRom.Scale(s.img, s.img.Bounds(), src, src.Bounds(), draw.Over, nil)
}

func (s *rgbaSurface) Encode(w io.Writer, quality int) error {
	return jpeg.Encode(w, s.img, &jpeg.Options{Quality: quality})
}
