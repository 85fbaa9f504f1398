package optimizer

import "math"

// Kind names one of the two fixed render targets.
type Kind string

const (
	KindDesktop Kind = "desktop"
	KindMobile  Kind = "mobile"
)

// Input is one uploaded photo as handed to Optimize. MediaType is the
// declared type and may be empty or lying; classification re-checks it
// against Name and the payload bytes.
type Input struct {
	Name      string
	MediaType string
	Data      []byte
}

func (i Input) Size() int {
	return len(i.Data)
}

// Spec is the resolved target for one variant: the width ceiling and the
// JPEG quality on the (0,1] scale.
type Spec struct {
	TargetWidth int
	Quality     float64
}

// jpegQuality maps the fractional quality onto the encoder's 1..100 scale.
func (s Spec) jpegQuality() int {
	q := int(math.Round(s.Quality * 100))
	if q < 1 {
		q = 1
	} else if q > 100 {
		q = 100
	}

	return q
}

// Overrides carries optional per-request knobs. A zero field means "keep the
// configured default"; only positive values replace it.
type Overrides struct {
	DesktopWidth   int
	DesktopQuality float64
	MobileWidth    int
	MobileQuality  float64
}

func (o Overrides) apply(desktop Spec, mobile Spec) (Spec, Spec) {
	if o.DesktopWidth > 0 {
		desktop.TargetWidth = o.DesktopWidth
	}

	if o.DesktopQuality > 0 {
		desktop.Quality = o.DesktopQuality
	}

	if o.MobileWidth > 0 {
		mobile.TargetWidth = o.MobileWidth
	}

	if o.MobileQuality > 0 {
		mobile.Quality = o.MobileQuality
	}

	return desktop, mobile
}
