package optimizer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/backdroplabs/backdrop/container"
	"github.com/backdroplabs/backdrop/internal/global"
	"go.uber.org/multierr"
)

// Optimizer runs the full pipeline for one photo: classify, convert if the
// container is non-native, decode, then render the desktop and mobile
// variants concurrently.
type Optimizer struct {
	gCtx global.Context

	rasterizer Rasterizer
	dec        decoder
}

func New(gCtx global.Context) *Optimizer {
	return &Optimizer{
		gCtx:       gCtx,
		rasterizer: NewRasterizer(),
		dec:        rasterDecoder{gCtx},
	}
}

func (o *Optimizer) Optimize(ctx context.Context, input Input, overrides Overrides) (*Report, error) {
	stop := o.gCtx.Inst().Prometheus.StartOptimize()

	success := false
	defer func() {
		stop(success)
	}()

	startedAt := time.Now()

	// Rejected before any pixel work happens, so a stray text file costs
	// nothing but the classification.
	if !container.IsImage(input.MediaType, input.Name) {
		return nil, ErrUnsupportedInput
	}

	o.gCtx.Inst().Prometheus.InputMediaType(input.MediaType)
	o.gCtx.Inst().Prometheus.TotalBytesIn(input.Size())

	img, err := o.dec.Decode(ctx, input)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("failed at decode input"), err)
	}

	desktopSpec, mobileSpec := o.specs(overrides)

	var (
		wg sync.WaitGroup

		desktop    VariantResult
		mobile     VariantResult
		desktopErr error
		mobileErr  error
	)

	wg.Add(2)

	go func() {
		defer wg.Done()

		desktop, desktopErr = o.renderVariant(img, KindDesktop, desktopSpec)
	}()

	go func() {
		defer wg.Done()

		mobile, mobileErr = o.renderVariant(img, KindMobile, mobileSpec)
	}()

	wg.Wait()

	if desktopErr != nil || mobileErr != nil {
		// A report is all-or-nothing; the surviving blob goes back to the
		// pool instead of leaking.
		desktop.release()
		mobile.release()

		if desktopErr != nil {
			desktopErr = multierr.Append(fmt.Errorf("failed at render desktop variant"), desktopErr)
		}

		if mobileErr != nil {
			mobileErr = multierr.Append(fmt.Errorf("failed at render mobile variant"), mobileErr)
		}

		return nil, multierr.Combine(desktopErr, mobileErr)
	}

	finishedAt := time.Now()

	success = true

	return &Report{
		Original: Original{
			Name:      input.Name,
			MediaType: input.MediaType,
			Width:     img.Bounds().Dx(),
			Height:    img.Bounds().Dy(),
			Size:      input.Size(),
		},
		Desktop:    desktop,
		Mobile:     mobile,
		ElapsedMs:  finishedAt.Sub(startedAt).Milliseconds(),
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}, nil
}

func (o *Optimizer) specs(overrides Overrides) (Spec, Spec) {
	cfg := o.gCtx.Config().Optimizer

	return overrides.apply(
		Spec{TargetWidth: cfg.Desktop.Width, Quality: cfg.Desktop.Quality},
		Spec{TargetWidth: cfg.Mobile.Width, Quality: cfg.Mobile.Quality},
	)
}
