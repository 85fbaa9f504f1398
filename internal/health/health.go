package health

import (
	"github.com/backdroplabs/backdrop/internal/global"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

func New(gCtx global.Context) <-chan struct{} {
	done := make(chan struct{})

	srv := fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			defer func() {
				if err := recover(); err != nil {
					zap.S().Errorw("panic in health",
						"panic", err,
					)
				}
			}()

			converterDown := gCtx.Inst().Converter != nil && !gCtx.Inst().Converter.Available()
			if converterDown {
				zap.S().Warnw("converter is not available")
			}

			storeDown := false

			if gCtx.Inst().Store != nil {
				if _, _, err := gCtx.Inst().Store.Get("health"); err != nil {
					storeDown = true
					zap.S().Warnw("store is not responding",
						"error", err,
					)
				}
			}

			if converterDown || storeDown {
				ctx.SetStatusCode(500)
			}
		},
	}

	go func() {
		defer close(done)
		zap.S().Infow("Health enabled",
			"bind", gCtx.Config().Health.Bind,
		)

		if err := srv.ListenAndServe(gCtx.Config().Health.Bind); err != nil {
			zap.S().Fatalw("failed to bind health",
				"error", err,
			)
		}
	}()

	go func() {
		<-gCtx.Done()

		_ = srv.Shutdown()
	}()

	return done
}
