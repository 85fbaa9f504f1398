package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/backdroplabs/backdrop/internal/global"
	"github.com/backdroplabs/backdrop/internal/optimizer"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

type reportResponse struct {
	Report *optimizer.Report `json:"report"`
	Error  string            `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(gCtx global.Context, gate *optimizer.Gate) <-chan struct{} {
	done := make(chan struct{})

	srv := fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			defer func() {
				if err := recover(); err != nil {
					zap.S().Errorw("panic in api",
						"panic", err,
					)

					ctx.SetStatusCode(fasthttp.StatusInternalServerError)
				}
			}()

			method := string(ctx.Method())
			path := string(ctx.Path())

			switch {
			case method == fasthttp.MethodPost && path == "/optimize":
				handleOptimize(gCtx, gate, ctx)
			case method == fasthttp.MethodGet && path == "/report":
				handleReport(gate, ctx)
			case method == fasthttp.MethodGet && path == "/variant/desktop":
				handleVariant(gate, ctx, optimizer.KindDesktop)
			case method == fasthttp.MethodGet && path == "/variant/mobile":
				handleVariant(gate, ctx, optimizer.KindMobile)
			case method == fasthttp.MethodGet && path == "/history":
				writeJSON(ctx, fasthttp.StatusOK, gate.History().Entries())
			case method == fasthttp.MethodDelete && path == "/history":
				gate.History().Clear()
				ctx.SetStatusCode(fasthttp.StatusNoContent)
			default:
				writeError(ctx, fasthttp.StatusNotFound, "not found")
			}
		},
		MaxRequestBodySize: gCtx.Config().API.MaxUploadBytes,
	}

	go func() {
		defer close(done)
		zap.S().Infow("API enabled",
			"bind", gCtx.Config().API.Bind,
		)

		if err := srv.ListenAndServe(gCtx.Config().API.Bind); err != nil {
			zap.S().Fatalw("failed to bind api",
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

func handleOptimize(gCtx global.Context, gate *optimizer.Gate, ctx *fasthttp.RequestCtx) {
	input, err := parseInput(ctx)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, err.Error())

		return
	}

	report, err := gate.Run(gCtx, input, parseOverrides(ctx))

	switch {
	case err == nil:
		// The gate keeps owning the report; only metadata is serialized
		// here, never the pooled blobs.
		writeJSON(ctx, fasthttp.StatusOK, reportResponse{Report: report})
	case errors.Is(err, optimizer.ErrUnsupportedInput):
		writeError(ctx, fasthttp.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, optimizer.ErrSuperseded):
		writeError(ctx, fasthttp.StatusConflict, err.Error())
	default:
		zap.S().Errorw("optimize failed",
			"name", input.Name,
			"error", err,
		)

		writeError(ctx, fasthttp.StatusUnprocessableEntity, err.Error())
	}
}

func handleReport(gate *optimizer.Gate, ctx *fasthttp.RequestCtx) {
	gate.WithCurrent(func(report *optimizer.Report, lastErr error) {
		resp := reportResponse{Report: report}
		if lastErr != nil {
			resp.Error = lastErr.Error()
		}

		if report == nil && lastErr == nil {
			writeError(ctx, fasthttp.StatusNotFound, "no optimization yet")

			return
		}

		status := fasthttp.StatusOK
		if report == nil {
			status = fasthttp.StatusNotFound
		}

		writeJSON(ctx, status, resp)
	})
}

func handleVariant(gate *optimizer.Gate, ctx *fasthttp.RequestCtx, kind optimizer.Kind) {
	found := false

	gate.WithCurrent(func(report *optimizer.Report, lastErr error) {
		if report == nil {
			return
		}

		variant := &report.Desktop
		if kind == optimizer.KindMobile {
			variant = &report.Mobile
		}

		data := variant.Bytes()
		if len(data) == 0 {
			return
		}

		// Copied into the response buffer while the lock is held, so a
		// concurrent apply cannot recycle the blob mid-read.
		ctx.SetContentType("image/jpeg")
		ctx.Response.Header.Set(fasthttp.HeaderETag, `"`+variant.SHA3+`"`)
		_, _ = ctx.Write(data)

		found = true
	})

	if !found {
		writeError(ctx, fasthttp.StatusNotFound, fmt.Sprintf("no %s variant available", kind))
	}
}

func parseInput(ctx *fasthttp.RequestCtx) (optimizer.Input, error) {
	if form, err := ctx.MultipartForm(); err == nil {
		files := form.File["file"]
		if len(files) == 0 {
			return optimizer.Input{}, fmt.Errorf("missing file field")
		}

		file, err := files[0].Open()
		if err != nil {
			return optimizer.Input{}, fmt.Errorf("unreadable file field")
		}

		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return optimizer.Input{}, fmt.Errorf("unreadable file field")
		}

		return optimizer.Input{
			Name:      files[0].Filename,
			MediaType: files[0].Header.Get(fasthttp.HeaderContentType),
			Data:      data,
		}, nil
	}

	data := ctx.PostBody()
	if len(data) == 0 {
		return optimizer.Input{}, fmt.Errorf("empty body")
	}

	return optimizer.Input{
		Name:      string(ctx.Request.Header.Peek("X-File-Name")),
		MediaType: string(ctx.Request.Header.ContentType()),
		Data:      data,
	}, nil
}

func parseOverrides(ctx *fasthttp.RequestCtx) optimizer.Overrides {
	args := ctx.QueryArgs()

	overrides := optimizer.Overrides{}

	if v, err := args.GetUint("desktop_width"); err == nil {
		overrides.DesktopWidth = v
	}

	if v, err := args.GetUint("mobile_width"); err == nil {
		overrides.MobileWidth = v
	}

	overrides.DesktopQuality = parseQuality(args.Peek("desktop_quality"))
	overrides.MobileQuality = parseQuality(args.Peek("mobile_quality"))

	return overrides
}

func parseQuality(raw []byte) float64 {
	q, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || q <= 0 {
		return 0
	}

	if q > 1 {
		q = 1
	}

	return q
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		zap.S().Errorw("failed to marshal response",
			"error", err,
		)

		ctx.SetStatusCode(fasthttp.StatusInternalServerError)

		return
	}

	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(data)
}

func writeError(ctx *fasthttp.RequestCtx, status int, message string) {
	writeJSON(ctx, status, errorResponse{Error: message})
}
