package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/backdroplabs/backdrop/internal/api"
	"github.com/backdroplabs/backdrop/internal/configure"
	"github.com/backdroplabs/backdrop/internal/global"
	"github.com/backdroplabs/backdrop/internal/health"
	"github.com/backdroplabs/backdrop/internal/monitoring"
	"github.com/backdroplabs/backdrop/internal/optimizer"
	"github.com/backdroplabs/backdrop/internal/svc/converter"
	"github.com/backdroplabs/backdrop/internal/svc/prometheus"
	"github.com/backdroplabs/backdrop/internal/svc/store"
	"github.com/bugsnag/panicwrap"
	"go.uber.org/zap"
)

var (
	Version = "development"
	Unix    = ""
	Time    = "unknown"
	User    = "unknown"
)

func init() {
	debug.SetGCPercent(2000)
	if i, err := strconv.Atoi(Unix); err == nil {
		Time = time.Unix(int64(i), 0).Format(time.RFC3339)
	}
}

func main() {
	config := configure.New()

	exitStatus, err := panicwrap.BasicWrap(func(s string) {
		zap.S().Error("panic: ", s)
	})
	if err != nil {
		zap.S().Errorw("failed to setup panic handler: ",
			"error", err,
		)
		os.Exit(2)
	}

	if exitStatus >= 0 {
		os.Exit(exitStatus)
	}

	if !config.NoHeader {
		zap.S().Info("Backdrop Image Optimizer")
		zap.S().Infof("Version: %s", Version)
		zap.S().Infof("build.Time: %s", Time)
		zap.S().Infof("build.User: %s", User)
	}

	zap.S().Debug("MaxProcs: ", runtime.GOMAXPROCS(0))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	gCtx, cancel := global.WithCancel(global.New(context.Background(), config))

	gCtx.Inst().Prometheus = prometheus.New(prometheus.Options{
		Labels: config.Monitoring.Labels.ToPrometheus(),
	})

	gCtx.Inst().Converter = converter.New(converter.Options{
		Binary:  config.Optimizer.ConvertBinary,
		TempDir: config.Optimizer.TempDir,
		Timeout: time.Second * time.Duration(config.Optimizer.ConvertTimeoutSeconds),
	})

	if !gCtx.Inst().Converter.Available() {
		zap.S().Warnw("conversion binary not found, heic uploads will fail",
			"binary", config.Optimizer.ConvertBinary,
		)
	}

	gCtx.Inst().Store, err = store.New(store.Options{
		Dir: config.Store.Dir,
	})
	if err != nil {
		zap.S().Fatalw("failed to create store",
			"error", err,
		)
	}

	gate := optimizer.NewGate(gCtx, optimizer.New(gCtx), optimizer.NewHistory(gCtx))

	wg := sync.WaitGroup{}

	if gCtx.Config().API.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-api.New(gCtx, gate)
		}()
	}
	if gCtx.Config().Health.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-health.New(gCtx)
		}()
	}
	if gCtx.Config().Monitoring.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-monitoring.New(gCtx)
		}()
	}

	done := make(chan struct{})
	go func() {
		<-sig
		cancel()
		go func() {
			select {
			case <-time.After(time.Minute):
			case <-sig:
			}
			zap.S().Fatal("force shutdown")
		}()

		zap.S().Info("shutting down")

		wg.Wait()

		close(done)
	}()

	zap.S().Info("running")

	<-done

	zap.S().Info("shutdown")
	os.Exit(0)
}
