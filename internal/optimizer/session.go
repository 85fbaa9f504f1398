package optimizer

import (
	"context"
	"sync"

	"github.com/backdroplabs/backdrop/internal/global"
	"go.uber.org/atomic"
)

// Gate serializes what "the result" means when optimize requests overlap.
// Every run takes a token; only the run holding the newest token may install
// its outcome. Anything older is discarded whole, so the served report can
// never mix variants from different uploads.
type Gate struct {
	gCtx      global.Context
	optimizer *Optimizer
	history   *History

	token atomic.Int64

	mtx     sync.Mutex
	current *Report
	lastErr error
}

func NewGate(gCtx global.Context, optimizer *Optimizer, history *History) *Gate {
	return &Gate{
		gCtx:      gCtx,
		optimizer: optimizer,
		history:   history,
	}
}

// Begin claims a new token, instantly staling every run still in flight.
func (g *Gate) Begin() int64 {
	return g.token.Inc()
}

// Run executes the pipeline under a fresh token. A stale run has its report
// released and gets ErrSuperseded regardless of how the pipeline went; the
// real outcome is never surfaced.
func (g *Gate) Run(ctx context.Context, input Input, overrides Overrides) (*Report, error) {
	token := g.Begin()

	report, err := g.optimizer.Optimize(ctx, input, overrides)

	if !g.apply(token, input, report, err) {
		report.Release()

		return nil, ErrSuperseded
	}

	if err != nil {
		return nil, err
	}

	return report, nil
}

func (g *Gate) apply(token int64, input Input, report *Report, err error) bool {
	if g.token.Load() != token {
		g.gCtx.Inst().Prometheus.RequestsSuperseded()

		return false
	}

	g.mtx.Lock()
	defer g.mtx.Unlock()

	// Re-check under the lock; a newer run may have begun since the fast
	// path above.
	if g.token.Load() != token {
		g.gCtx.Inst().Prometheus.RequestsSuperseded()

		return false
	}

	if err != nil {
		// The previous report keeps being served; only the error state
		// changes.
		g.lastErr = err

		return true
	}

	if g.current != nil {
		g.current.Release()
	}

	g.current = report
	g.lastErr = nil

	g.gCtx.Inst().Prometheus.TotalBytesOut(report.Desktop.Size + report.Mobile.Size)

	g.history.Append(input, report)

	return true
}

// WithCurrent runs fn while holding the gate lock, so the report's pooled
// blobs cannot be released mid-read. Both arguments may be nil.
func (g *Gate) WithCurrent(fn func(report *Report, lastErr error)) {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	fn(g.current, g.lastErr)
}

func (g *Gate) History() *History {
	return g.history
}
