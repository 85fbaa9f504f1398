package optimizer

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/backdroplabs/backdrop/internal/global"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const historyKey = "history"

// LogEntry is one line of the optimization history, newest first.
type LogEntry struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	FileSize    int       `json:"file_size"`
	ElapsedMs   int64     `json:"elapsed_ms"`
	DesktopSize int       `json:"desktop_size"`
	MobileSize  int       `json:"mobile_size"`
	Timestamp   time.Time `json:"timestamp"`
}

// History is the bounded log of successful runs, mirrored to the store after
// every mutation. Persistence is best effort: a store failure is logged and
// the in-memory log keeps going.
type History struct {
	gCtx global.Context

	mtx     sync.Mutex
	entries []LogEntry
}

func NewHistory(gCtx global.Context) *History {
	h := &History{gCtx: gCtx}
	h.load()

	return h
}

func (h *History) limit() int {
	limit := h.gCtx.Config().History.Limit
	if limit <= 0 {
		limit = 20
	}

	return limit
}

func (h *History) load() {
	value, ok, err := h.gCtx.Inst().Store.Get(historyKey)
	if err != nil {
		zap.S().Warnw("failed to load history",
			"error", err,
		)

		return
	}

	if !ok {
		return
	}

	entries := []LogEntry{}
	if err := json.Unmarshal([]byte(value), &entries); err != nil {
		// Malformed snapshots are dropped rather than guessed at.
		zap.S().Warnw("discarding malformed history",
			"error", err,
		)

		return
	}

	if len(entries) > h.limit() {
		entries = entries[:h.limit()]
	}

	h.entries = entries
}

func (h *History) Append(input Input, report *Report) {
	entry := LogEntry{
		ID:          uuid.New().String(),
		FileName:    input.Name,
		FileSize:    input.Size(),
		ElapsedMs:   report.ElapsedMs,
		DesktopSize: report.Desktop.Size,
		MobileSize:  report.Mobile.Size,
		Timestamp:   report.FinishedAt,
	}

	h.mtx.Lock()
	defer h.mtx.Unlock()

	h.entries = append([]LogEntry{entry}, h.entries...)
	if len(h.entries) > h.limit() {
		h.entries = h.entries[:h.limit()]
	}

	h.persist()
}

func (h *History) Clear() {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	h.entries = []LogEntry{}
	h.persist()
}

func (h *History) Entries() []LogEntry {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	entries := make([]LogEntry, len(h.entries))
	copy(entries, h.entries)

	return entries
}

// persist mirrors the log to the store. Callers hold the mutex.
func (h *History) persist() {
	data, err := json.Marshal(h.entries)
	if err != nil {
		zap.S().Warnw("failed to marshal history",
			"error", err,
		)

		return
	}

	if err := h.gCtx.Inst().Store.Set(historyKey, string(data)); err != nil {
		zap.S().Warnw("failed to persist history",
			"error", err,
		)
	}
}
