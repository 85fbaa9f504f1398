package converter

import (
	"context"
	"sync"

	"go.uber.org/atomic"
)

// MockInstance is an in-memory stand-in used by tests to script conversion
// outcomes and observe how the optimizer drives the converter.
type MockInstance struct {
	Results     [][]byte
	Err         error
	Unavailable bool

	calls atomic.Int64

	mtx         sync.Mutex
	lastTarget  string
	lastQuality float64
}

func NewMock() *MockInstance {
	return &MockInstance{}
}

func (m *MockInstance) Convert(ctx context.Context, data []byte, targetMediaType string, quality float64) ([][]byte, error) {
	m.calls.Inc()

	m.mtx.Lock()
	m.lastTarget = targetMediaType
	m.lastQuality = quality
	m.mtx.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	return m.Results, nil
}

func (m *MockInstance) Available() bool {
	return !m.Unavailable
}

func (m *MockInstance) Calls() int64 {
	return m.calls.Load()
}

func (m *MockInstance) LastTarget() string {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.lastTarget
}

func (m *MockInstance) LastQuality() float64 {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.lastQuality
}
