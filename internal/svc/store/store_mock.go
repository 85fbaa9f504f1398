package store

import "sync"

// MockInstance keeps values in memory and can be told to fail, letting tests
// exercise the persistence-is-best-effort paths without touching disk.
type MockInstance struct {
	Err error

	mtx    sync.Mutex
	values map[string]string
}

func NewMock() *MockInstance {
	return &MockInstance{
		values: map[string]string{},
	}
}

func (m *MockInstance) Get(key string) (string, bool, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.Err != nil {
		return "", false, m.Err
	}

	value, ok := m.values[key]

	return value, ok, nil
}

func (m *MockInstance) Set(key string, value string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.Err != nil {
		return m.Err
	}

	m.values[key] = value

	return nil
}
