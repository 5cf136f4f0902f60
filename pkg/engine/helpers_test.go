package engine

import (
	"sync"

	"github.com/jsondocdb/jsondoc/pkg/jsonio"
)

func jsonioPretty() jsonio.PrettyOptions {
	return jsonio.PrettyOptions{}
}

// memoryKeySpace is an in-process host.KeySpace fake for exercising
// Save/Load without a bbolt-backed persist.KeyspaceStore.
type memoryKeySpace struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryKeySpace() *memoryKeySpace {
	return &memoryKeySpace{data: make(map[string][]byte)}
}

func (m *memoryKeySpace) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryKeySpace) Put(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

func (m *memoryKeySpace) Delete(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	delete(m.data, key)
	return ok, nil
}

func (m *memoryKeySpace) Keys() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}
