package collection

import "sync"

// SyncMap is a map guarded by a read/write mutex.
type SyncMap[K comparable, V any] struct {
	m   map[K]V
	mux sync.RWMutex
}

func (m *SyncMap[K, V]) Get(k K) (V, bool) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	v, ok := m.m[k]
	return v, ok
}

func (m *SyncMap[K, V]) Put(k K, v V) {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.m[k] = v
}

// PutIfAbsent stores v unless k is present; it reports whether v was stored.
// fn, when set, runs under the write lock after a successful store.
func (m *SyncMap[K, V]) PutIfAbsent(k K, v V, fn func(size int)) bool {
	m.mux.Lock()
	defer m.mux.Unlock()
	if _, ok := m.m[k]; ok {
		return false
	}
	m.m[k] = v
	if fn != nil {
		fn(len(m.m))
	}
	return true
}

// Delete removes k and reports whether it was present along with the remaining size.
func (m *SyncMap[K, V]) Delete(k K) (V, bool, int) {
	m.mux.Lock()
	defer m.mux.Unlock()
	v, ok := m.m[k]
	if ok {
		delete(m.m, k)
	}
	return v, ok, len(m.m)
}

func (m *SyncMap[K, V]) Len() int {
	m.mux.RLock()
	defer m.mux.RUnlock()
	return len(m.m)
}

// Values returns a snapshot of the stored values.
func (m *SyncMap[K, V]) Values() []V {
	m.mux.RLock()
	defer m.mux.RUnlock()
	result := make([]V, 0, len(m.m))
	for _, v := range m.m {
		result = append(result, v)
	}
	return result
}

// Range iterates over a snapshot so that f may modify the map.
func (m *SyncMap[K, V]) Range(f func(key K, value V) bool) {
	m.mux.RLock()
	snapshot := make(map[K]V, len(m.m))
	for k, v := range m.m {
		snapshot[k] = v
	}
	m.mux.RUnlock()
	for k, v := range snapshot {
		if !f(k, v) {
			return
		}
	}
}

func NewSyncMap[K comparable, V any]() *SyncMap[K, V] {
	return &SyncMap[K, V]{m: make(map[K]V)}
}
