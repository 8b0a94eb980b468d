package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache is the subset of LRUCache that callers depend on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Clear()
	Size() int
}

var _ Cache[int] = (*LRUCache[int])(nil)

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps registered caches.
type Manager struct {
	mu      sync.Mutex
	caches  []Cleaner
	stop    chan struct{}
	done    chan struct{}
	running bool
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// StartCleanup sweeps every interval until Stop is called. Calling it twice
// is a no-op.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running || interval <= 0 {
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	m.running = true
	go m.loop(interval, m.stop, m.done)
}

func (m *Manager) loop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.Debug("Expired cache entries removed", "cache_entries", n)
			}
		case <-stop:
			return
		}
	}
}

// Sweep runs one cleanup pass over every registered cache.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()
	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup goroutine and waits for it.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stop, done := m.stop, m.done
	m.mu.Unlock()
	close(stop)
	<-done
}
