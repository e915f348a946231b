package mensa

import (
	"log"
	"sync"
	"time"
)

const (
	cacheMaxAge     = time.Hour
	cacheMaxEntries = 20
)

// Fetcher downloads the raw menu page for a cafeteria and day.
type Fetcher interface {
	Fetch(mensaID int, initialDay time.Time) ([]byte, time.Time, error)
}

type cacheKey struct {
	mensaID int
	day     string // initial resolved day, ISO format
}

type cacheEntry struct {
	menu     *Menu
	inserted time.Time
}

// Manager retrieves menus, caching up to 20 entries for up to one hour.
// The cache is keyed by the initially resolved day: two initial days that
// skip forward to the same served day are cached separately.
type Manager struct {
	mu      sync.Mutex
	cache   map[cacheKey]cacheEntry
	fetcher Fetcher
	now     func() time.Time
}

func NewManager() *Manager {
	return NewManagerWith(NewClient())
}

// NewManagerWith uses a custom fetcher, e.g. a client pointed at a test
// server.
func NewManagerWith(f Fetcher) *Manager {
	return &Manager{
		cache:   make(map[cacheKey]cacheEntry),
		fetcher: f,
		now:     time.Now,
	}
}

// ClearCache drops all cached menus, used before a broadcast to force
// fresh data.
func (m *Manager) ClearCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[cacheKey]cacheEntry)
}

// GetMenu returns the menu a user should currently see for the given
// cafeteria. The lock is held across the fetch so concurrent callers
// never download the same plan twice.
func (m *Manager) GetMenu(mensaID int) (*Menu, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	initialDay := ResolveDay(m.now())
	key := cacheKey{mensaID: mensaID, day: initialDay.Format("2006-01-02")}

	if entry, ok := m.cache[key]; ok {
		if age := m.now().Sub(entry.inserted); age < cacheMaxAge {
			log.Printf("mensa: using cached menu for %d, age %.0fs", mensaID, age.Seconds())
			return entry.menu, nil
		}
		delete(m.cache, key)
	}

	content, day, err := m.fetcher.Fetch(mensaID, initialDay)
	if err != nil {
		return nil, err
	}

	menu := ParseMenu(content, mensaID, day)
	m.evictForSpace()
	m.cache[key] = cacheEntry{menu: menu, inserted: m.now()}
	return menu, nil
}

// evictForSpace makes room for one insertion by dropping the oldest
// entry once the size bound is reached. Caller holds the lock.
func (m *Manager) evictForSpace() {
	if len(m.cache) < cacheMaxEntries {
		return
	}
	var oldestKey cacheKey
	var oldest time.Time
	first := true
	for k, e := range m.cache {
		if first || e.inserted.Before(oldest) {
			oldestKey, oldest = k, e.inserted
			first = false
		}
	}
	delete(m.cache, oldestKey)
}
