package fetchcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"ripple/internal/logging"
)

// Entry represents a cached fetch response.
type Entry struct {
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	StoredAt  time.Time       `json:"stored_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func (e Entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// HitRate returns the fraction of lookups served from the cache.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Options configures cache construction.
type Options struct {
	// Path is the persistence file. Empty disables disk persistence; the
	// cache then lives only for the process lifetime.
	Path string
	// TTL is how long entries stay valid. Zero or negative falls back to
	// one hour.
	TTL time.Duration
	// MaxEntries bounds the cache. When full, the entry closest to expiry
	// is dropped. Zero or negative falls back to 1000.
	MaxEntries int
	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// Cache provides thread-safe TTL-evicted storage for fetch responses.
type Cache struct {
	path       string
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	logger     *slog.Logger

	mu      sync.RWMutex
	entries map[string]Entry
	hits    int64
	misses  int64
}

// New creates a cache. The persistence file is loaded if present and
// created lazily on first Store.
func New(opts Options, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "fetchcache")

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	c := &Cache{
		path:       strings.TrimSpace(opts.Path),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        now,
		logger:     logger,
		entries:    make(map[string]Entry),
	}

	if c.path != "" {
		if err := c.load(); err != nil {
			logger.Warn("failed to load fetch cache",
				logging.Error(err),
				logging.String("path", c.path))
		}
	}

	return c
}

// Lookup returns the cached payload for key when present and unexpired.
func (c *Cache) Lookup(key string) (json.RawMessage, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.entries[key]
	if !found {
		c.misses++
		return nil, false
	}
	if entry.expired(c.now()) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.Payload, true
}

// Store adds or refreshes an entry and persists the cache when a path is
// configured.
func (c *Cache) Store(key string, payload json.RawMessage) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("cache key cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.pruneLocked(now)
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictSoonestLocked()
	}

	c.entries[key] = Entry{
		Key:       key,
		Payload:   payload,
		StoredAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}

	if c.path == "" {
		return nil
	}
	if err := c.saveLocked(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}

// Remove deletes an entry by key.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	if c.path != "" {
		_ = c.saveLocked()
	}
}

// Clear removes all entries and persists the empty cache.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)
	c.hits = 0
	c.misses = 0

	if c.path == "" {
		return nil
	}
	if err := c.saveLocked(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}

// Stats returns hit/miss counters and the live entry count.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Hits: c.hits, Misses: c.misses, Entries: len(c.entries)}
}

// pruneLocked drops expired entries. Caller holds c.mu.
func (c *Cache) pruneLocked(now time.Time) {
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
		}
	}
}

// evictSoonestLocked removes the entry closest to expiry. Caller holds c.mu.
func (c *Cache) evictSoonestLocked() {
	var victim string
	var soonest time.Time
	for key, entry := range c.entries {
		if victim == "" || entry.ExpiresAt.Before(soonest) {
			victim = key
			soonest = entry.ExpiresAt
		}
	}
	if victim != "" {
		delete(c.entries, victim)
	}
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}

	now := c.now()
	c.entries = make(map[string]Entry, len(entries))
	for _, entry := range entries {
		if strings.TrimSpace(entry.Key) == "" || entry.expired(now) {
			continue
		}
		c.entries[entry.Key] = entry
	}

	c.logger.Debug("loaded fetch cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String("path", c.path))
	return nil
}

// saveLocked writes the cache to disk atomically. Caller holds c.mu.
func (c *Cache) saveLocked() error {
	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StoredAt.After(entries[j].StoredAt)
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
