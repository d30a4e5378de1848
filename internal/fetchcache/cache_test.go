package fetchcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreAndLookup(t *testing.T) {
	cache := New(Options{TTL: time.Minute}, nil)

	if _, found := cache.Lookup("deep_coadd:3828:12:r"); found {
		t.Fatal("expected miss on empty cache")
	}
	if err := cache.Store("deep_coadd:3828:12:r", json.RawMessage(`{"band":"r"}`)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	payload, found := cache.Lookup("deep_coadd:3828:12:r")
	if !found {
		t.Fatal("expected hit after store")
	}
	if string(payload) != `{"band":"r"}` {
		t.Fatalf("payload = %s", payload)
	}

	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Entries != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestLookupExpiredEntryMisses(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	cache := New(Options{TTL: 10 * time.Minute, Clock: clock}, nil)

	if err := cache.Store("calexp:192350:94", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	now = now.Add(11 * time.Minute)

	if _, found := cache.Lookup("calexp:192350:94"); found {
		t.Fatal("expected expired entry to miss")
	}
	if cache.Stats().Entries != 0 {
		t.Fatal("expected expired entry to be dropped")
	}
}

func TestStoreEvictsWhenFull(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	cache := New(Options{TTL: time.Hour, MaxEntries: 3, Clock: clock}, nil)

	for i := 0; i < 3; i++ {
		if err := cache.Store(fmt.Sprintf("key-%d", i), json.RawMessage(`{}`)); err != nil {
			t.Fatalf("Store: %v", err)
		}
		now = now.Add(time.Minute)
	}
	if err := cache.Store("key-3", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	if cache.Stats().Entries != 3 {
		t.Fatalf("entries = %d, want bound of 3", cache.Stats().Entries)
	}
	if _, found := cache.Lookup("key-0"); found {
		t.Fatal("expected oldest entry to be evicted")
	}
	if _, found := cache.Lookup("key-3"); !found {
		t.Fatal("expected newest entry to survive")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "fetch.json")

	first := New(Options{Path: path, TTL: time.Hour}, nil)
	if err := first.Store("object_catalog:3828:12:i", json.RawMessage(`{"rows":3}`)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	second := New(Options{Path: path, TTL: time.Hour}, nil)
	payload, found := second.Lookup("object_catalog:3828:12:i")
	if !found {
		t.Fatal("expected entry to survive reload")
	}
	if string(payload) != `{"rows":3}` {
		t.Fatalf("payload = %s", payload)
	}
}

func TestLoadSkipsExpiredEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fetch.json")
	now := time.Now()
	entries := []Entry{
		{Key: "stale", Payload: json.RawMessage(`{}`), StoredAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
		{Key: "live", Payload: json.RawMessage(`{}`), StoredAt: now, ExpiresAt: now.Add(time.Hour)},
	}
	data, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cache := New(Options{Path: path, TTL: time.Hour}, nil)
	if _, found := cache.Lookup("stale"); found {
		t.Fatal("expected stale entry to be discarded on load")
	}
	if _, found := cache.Lookup("live"); !found {
		t.Fatal("expected live entry to load")
	}
}

func TestCorruptCacheFileIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fetch.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cache := New(Options{Path: path, TTL: time.Hour}, nil)
	if err := cache.Store("key", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Store after corrupt load: %v", err)
	}
}

func TestClearResetsState(t *testing.T) {
	cache := New(Options{TTL: time.Hour}, nil)
	if err := cache.Store("key", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	cache.Lookup("key")

	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	stats := cache.Stats()
	if stats.Entries != 0 || stats.Hits != 0 || stats.Misses != 0 {
		t.Fatalf("stats after clear = %+v", stats)
	}
}

func TestStoreRejectsEmptyKey(t *testing.T) {
	cache := New(Options{TTL: time.Hour}, nil)
	if err := cache.Store("  ", json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error for empty key")
	}
}
