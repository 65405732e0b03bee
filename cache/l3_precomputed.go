package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// L3 is an immutable, read-only store of entries computed ahead of time,
// loaded once at startup from a directory of "{key}.json" blobs. Entries
// never expire and the store is never written to at runtime.
type L3 struct {
	entries map[string][]byte
}

// LoadL3 reads every "*.json" file under dir and indexes it by filename
// (without extension) as the cache key. An empty or missing dir yields an
// empty, always-miss L3 — L3 is an optional seed set, not a hard dependency.
func LoadL3(dir string) (*L3, error) {
	l3 := &L3{entries: make(map[string][]byte)}
	if dir == "" {
		return l3, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return l3, nil
		}
		return nil, err
	}
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, de.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		// Validate the blob is at least well-formed JSON before serving it.
		if !json.Valid(data) {
			continue
		}
		key := strings.TrimSuffix(de.Name(), ".json")
		l3.entries[key] = data
	}
	return l3, nil
}

// Get returns the precomputed bytes for key, if seeded.
func (l *L3) Get(key string) ([]byte, bool) {
	if l == nil {
		return nil, false
	}
	v, ok := l.entries[key]
	return v, ok
}

// Size reports the number of seeded entries.
func (l *L3) Size() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}
