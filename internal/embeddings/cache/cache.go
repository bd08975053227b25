// Package cache persists embedding vectors keyed by record fingerprint so
// unchanged catalog records are never re-embedded across runs.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/consultkit/fwassist/internal/embeddings"
)

// Entry is one cached embedding. Entries are never mutated in place: a
// changed record produces a new fingerprint and therefore a new entry.
type Entry struct {
	Vector  []float32 `json:"vector"`
	ModelID string    `json:"model_id"`
}

// Cache is a fingerprint → Entry mapping backed by a JSON file. The file is
// an optimization, never a source of truth: an absent or unreadable file is
// treated as an empty cache.
type Cache struct {
	path string

	mu        sync.RWMutex
	entries   map[string]Entry
	recovered bool
}

// Open loads the cache at path. A missing file yields an empty cache; a
// corrupt file is discarded and Recovered reports it so callers can warn.
func Open(path string) (*Cache, error) {
	c := &Cache{path: path, entries: map[string]Entry{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("cannot read embedding cache %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		c.entries = map[string]Entry{}
		c.recovered = true
	}
	return c, nil
}

// Recovered reports whether Open discarded a corrupt cache file.
func (c *Cache) Recovered() bool { return c.recovered }

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Get returns the cached vector for (fingerprint, modelID). A stored entry
// whose model id differs is a miss, never served.
func (c *Cache) Get(fingerprint, modelID string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[fingerprint]
	if !ok || e.ModelID != modelID {
		return nil, false
	}
	return e.Vector, true
}

// Put stores a vector for fingerprint.
func (c *Cache) Put(fingerprint string, vector []float32, modelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint] = Entry{Vector: vector, ModelID: modelID}
}

// GetOrCompute returns the cached vector for (fingerprint, modelID) or embeds
// text via prov, stores the result, and returns it. Provider failures
// propagate unchanged; the cache never substitutes a zero vector.
func (c *Cache) GetOrCompute(ctx context.Context, prov embeddings.Provider, fingerprint, text string) ([]float32, error) {
	if v, ok := c.Get(fingerprint, prov.ModelID()); ok {
		return v, nil
	}
	v, err := prov.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.Put(fingerprint, v, prov.ModelID())
	return v, nil
}

// InvalidateModelMismatch drops every entry whose model id differs from
// modelID and returns how many were removed.
func (c *Cache) InvalidateModelMismatch(modelID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for fp, e := range c.entries {
		if e.ModelID != modelID {
			delete(c.entries, fp)
			n++
		}
	}
	return n
}

// Prune drops entries whose fingerprint is not in live and returns how many
// were removed. Stale entries must never be served; pruning keeps the file
// from growing as the catalog is cleaned or edited.
func (c *Cache) Prune(live map[string]struct{}) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for fp := range c.entries {
		if _, ok := live[fp]; !ok {
			delete(c.entries, fp)
			n++
		}
	}
	return n
}

// Persist writes the cache to disk with write-then-rename semantics, so a
// crash mid-write cannot corrupt previously persisted entries. Concurrent
// writers are serialized through a file lock.
func (c *Cache) Persist() error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create cache directory %s: %w", dir, err)
	}

	lock := flock.New(c.path + ".lock")
	if err := acquireLock(lock, 10*time.Second); err != nil {
		return err
	}
	defer lock.Unlock()

	c.mu.RLock()
	data, err := json.Marshal(c.entries)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("cannot marshal embedding cache: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".embeddings-*.json")
	if err != nil {
		return fmt.Errorf("cannot create temp cache file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("cannot write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("cannot install cache file %s: %w", c.path, err)
	}
	return nil
}

func acquireLock(l *flock.Flock, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return fmt.Errorf("cannot acquire cache lock: %w", err)
		}
		if locked {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("another process is writing the embedding cache (lock: %s)", l.Path())
		}
		time.Sleep(100 * time.Millisecond)
	}
}
