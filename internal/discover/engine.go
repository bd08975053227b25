// Package discover implements the discovery engine: it keeps the embedding
// cache and similarity index consistent with the catalog and resolves
// free-text queries into ranked, deduplicated framework matches.
package discover

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/consultkit/fwassist/internal/catalog"
	"github.com/consultkit/fwassist/internal/embeddings"
	"github.com/consultkit/fwassist/internal/embeddings/cache"
	"github.com/consultkit/fwassist/internal/index"
)

// Options is the engine's configuration surface. The zero value of any field
// falls back to its default.
type Options struct {
	// FinalK is the maximum number of results returned per query.
	FinalK int
	// MinScore is the cosine similarity threshold below which candidates are
	// discarded. Nil means the default; an explicit zero (or negative) value
	// is honored, since cosine scores range over [-1, 1].
	MinScore *float64
	// RawKMultiplier scales FinalK when retrieving candidates, leaving
	// headroom for dedup collapsing.
	RawKMultiplier int
	// Canonical is the dedup policy.
	Canonical CanonicalPolicy

	// EmbedBatchSize bounds how many record texts go into one provider call
	// during a refresh.
	EmbedBatchSize int
}

// DefaultOptions returns the documented defaults: 5 results, 0.6 threshold,
// 4x candidate headroom.
func DefaultOptions() Options {
	minScore := 0.6
	return Options{
		FinalK:         5,
		MinScore:       &minScore,
		RawKMultiplier: 4,
		Canonical:      DefaultCanonicalPolicy(),
		EmbedBatchSize: 64,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.FinalK <= 0 {
		o.FinalK = d.FinalK
	}
	if o.MinScore == nil {
		o.MinScore = d.MinScore
	}
	if o.RawKMultiplier <= 0 {
		o.RawKMultiplier = d.RawKMultiplier
	}
	if o.Canonical.UseCasePrefixLen == 0 && !o.Canonical.StripTrailingNumber {
		o.Canonical = d.Canonical
	}
	if o.EmbedBatchSize <= 0 {
		o.EmbedBatchSize = d.EmbedBatchSize
	}
	return o
}

// Result is one discovery match. MergedIDs lists the ids of catalog rows
// collapsed into this entry by canonicalization; Ambiguous marks collapses
// whose members agreed only on the use-case prefix and deserve manual review.
type Result struct {
	Record        catalog.Record
	Score         float64
	CanonicalName string
	MergedIDs     []int64
	Ambiguous     bool
}

// RefreshStats summarizes one Refresh run.
type RefreshStats struct {
	Records   int // records read from the store
	Skipped   int // malformed records left out of the index
	CacheHits int // fingerprints served from the cache
	Embedded  int // fingerprints sent to the provider
	Pruned    int // stale cache entries dropped
	Indexed   int // entries in the installed index
}

// Engine owns the in-memory similarity index for one loaded session. The
// store owns record identity, the cache owns persisted vectors.
type Engine struct {
	store catalog.Store
	cache *cache.Cache
	prov  embeddings.Provider
	opts  Options

	refreshMu sync.Mutex // serializes Refresh against itself

	mu      sync.RWMutex // guards idx and records
	idx     *index.Index
	records map[int64]catalog.Record
}

// New builds an engine. The index starts empty; call Refresh before queries
// are expected to return anything.
func New(store catalog.Store, c *cache.Cache, prov embeddings.Provider, opts Options) *Engine {
	return &Engine{
		store:   store,
		cache:   c,
		prov:    prov,
		opts:    opts.withDefaults(),
		records: map[int64]catalog.Record{},
	}
}

// IndexSize returns the number of currently indexed records.
func (e *Engine) IndexSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx.Len()
}

// Refresh fingerprints all current records, fills the embedding cache, and
// rebuilds the similarity index. It is idempotent when nothing changed: every
// fingerprint hits the cache and the provider is never called.
//
// On any embedding failure the previously installed index keeps serving;
// a partially built index is never installed.
func (e *Engine) Refresh(ctx context.Context) (*RefreshStats, error) {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	records, err := e.store.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &RefreshStats{Records: len(records)}
	modelID := e.prov.ModelID()

	type pending struct {
		rec catalog.Record
		fp  string
	}
	var (
		entries []index.Entry
		byID    = make(map[int64]catalog.Record, len(records))
		live    = make(map[string]struct{}, len(records))
		misses  []pending
	)

	for _, rec := range records {
		if rec.Validate() != nil {
			stats.Skipped++
			continue
		}
		fp := rec.Fingerprint()
		live[fp] = struct{}{}
		byID[rec.ID] = rec

		if v, ok := e.cache.Get(fp, modelID); ok {
			stats.CacheHits++
			entries = append(entries, index.Entry{ID: rec.ID, Fingerprint: fp, Vector: v})
			continue
		}
		misses = append(misses, pending{rec: rec, fp: fp})
	}

	// Embed all misses before touching the served index. Duplicate
	// fingerprints within one batch are embedded once and shared.
	embedded := make(map[string][]float32, len(misses))
	var batch []pending
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.rec.EmbeddingText()
		}
		vecs, err := e.prov.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		for i, p := range batch {
			embedded[p.fp] = vecs[i]
			e.cache.Put(p.fp, vecs[i], modelID)
		}
		stats.Embedded += len(batch)
		batch = batch[:0]
		return nil
	}
	for _, p := range misses {
		if _, ok := embedded[p.fp]; ok {
			continue
		}
		embedded[p.fp] = nil // reserve to dedupe within the run
		batch = append(batch, p)
		if len(batch) >= e.opts.EmbedBatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	for _, p := range misses {
		v := embedded[p.fp]
		entries = append(entries, index.Entry{ID: p.rec.ID, Fingerprint: p.fp, Vector: v})
	}

	stats.Pruned = e.cache.Prune(live)
	stats.Indexed = len(entries)

	next := index.Build(entries)
	e.mu.Lock()
	e.idx = next
	e.records = byID
	e.mu.Unlock()

	if err := e.cache.Persist(); err != nil {
		// The index is installed and correct; only durability suffered.
		return stats, err
	}
	return stats, nil
}

// Discover resolves a free-text query into at most FinalK deduplicated
// matches. An empty result means no framework was similar enough; callers
// must not fabricate a match. Before any successful Refresh the index is
// empty and every query returns an empty result.
func (e *Engine) Discover(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	e.mu.RLock()
	idx := e.idx
	records := e.records
	e.mu.RUnlock()

	if idx.Len() == 0 {
		return nil, nil
	}

	qv, err := e.prov.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	rawK := e.opts.FinalK * e.opts.RawKMultiplier
	matches := idx.TopK(qv, rawK, *e.opts.MinScore)

	// Candidates arrive ordered by score desc, id asc, so the first member
	// of each canonical group is its best representative.
	type group struct {
		result *Result
	}
	groups := make(map[CanonicalKey]*group)
	var out []Result
	order := make([]CanonicalKey, 0, len(matches))

	for _, m := range matches {
		rec, ok := records[m.ID]
		if !ok {
			continue
		}
		key := e.opts.Canonical.Key(rec.Name, rec.UseCase)
		g, seen := groups[key]
		if !seen {
			groups[key] = &group{result: &Result{
				Record:        rec,
				Score:         m.Score,
				CanonicalName: e.opts.Canonical.CleanName(rec.Name),
			}}
			order = append(order, key)
			continue
		}
		g.result.MergedIDs = append(g.result.MergedIDs, m.ID)
		if rec.UseCase != g.result.Record.UseCase {
			g.result.Ambiguous = true
		}
	}

	for _, key := range order {
		out = append(out, *groups[key].result)
		if len(out) == e.opts.FinalK {
			break
		}
	}
	return out, nil
}

// Unavailable reports whether err came from the embedding provider being
// unreachable, as opposed to a local failure.
func Unavailable(err error) bool {
	return errors.Is(err, embeddings.ErrUnavailable)
}
