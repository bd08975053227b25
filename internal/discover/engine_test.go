package discover

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/consultkit/fwassist/internal/catalog"
	"github.com/consultkit/fwassist/internal/embeddings"
	"github.com/consultkit/fwassist/internal/embeddings/cache"
)

type fakeStore struct {
	records []catalog.Record
}

func (s *fakeStore) List(_ context.Context) ([]catalog.Record, error) {
	out := make([]catalog.Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *fakeStore) Get(_ context.Context, id int64) (catalog.Record, error) {
	for _, r := range s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return catalog.Record{}, catalog.ErrNotFound
}

func (s *fakeStore) Insert(_ context.Context, r catalog.Record) (int64, error) {
	id := int64(len(s.records) + 1)
	r.ID = id
	s.records = append(s.records, r)
	return id, nil
}

func (s *fakeStore) UpdateName(_ context.Context, id int64, name string) error {
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].Name = name
			return nil
		}
	}
	return catalog.ErrNotFound
}

func (s *fakeStore) Close() error { return nil }

// fakeProvider serves vectors from a text → vector table. Unknown texts and
// forced failures surface as ErrUnavailable, like a real provider outage.
// delay slows each embed so tests can overlap a refresh with queries.
type fakeProvider struct {
	model string
	vecs  map[string][]float32
	fail  bool
	delay time.Duration

	mu       sync.Mutex
	embedded int
}

func (p *fakeProvider) ModelID() string { return p.model }
func (p *fakeProvider) Dim() int        { return 2 }

func (p *fakeProvider) embedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.embedded
}

func (p *fakeProvider) Embed(_ context.Context, text string) ([]float32, error) {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.fail {
		return nil, fmt.Errorf("embedding request failed: %w", embeddings.ErrUnavailable)
	}
	v, ok := p.vecs[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q: %w", text, embeddings.ErrUnavailable)
	}
	p.mu.Lock()
	p.embedded++
	p.mu.Unlock()
	return v, nil
}

func (p *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func minScore(v float64) *float64 { return &v }

func record(id int64, name, useCase string) catalog.Record {
	return catalog.Record{ID: id, Name: name, UseCase: useCase, Description: "desc"}
}

func newTestEngine(t *testing.T, store catalog.Store, prov embeddings.Provider, opts Options) *Engine {
	t.Helper()
	c, err := cache.Open(filepath.Join(t.TempDir(), "embeddings.json"))
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	return New(store, c, prov, opts)
}

// registerVectors assigns each record's embedding text a vector in the fake
// provider's table.
func registerVectors(prov *fakeProvider, recs []catalog.Record, vec []float32) {
	for _, r := range recs {
		prov.vecs[r.EmbeddingText()] = vec
	}
}

func TestDiscover_CollapsesNumberedDuplicates(t *testing.T) {
	uc := "Assess IT strategy alignment with business goals"
	store := &fakeStore{records: []catalog.Record{
		record(4, "Layer 3: IT Strategy Framework 4", uc),
		record(5, "Layer 3: IT Strategy Framework 5", uc),
		record(8, "Layer 3: IT Strategy Framework 8", uc),
		record(12, "Pricing Strategy Framework", "Set pricing for a new product line"),
	}}
	prov := &fakeProvider{model: "m", vecs: map[string][]float32{
		"it strategy": {1, 0},
	}}
	registerVectors(prov, store.records[:3], []float32{1, 0})
	registerVectors(prov, store.records[3:], []float32{0, 1})

	eng := newTestEngine(t, store, prov, Options{})
	if _, err := eng.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	results, err := eng.Discover(context.Background(), "it strategy")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 collapsed entry: %+v", len(results), results)
	}

	r := results[0]
	if r.CanonicalName != "Layer 3: IT Strategy Framework" {
		t.Errorf("CanonicalName = %q", r.CanonicalName)
	}
	if r.Record.ID != 4 {
		t.Errorf("representative id = %d, want lowest id 4 on tied scores", r.Record.ID)
	}
	if !reflect.DeepEqual(r.MergedIDs, []int64{5, 8}) {
		t.Errorf("MergedIDs = %v, want [5 8]", r.MergedIDs)
	}
	if r.Ambiguous {
		t.Error("identical use cases should not be flagged ambiguous")
	}
}

func TestDiscover_FlagsAmbiguousCollapse(t *testing.T) {
	store := &fakeStore{records: []catalog.Record{
		record(1, "Growth Framework 2", "Plan market expansion"),
		record(2, "Growth Framework 3", "Plan market expansion into adjacent segments differing late"),
	}}
	// Same cleaned name, use cases agree on a short prefix but differ in full.
	prov := &fakeProvider{model: "m", vecs: map[string][]float32{"growth": {1, 0}}}
	registerVectors(prov, store.records, []float32{1, 0})

	opts := Options{Canonical: CanonicalPolicy{StripTrailingNumber: true, UseCasePrefixLen: 10}}
	eng := newTestEngine(t, store, prov, opts)
	if _, err := eng.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	results, err := eng.Discover(context.Background(), "growth")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if !results[0].Ambiguous {
		t.Error("collapse across differing use cases should be flagged ambiguous")
	}
}

func TestDiscover_EmptyCatalog(t *testing.T) {
	prov := &fakeProvider{model: "m", vecs: map[string][]float32{"anything": {1, 0}}}
	eng := newTestEngine(t, &fakeStore{}, prov, Options{})

	if _, err := eng.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh on empty store: %v", err)
	}
	results, err := eng.Discover(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("empty catalog should yield no results, got %+v", results)
	}
}

func TestDiscover_BeforeRefreshIsEmpty(t *testing.T) {
	prov := &fakeProvider{model: "m", vecs: map[string][]float32{}}
	eng := newTestEngine(t, &fakeStore{records: []catalog.Record{record(1, "X", "y")}}, prov, Options{})

	results, err := eng.Discover(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if results != nil {
		t.Errorf("no index installed yet, got %+v", results)
	}
	if prov.embedCount() != 0 {
		t.Errorf("provider should not be called before an index exists, calls = %d", prov.embedCount())
	}
}

func TestDiscover_BlankQuery(t *testing.T) {
	prov := &fakeProvider{model: "m", vecs: map[string][]float32{}}
	eng := newTestEngine(t, &fakeStore{}, prov, Options{})
	results, err := eng.Discover(context.Background(), "   ")
	if err != nil || results != nil {
		t.Errorf("blank query: results=%v err=%v, want nil/nil", results, err)
	}
}

func TestDiscover_ThresholdAndTruncation(t *testing.T) {
	store := &fakeStore{records: []catalog.Record{
		record(1, "Close Match", "a"),
		record(2, "Near Match", "b"),
		record(3, "Far Match", "c"),
	}}
	prov := &fakeProvider{model: "m", vecs: map[string][]float32{"q": {1, 0}}}
	prov.vecs[store.records[0].EmbeddingText()] = []float32{1, 0}
	prov.vecs[store.records[1].EmbeddingText()] = []float32{0.8, 0.6}
	prov.vecs[store.records[2].EmbeddingText()] = []float32{0, 1}

	eng := newTestEngine(t, store, prov, Options{FinalK: 1, MinScore: minScore(0.5)})
	if _, err := eng.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	results, err := eng.Discover(context.Background(), "q")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("FinalK=1: got %d results", len(results))
	}
	if results[0].Record.ID != 1 {
		t.Errorf("best match id = %d, want 1", results[0].Record.ID)
	}
}

func TestDiscover_Deterministic(t *testing.T) {
	store := &fakeStore{records: []catalog.Record{
		record(1, "Framework A", "a"),
		record(2, "Framework B", "b"),
		record(3, "Framework C", "c"),
	}}
	prov := &fakeProvider{model: "m", vecs: map[string][]float32{"q": {1, 0}}}
	registerVectors(prov, store.records, []float32{1, 0})

	eng := newTestEngine(t, store, prov, Options{})
	if _, err := eng.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	first, err := eng.Discover(context.Background(), "q")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := eng.Discover(context.Background(), "q")
		if err != nil {
			t.Fatalf("Discover: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differed:\nfirst: %+v\nagain: %+v", i, first, again)
		}
	}
}

func TestDiscover_ExplicitZeroMinScore(t *testing.T) {
	store := &fakeStore{records: []catalog.Record{
		record(1, "Orthogonal Framework", "a"),
		record(2, "Opposite Framework", "b"),
	}}
	prov := &fakeProvider{model: "m", vecs: map[string][]float32{"q": {1, 0}}}
	prov.vecs[store.records[0].EmbeddingText()] = []float32{0, 1}  // score 0
	prov.vecs[store.records[1].EmbeddingText()] = []float32{-1, 0} // score -1

	// Zero is a real threshold, not "use the default": it admits score 0 and
	// still rejects negative similarity.
	eng := newTestEngine(t, store, prov, Options{MinScore: minScore(0)})
	if _, err := eng.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	results, err := eng.Discover(context.Background(), "q")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(results) != 1 || results[0].Record.ID != 1 {
		t.Fatalf("min-score 0: got %+v, want only the score-0 match", results)
	}
}

func TestDiscover_DuringRefreshSeesConsistentIndex(t *testing.T) {
	store := &fakeStore{records: []catalog.Record{record(1, "Framework A", "a")}}
	prov := &fakeProvider{model: "m", vecs: map[string][]float32{"q": {1, 0}}}
	registerVectors(prov, store.records, []float32{1, 0})

	eng := newTestEngine(t, store, prov, Options{})
	if _, err := eng.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	store.records = append(store.records, record(2, "Framework B", "b"))
	registerVectors(prov, store.records[1:], []float32{1, 0})
	prov.delay = 2 * time.Millisecond

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			if _, err := eng.Refresh(context.Background()); err != nil {
				t.Errorf("Refresh: %v", err)
				return
			}
		}
	}()

	// Queries racing the refresh must always see a whole index: one record
	// before the swap, two after, never anything in between.
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		results, err := eng.Discover(context.Background(), "q")
		if err != nil {
			t.Fatalf("Discover during refresh: %v", err)
		}
		if n := len(results); n != 1 && n != 2 {
			t.Fatalf("query saw a partial index: %d results", n)
		}
	}

	results, err := eng.Discover(context.Background(), "q")
	if err != nil {
		t.Fatalf("Discover after refresh: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("after refresh: %d results, want 2", len(results))
	}
}

func TestRefresh_IdempotentWhenUnchanged(t *testing.T) {
	store := &fakeStore{records: []catalog.Record{
		record(1, "Framework A", "a"),
		record(2, "Framework B", "b"),
	}}
	prov := &fakeProvider{model: "m", vecs: map[string][]float32{}}
	registerVectors(prov, store.records, []float32{1, 0})

	eng := newTestEngine(t, store, prov, Options{})
	stats, err := eng.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if stats.Embedded != 2 || stats.CacheHits != 0 {
		t.Fatalf("first refresh: %+v", stats)
	}

	stats, err = eng.Refresh(context.Background())
	if err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	if stats.Embedded != 0 {
		t.Errorf("unchanged catalog re-embedded %d records", stats.Embedded)
	}
	if stats.CacheHits != 2 {
		t.Errorf("CacheHits = %d, want 2", stats.CacheHits)
	}
	if prov.embedCount() != 2 {
		t.Errorf("provider calls = %d, want 2 total across both refreshes", prov.embedCount())
	}
}

func TestRefresh_ChangedRecordReembedded(t *testing.T) {
	store := &fakeStore{records: []catalog.Record{record(1, "Framework A", "a")}}
	prov := &fakeProvider{model: "m", vecs: map[string][]float32{}}
	registerVectors(prov, store.records, []float32{1, 0})

	eng := newTestEngine(t, store, prov, Options{})
	if _, err := eng.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	store.records[0].Description = "rewritten description"
	registerVectors(prov, store.records, []float32{0, 1})

	stats, err := eng.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if stats.Embedded != 1 {
		t.Errorf("changed record should be re-embedded, Embedded = %d", stats.Embedded)
	}
	if stats.Pruned != 1 {
		t.Errorf("stale fingerprint should be pruned, Pruned = %d", stats.Pruned)
	}
}

func TestRefresh_FailureKeepsPreviousIndex(t *testing.T) {
	store := &fakeStore{records: []catalog.Record{record(1, "Framework A", "a")}}
	prov := &fakeProvider{model: "m", vecs: map[string][]float32{"q": {1, 0}}}
	registerVectors(prov, store.records, []float32{1, 0})

	eng := newTestEngine(t, store, prov, Options{})
	if _, err := eng.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if eng.IndexSize() != 1 {
		t.Fatalf("IndexSize = %d", eng.IndexSize())
	}

	store.records = append(store.records, record(2, "Framework B", "b"))
	prov.fail = true

	if _, err := eng.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh during outage should fail")
	} else if !Unavailable(err) {
		t.Errorf("error should report provider unavailability: %v", err)
	}

	// Old index still serves.
	if eng.IndexSize() != 1 {
		t.Errorf("failed refresh must not replace the index, IndexSize = %d", eng.IndexSize())
	}
	prov.fail = false
	results, err := eng.Discover(context.Background(), "q")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(results) != 1 || results[0].Record.ID != 1 {
		t.Errorf("previous index should answer queries, got %+v", results)
	}
}

func TestRefresh_SkipsMalformedRecords(t *testing.T) {
	store := &fakeStore{records: []catalog.Record{
		record(1, "Framework A", "a"),
		{ID: 2, Name: ""}, // no name, no use case, no description
	}}
	prov := &fakeProvider{model: "m", vecs: map[string][]float32{}}
	registerVectors(prov, store.records[:1], []float32{1, 0})

	eng := newTestEngine(t, store, prov, Options{})
	stats, err := eng.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if stats.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", stats.Skipped)
	}
	if stats.Indexed != 1 {
		t.Errorf("Indexed = %d, want 1", stats.Indexed)
	}
}

func TestRefresh_ModelChangeInvalidates(t *testing.T) {
	store := &fakeStore{records: []catalog.Record{record(1, "Framework A", "a")}}
	prov := &fakeProvider{model: "model-a", vecs: map[string][]float32{}}
	registerVectors(prov, store.records, []float32{1, 0})

	c, err := cache.Open(filepath.Join(t.TempDir(), "embeddings.json"))
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	eng := New(store, c, prov, Options{})
	if _, err := eng.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// Same cache, different model: the old vector is a miss.
	prov2 := &fakeProvider{model: "model-b", vecs: prov.vecs}
	eng2 := New(store, c, prov2, Options{})
	stats, err := eng2.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if stats.CacheHits != 0 {
		t.Errorf("vector from another model must not hit, CacheHits = %d", stats.CacheHits)
	}
	if stats.Embedded != 1 {
		t.Errorf("Embedded = %d, want 1", stats.Embedded)
	}
}

func TestRefresh_DedupesFingerprintsWithinRun(t *testing.T) {
	// Two rows with identical content share a fingerprint; one provider call.
	a := record(1, "Framework A", "a")
	b := record(2, "Framework A", "a")
	store := &fakeStore{records: []catalog.Record{a, b}}
	prov := &fakeProvider{model: "m", vecs: map[string][]float32{}}
	registerVectors(prov, store.records, []float32{1, 0})

	eng := newTestEngine(t, store, prov, Options{})
	stats, err := eng.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if prov.embedCount() != 1 {
		t.Errorf("identical content embedded %d times, want 1", prov.embedCount())
	}
	if stats.Indexed != 2 {
		t.Errorf("both rows should be indexed, Indexed = %d", stats.Indexed)
	}
}
