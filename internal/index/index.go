// Package index provides an in-memory cosine similarity index over the
// catalog's embedding vectors. Catalogs here are hundreds of records, so a
// brute-force scan is both acceptable and simplest; the Index type can be
// swapped for an ANN structure without changing callers.
package index

import "sort"

// Entry is one indexed record: the catalog id, the content fingerprint the
// vector was computed from, and the vector itself.
type Entry struct {
	ID          int64
	Fingerprint string
	Vector      []float32
}

// Match is one similarity hit returned by TopK.
type Match struct {
	ID    int64
	Score float64
}

// Index is an immutable snapshot built from the current catalog. Rebuild and
// swap the whole structure rather than mutating in place.
type Index struct {
	entries []Entry
}

// Build constructs an index from entries. The input slice is copied.
func Build(entries []Entry) *Index {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return &Index{entries: out}
}

// Len returns the number of indexed entries.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.entries)
}

// TopK returns the k entries most similar to query with score >= minScore,
// ordered by score descending and id ascending on ties. An empty index or an
// empty qualifying set yields an empty slice, not an error.
func (x *Index) TopK(query []float32, k int, minScore float64) []Match {
	if x == nil || len(x.entries) == 0 || k <= 0 {
		return nil
	}

	matches := make([]Match, 0, len(x.entries))
	for _, e := range x.entries {
		score, err := Cosine(query, e.Vector)
		if err != nil {
			continue
		}
		if score < minScore {
			continue
		}
		matches = append(matches, Match{ID: e.ID, Score: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
