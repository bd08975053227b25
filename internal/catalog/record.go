package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrMalformedRecord indicates a record is missing the text fields required
// for embedding. Malformed records are skipped during an index refresh, not
// treated as fatal.
var ErrMalformedRecord = errors.New("malformed record")

// Record is one framework in the catalog.
//
// The id is assigned by the store and stable for the lifetime of the catalog;
// ids are never reused after deletion. All other fields are free text taken
// as-is from the ingestion boundary.
type Record struct {
	ID                  int64
	Name                string
	Type                string
	BusinessDomains     string
	DifficultyLevel     string
	UseCase             string
	Description         string
	DiagnosticQuestions string
	RedFlagIndicators   string
	Levers              string
	RelatedFrameworks   string
}

// Validate reports whether the record carries enough text to embed.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrMalformedRecord
	}
	if strings.TrimSpace(r.UseCase) == "" && strings.TrimSpace(r.Description) == "" {
		return ErrMalformedRecord
	}
	return nil
}

// EmbeddingText returns the canonical text embedded for this record.
// Field order and labels are fixed so the same content always produces the
// same fingerprint.
func (r Record) EmbeddingText() string {
	parts := []string{
		"name: " + strings.TrimSpace(r.Name),
		"use_case: " + strings.TrimSpace(r.UseCase),
	}
	if d := strings.TrimSpace(r.Description); d != "" {
		parts = append(parts, "description: "+d)
	}
	if d := strings.TrimSpace(r.BusinessDomains); d != "" {
		parts = append(parts, "domains: "+d)
	}
	if t := strings.TrimSpace(r.Type); t != "" {
		parts = append(parts, "type: "+t)
	}
	return strings.Join(parts, "\n")
}

// Fingerprint returns a sha256 hex digest of the embedding text. Two records
// with the same fingerprint are content-identical for caching purposes even
// when their ids differ.
func (r Record) Fingerprint() string {
	h := sha256.Sum256([]byte(r.EmbeddingText()))
	return hex.EncodeToString(h[:])
}
