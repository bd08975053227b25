package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ImportResult is returned by ImportCSV.
type ImportResult struct {
	Imported  int // rows inserted into the store
	Malformed int // rows skipped for missing required fields
}

// knownColumns maps CSV header names to record field setters. Columns not
// listed here are dropped at the ingestion boundary; the core never depends
// on them.
var knownColumns = map[string]func(*Record, string){
	"name":                 func(r *Record, v string) { r.Name = v },
	"type":                 func(r *Record, v string) { r.Type = v },
	"business_domains":     func(r *Record, v string) { r.BusinessDomains = v },
	"difficulty_level":     func(r *Record, v string) { r.DifficultyLevel = v },
	"use_case":             func(r *Record, v string) { r.UseCase = v },
	"description":          func(r *Record, v string) { r.Description = v },
	"diagnostic_questions": func(r *Record, v string) { r.DiagnosticQuestions = v },
	"red_flag_indicators":  func(r *Record, v string) { r.RedFlagIndicators = v },
	"levers":               func(r *Record, v string) { r.Levers = v },
	"related_frameworks":   func(r *Record, v string) { r.RelatedFrameworks = v },
}

// ImportCSV reads framework rows from path and inserts them into store.
// The first row must be a header; a "name" column is required. Malformed
// rows are counted and skipped rather than aborting the import.
func ImportCSV(ctx context.Context, store Store, path string) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("cannot read CSV header from %s: %w", path, err)
	}

	setters := make([]func(*Record, string), len(header))
	hasName := false
	for i, col := range header {
		key := strings.ToLower(strings.TrimSpace(col))
		key = strings.ReplaceAll(key, " ", "_")
		if set, ok := knownColumns[key]; ok {
			setters[i] = set
			if key == "name" {
				hasName = true
			}
		}
	}
	if !hasName {
		return nil, fmt.Errorf("CSV %s has no 'name' column", path)
	}

	result := &ImportResult{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read CSV row: %w", err)
		}

		var rec Record
		for i, v := range row {
			if i < len(setters) && setters[i] != nil {
				setters[i](&rec, strings.TrimSpace(v))
			}
		}
		if rec.Validate() != nil {
			result.Malformed++
			continue
		}
		if _, err := store.Insert(ctx, rec); err != nil {
			return nil, err
		}
		result.Imported++
	}
	return result, nil
}
