package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frameworks.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImportCSV(t *testing.T) {
	s := openTestStore(t)
	path := writeCSV(t, `name,type,use_case,description,unknown_column
SWOT Analysis,diagnostic,assess position,classic 2x2,ignored
Porter's Five Forces,,industry analysis,,also ignored
`)

	res, err := ImportCSV(context.Background(), s, path)
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if res.Imported != 2 || res.Malformed != 0 {
		t.Fatalf("result = %+v, want 2 imported", res)
	}

	all, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("stored %d records", len(all))
	}
	if all[0].Name != "SWOT Analysis" || all[0].Description != "classic 2x2" {
		t.Errorf("first record = %+v", all[0])
	}
}

func TestImportCSV_SkipsMalformedRows(t *testing.T) {
	s := openTestStore(t)
	path := writeCSV(t, `name,use_case
Good Framework,works fine
,missing a name
No Text At All,
`)

	res, err := ImportCSV(context.Background(), s, path)
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if res.Imported != 1 {
		t.Errorf("Imported = %d, want 1", res.Imported)
	}
	if res.Malformed != 2 {
		t.Errorf("Malformed = %d, want 2", res.Malformed)
	}
}

func TestImportCSV_HeaderNormalization(t *testing.T) {
	s := openTestStore(t)
	// Headers with mixed case and spaces still map to the known columns.
	path := writeCSV(t, `Name,Use Case,Business Domains
Lean Canvas,model a business,strategy
`)

	res, err := ImportCSV(context.Background(), s, path)
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if res.Imported != 1 {
		t.Fatalf("result = %+v", res)
	}
	all, _ := s.List(context.Background())
	if all[0].BusinessDomains != "strategy" {
		t.Errorf("record = %+v", all[0])
	}
}

func TestImportCSV_RequiresNameColumn(t *testing.T) {
	s := openTestStore(t)
	path := writeCSV(t, `title,use_case
X,y
`)
	if _, err := ImportCSV(context.Background(), s, path); err == nil {
		t.Fatal("missing name column should fail")
	}
}

func TestImportCSV_MissingFile(t *testing.T) {
	s := openTestStore(t)
	if _, err := ImportCSV(context.Background(), s, filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatal("missing file should fail")
	}
}
