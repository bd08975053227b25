package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS frameworks (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	name                 TEXT NOT NULL,
	type                 TEXT NOT NULL DEFAULT '',
	business_domains     TEXT NOT NULL DEFAULT '',
	difficulty_level     TEXT NOT NULL DEFAULT '',
	use_case             TEXT NOT NULL DEFAULT '',
	description          TEXT NOT NULL DEFAULT '',
	diagnostic_questions TEXT NOT NULL DEFAULT '',
	red_flag_indicators  TEXT NOT NULL DEFAULT '',
	levers               TEXT NOT NULL DEFAULT '',
	related_frameworks   TEXT NOT NULL DEFAULT ''
);
`

const recordColumns = `id, name, type, business_domains, difficulty_level, use_case,
	description, diagnostic_questions, red_flag_indicators, levers, related_frameworks`

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the catalog database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create data directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cannot open catalog db %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot apply catalog schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM frameworks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query frameworks: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read frameworks: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM frameworks WHERE id = ?`, id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return r, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, r Record) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO frameworks (
			name, type, business_domains, difficulty_level, use_case,
			description, diagnostic_questions, red_flag_indicators, levers, related_frameworks
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Name, r.Type, r.BusinessDomains, r.DifficultyLevel, r.UseCase,
		r.Description, r.DiagnosticQuestions, r.RedFlagIndicators, r.Levers, r.RelatedFrameworks,
	)
	if err != nil {
		return 0, fmt.Errorf("insert framework: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) UpdateName(ctx context.Context, id int64, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE frameworks SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("update framework name: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var r Record
	err := row.Scan(
		&r.ID, &r.Name, &r.Type, &r.BusinessDomains, &r.DifficultyLevel, &r.UseCase,
		&r.Description, &r.DiagnosticQuestions, &r.RedFlagIndicators, &r.Levers, &r.RelatedFrameworks,
	)
	if err == sql.ErrNoRows {
		return r, err
	}
	if err != nil {
		return r, fmt.Errorf("scan framework: %w", err)
	}
	return r, nil
}
