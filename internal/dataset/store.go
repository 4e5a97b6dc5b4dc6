package dataset

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/veil-io/veil/internal/pii"
)

const schema = `
CREATE TABLE IF NOT EXISTS training_examples (
    id TEXT PRIMARY KEY,
    text TEXT NOT NULL,
    spans TEXT NOT NULL DEFAULT '[]',
    span_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_examples_created_at ON training_examples(created_at);
CREATE INDEX IF NOT EXISTS idx_examples_span_count ON training_examples(span_count);
`

// Store persists training examples in SQLite between dataset builds and
// training runs.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the example database at dbPath and
// initializes the schema.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening example database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing example schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts one example and returns its generated ID.
func (s *Store) Put(ctx context.Context, ex pii.TrainingExample) (string, error) {
	spans, err := json.Marshal(ex.Spans)
	if err != nil {
		return "", fmt.Errorf("encoding spans: %w", err)
	}
	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO training_examples (id, text, spans, span_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, ex.Text, string(spans), len(ex.Spans), time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting example: %w", err)
	}
	return id, nil
}

// PutAll inserts examples in one transaction and returns the inserted count.
func (s *Store) PutAll(ctx context.Context, examples []pii.TrainingExample) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO training_examples (id, text, spans, span_count, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, ex := range examples {
		spans, err := json.Marshal(ex.Spans)
		if err != nil {
			return 0, fmt.Errorf("encoding spans: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, uuid.New().String(), ex.Text, string(spans), len(ex.Spans), now); err != nil {
			return 0, fmt.Errorf("inserting example: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing examples: %w", err)
	}
	return len(examples), nil
}

// List returns all stored examples in insertion order.
func (s *Store) List(ctx context.Context) ([]pii.TrainingExample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT text, spans FROM training_examples ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying examples: %w", err)
	}
	defer rows.Close()

	var examples []pii.TrainingExample
	for rows.Next() {
		var text, spansJSON string
		if err := rows.Scan(&text, &spansJSON); err != nil {
			return nil, fmt.Errorf("scanning example: %w", err)
		}
		var spans []pii.Span
		if err := json.Unmarshal([]byte(spansJSON), &spans); err != nil {
			return nil, fmt.Errorf("decoding spans: %w", err)
		}
		examples = append(examples, pii.TrainingExample{Text: text, Spans: spans})
	}
	return examples, rows.Err()
}

// Count returns the number of stored examples.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM training_examples`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting examples: %w", err)
	}
	return n, nil
}
