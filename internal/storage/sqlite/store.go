// Package sqlite persists the usage ledger in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/davidbz/draftlock/internal/domain"
)

const createTables = `
CREATE TABLE IF NOT EXISTS ledger_meta (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	schema_version INTEGER NOT NULL,
	currency TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS usage_entries (
	seq INTEGER PRIMARY KEY,
	id TEXT NOT NULL UNIQUE,
	date DATETIME NOT NULL,
	model TEXT NOT NULL,
	mode TEXT NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	pricing_id TEXT NOT NULL,
	record TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_entries_model ON usage_entries(model);
`

// Store implements domain.LedgerStore. Each record is one row; the full
// record is kept as JSON so captured rates round-trip exactly.
type Store struct {
	db *sql.DB
}

// New opens the database and creates the tables.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}

	if _, err := db.Exec(createTables); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger db: %w", err)
	}

	return &Store{db: db}, nil
}

// Load reads every record in insertion order.
func (s *Store) Load(ctx context.Context) (*domain.LedgerDocument, error) {
	doc := &domain.LedgerDocument{Entries: []domain.UsageRecord{}}

	err := s.db.QueryRowContext(ctx,
		`SELECT schema_version, currency FROM ledger_meta WHERE id = 1`,
	).Scan(&doc.SchemaVersion, &doc.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLedgerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger meta: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT record FROM usage_entries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}

		var record domain.UsageRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("%w: entry: %w", domain.ErrLedgerCorrupt, err)
		}
		doc.Entries = append(doc.Entries, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return doc, nil
}

// Save replaces the stored ledger in one transaction.
func (s *Store) Save(ctx context.Context, doc *domain.LedgerDocument) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_meta (id, schema_version, currency) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET schema_version = excluded.schema_version, currency = excluded.currency`,
		doc.SchemaVersion, doc.Currency,
	); err != nil {
		return fmt.Errorf("write ledger meta: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM usage_entries`); err != nil {
		return fmt.Errorf("clear ledger entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO usage_entries (seq, id, date, model, mode, input_tokens, output_tokens, pricing_id, record)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare ledger insert: %w", err)
	}
	defer stmt.Close()

	for i, record := range doc.Entries {
		raw, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode ledger entry: %w", err)
		}

		if _, err := stmt.ExecContext(ctx,
			i, record.ID.String(), record.Date, record.Model, string(record.Mode),
			record.InputTokens, record.OutputTokens, record.Pricing.PricingID, string(raw),
		); err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger save: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
