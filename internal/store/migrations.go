package store

import (
	"fmt"
)

// migration is one forward-only schema change.
type migration struct {
	version int
	name    string
	up      string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create_runs",
		up: `
		CREATE TABLE runs (
			id               TEXT PRIMARY KEY,
			created_at       DATETIME NOT NULL,
			state            TEXT NOT NULL,
			config_json      TEXT NOT NULL,
			matched          INTEGER NOT NULL,
			exact_count      INTEGER NOT NULL,
			fee_count        INTEGER NOT NULL,
			fuzzy_count      INTEGER NOT NULL,
			unmatched_bank   INTEGER NOT NULL,
			unmatched_ledger INTEGER NOT NULL,
			total_fees       TEXT NOT NULL
		);
		CREATE INDEX idx_runs_created_at ON runs(created_at);`,
	},
	{
		version: 2,
		name:    "create_matches_and_unmatched",
		up: `
		CREATE TABLE matches (
			run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq          INTEGER NOT NULL,
			ledger_id    TEXT NOT NULL,
			bank_id      TEXT NOT NULL,
			strategy     TEXT NOT NULL,
			date_delta   INTEGER NOT NULL,
			amount_delta TEXT NOT NULL,
			confidence   REAL NOT NULL,
			PRIMARY KEY (run_id, seq)
		);
		CREATE TABLE unmatched (
			run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			side      TEXT NOT NULL,
			seq       INTEGER NOT NULL,
			record_id TEXT NOT NULL,
			PRIMARY KEY (run_id, side, seq)
		);`,
	},
}

// migrate applies every migration not yet recorded in schema_migrations.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	applied := map[int]bool{}
	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("reading applied migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("scanning migration version: %w", err)
		}
		applied[v] = true
	}
	rows.Close()

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		s.logger.Info().Int("version", m.version).Str("name", m.name).Msg("applying migration")
		if err := s.apply(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) apply(m migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning migration %d: %w", m.version, err)
	}
	if _, err := tx.Exec(m.up); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("recording migration %d: %w", m.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %d: %w", m.version, err)
	}
	return nil
}
