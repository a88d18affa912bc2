// Package store implements the lexical record store: a SQLite table
// mirroring models.MemoryEntry, an FTS5 index kept in sync via triggers,
// and the schema migrations that evolve both over time. Grounded on the
// donor's internal/store/sqlite.go (WAL pragma string, single-connection
// pool, idempotent ALTER-TABLE-guarded-by-columnExists migrations) and
// internal/store/memories.go (CRUD shapes, scanOne/scanMany decoding).
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite connection with initialization logic.
type DB struct {
	*sql.DB
}

// metaVersions records the migration markers this store understands, per
// spec.md §6: "versions observed so far: fts_version=3, nocase_index=1".
const (
	metaFTSVersion   = "fts_version"
	metaFTSVersionV  = "3"
	metaNocaseIndex  = "nocase_index"
	metaNocaseIndexV = "1"
)

// Open creates or opens the SQLite database at dbPath, auto-creating its
// parent directory, configures WAL mode for concurrent reads with a single
// writer, and runs every migration this store knows about. Migrations run
// on every open and are each individually idempotent.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB.SetMaxOpenConns(1) // SQLite: one writer, serialize everything through it

	db := &DB{sqlDB}
	if err := db.initSchema(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	if err := db.runMigrations(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func (db *DB) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS _meta (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS memories (
  id TEXT PRIMARY KEY,
  text TEXT NOT NULL,
  category TEXT NOT NULL,
  importance REAL NOT NULL DEFAULT 0.7,
  entity TEXT,
  key TEXT,
  value TEXT,
  source TEXT,
  created_at INTEGER NOT NULL,
  decay_class TEXT NOT NULL,
  expires_at INTEGER,
  last_confirmed_at INTEGER NOT NULL,
  confidence REAL NOT NULL DEFAULT 1.0,
  search_tags TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_memories_category ON memories(category);
CREATE INDEX IF NOT EXISTS idx_memories_decay_class ON memories(decay_class);
CREATE INDEX IF NOT EXISTS idx_memories_expires_at ON memories(expires_at) WHERE expires_at IS NOT NULL;

CREATE TABLE IF NOT EXISTS embedding_cache (
  content_hash TEXT PRIMARY KEY,
  embedding BLOB NOT NULL,
  dimension INTEGER NOT NULL,
  model TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

func (db *DB) getMeta(key string) (string, bool, error) {
	var v string
	err := db.QueryRow(`SELECT value FROM _meta WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (db *DB) setMeta(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO _meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// runMigrations applies every ordered, idempotent migration step described
// in spec.md §4.5. The FTS and unique-index steps are gated by a _meta key;
// the other steps are idempotent through their WHERE predicates, so all are
// safe to run on every open.
func (db *DB) runMigrations() error {
	if err := db.migrateSeedLastConfirmed(); err != nil {
		return fmt.Errorf("migration seed-last-confirmed: %w", err)
	}
	if err := db.migrateMillisToSeconds(); err != nil {
		return fmt.Errorf("migration millis-to-seconds: %w", err)
	}
	if err := db.migrateFTS(); err != nil {
		return fmt.Errorf("migration fts: %w", err)
	}
	if err := db.migrateUniqueEntityKey(); err != nil {
		return fmt.Errorf("migration unique-entity-key: %w", err)
	}
	if err := db.migrateBackfillExpiry(); err != nil {
		return fmt.Errorf("migration backfill-expiry: %w", err)
	}
	return nil
}

// migrateSeedLastConfirmed seeds any row whose last_confirmed_at is 0 (the
// column default before this migration existed) from created_at.
func (db *DB) migrateSeedLastConfirmed() error {
	_, err := db.Exec(`UPDATE memories SET last_confirmed_at = created_at WHERE last_confirmed_at = 0 OR last_confirmed_at IS NULL`)
	return err
}

// migrateMillisToSeconds converts any legacy millisecond timestamp
// (values >10^12) to seconds, in place, across all timestamp columns.
func (db *DB) migrateMillisToSeconds() error {
	stmts := []string{
		`UPDATE memories SET created_at = created_at / 1000 WHERE created_at > 1000000000000`,
		`UPDATE memories SET last_confirmed_at = last_confirmed_at / 1000 WHERE last_confirmed_at > 1000000000000`,
		`UPDATE memories SET expires_at = expires_at / 1000 WHERE expires_at IS NOT NULL AND expires_at > 1000000000000`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// migrateFTS (re)builds the FTS5 index with a stemming + diacritic-folding
// tokenizer and the search_tags column, guarded by the fts_version meta key.
func (db *DB) migrateFTS() error {
	v, ok, err := db.getMeta(metaFTSVersion)
	if err != nil {
		return err
	}
	if ok && v == metaFTSVersionV {
		return nil
	}

	stmts := []string{
		`DROP TABLE IF EXISTS memories_fts`,
		`CREATE VIRTUAL TABLE memories_fts USING fts5(
			text, category, entity, key, value, search_tags,
			content='memories', content_rowid='rowid',
			tokenize='porter unicode61 remove_diacritics 2'
		)`,
		`DROP TRIGGER IF EXISTS memories_ai`,
		`DROP TRIGGER IF EXISTS memories_ad`,
		`DROP TRIGGER IF EXISTS memories_au`,
		`CREATE TRIGGER memories_ai AFTER INSERT ON memories BEGIN
			INSERT INTO memories_fts(rowid, text, category, entity, key, value, search_tags)
			VALUES (new.rowid, new.text, new.category, new.entity, new.key, new.value, new.search_tags);
		END`,
		`CREATE TRIGGER memories_ad AFTER DELETE ON memories BEGIN
			INSERT INTO memories_fts(memories_fts, rowid, text, category, entity, key, value, search_tags)
			VALUES ('delete', old.rowid, old.text, old.category, old.entity, old.key, old.value, old.search_tags);
		END`,
		`CREATE TRIGGER memories_au AFTER UPDATE ON memories BEGIN
			INSERT INTO memories_fts(memories_fts, rowid, text, category, entity, key, value, search_tags)
			VALUES ('delete', old.rowid, old.text, old.category, old.entity, old.key, old.value, old.search_tags);
			INSERT INTO memories_fts(rowid, text, category, entity, key, value, search_tags)
			VALUES (new.rowid, new.text, new.category, new.entity, new.key, new.value, new.search_tags);
		END`,
		`INSERT INTO memories_fts(memories_fts) VALUES ('rebuild')`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return db.setMeta(metaFTSVersion, metaFTSVersionV)
}

// migrateUniqueEntityKey deduplicates non-null (entity,key) pairs
// case-insensitively, keeping the most recently inserted row (highest
// rowid; created_at is not consulted), then creates
// the unique case-insensitive index. Guarded by the nocase_index meta key.
func (db *DB) migrateUniqueEntityKey() error {
	v, ok, err := db.getMeta(metaNocaseIndex)
	if err != nil {
		return err
	}
	if ok && v == metaNocaseIndexV {
		return nil
	}

	if err := db.dedupeEntityKey(); err != nil {
		return err
	}

	stmts := []string{
		`DROP INDEX IF EXISTS idx_memories_entity`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_memories_entity_key_nocase
			ON memories(entity COLLATE NOCASE, key COLLATE NOCASE)
			WHERE entity IS NOT NULL AND key IS NOT NULL AND entity != '' AND key != ''`,
		`CREATE INDEX IF NOT EXISTS idx_memories_entity_nocase ON memories(entity COLLATE NOCASE)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return db.setMeta(metaNocaseIndex, metaNocaseIndexV)
}

func (db *DB) dedupeEntityKey() error {
	_, err := db.Exec(`
		DELETE FROM memories
		WHERE rowid NOT IN (
			SELECT MAX(rowid) FROM memories
			WHERE entity IS NOT NULL AND key IS NOT NULL AND entity != '' AND key != ''
			GROUP BY entity COLLATE NOCASE, key COLLATE NOCASE
		)
		AND entity IS NOT NULL AND key IS NOT NULL AND entity != '' AND key != ''
	`)
	return err
}

// migrateBackfillExpiry fills null expires_at for non-permanent rows using
// the current TTL defaults relative to last_confirmed_at.
func (db *DB) migrateBackfillExpiry() error {
	stmts := []string{
		`UPDATE memories SET expires_at = last_confirmed_at + 90*86400 WHERE expires_at IS NULL AND decay_class = 'stable'`,
		`UPDATE memories SET expires_at = last_confirmed_at + 14*86400 WHERE expires_at IS NULL AND decay_class = 'active'`,
		`UPDATE memories SET expires_at = last_confirmed_at + 24*3600 WHERE expires_at IS NULL AND decay_class = 'session'`,
		`UPDATE memories SET expires_at = last_confirmed_at + 4*3600 WHERE expires_at IS NULL AND decay_class = 'checkpoint'`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
