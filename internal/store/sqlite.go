package store

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps keys in a single kv table. WAL mode so a reader (e.g. a
// second CLI invocation inspecting sessions) does not block the writer.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, errors.Wrap(err, "create database directory")
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initialize schema")
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("kv get")
		return "", false
	}
	return value, true
}

func (s *SQLiteStore) Set(key, value string) {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("kv set")
	}
}

func (s *SQLiteStore) Remove(key string) {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("kv remove")
	}
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
