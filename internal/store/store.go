// Package store is the local persistence substrate: a flat key-value layer
// over SQLite. Collections are stored as JSON arrays under one logical key
// each; every write is a full read-modify-write by the caller, there are no
// transactions spanning keys.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Well-known keys, one logical namespace per artifact.
const (
	KeyOutcomes          = "shipyard.outcomes"
	KeySessionHistory    = "shipyard.sessionHistory"
	KeyWeeklySummaries   = "shipyard.weeklySummaries"
	KeySessionReports    = "shipyard.sessionReports"
	KeyMemoryItems       = "shipyard.memory.items"
	KeyMemoryEnabled     = "shipyard.memory.enabled"
	KeyDismissedPatterns = "shipyard.memory.dismissedPatterns"
	KeyAnalyticsEvents   = "shipyard.analytics.events"
	KeyInstallID         = "shipyard.analytics.installId"
	KeyServerEvents      = "shipyard.analytics.server.events"
	KeyLastOpenedAt      = "shipyard.engagement.lastOpenedAt"
	KeyLastReminderAt    = "shipyard.engagement.lastReminderAt"
	KeyDailyLimit        = "shipyard.dailyLimit"
)

// Store wraps a SQLite-backed key-value table.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates or opens the store at the given path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if _, err := conn.Exec(`
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT DEFAULT (datetime('now'))
)`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the store file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the value stored under key, or "" if the key is absent.
func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.conn.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	_, err := s.conn.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// SetMany stores each pair in turn. Writes are independent: a failure leaves
// earlier pairs committed.
func (s *Store) SetMany(pairs map[string]string) error {
	for key, value := range pairs {
		if err := s.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns all stored keys, for status reporting.
func (s *Store) Keys() ([]string, error) {
	rows, err := s.conn.Query("SELECT key FROM kv ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// ReadList decodes the JSON array stored under key. A missing key or
// malformed payload yields an empty slice rather than an error: corrupted
// collections degrade to empty.
func ReadList[T any](s *Store, key string) []T {
	raw, err := s.Get(key)
	if err != nil {
		log.Printf("Reading %s failed: %v", key, err)
		return nil
	}
	if raw == "" {
		return nil
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		log.Printf("Discarding malformed collection %s: %v", key, err)
		return nil
	}
	return items
}

// EncodeList encodes items as a JSON array for storage under a collection
// key. A nil slice encodes as an empty array.
func EncodeList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encoding collection: %w", err)
	}
	return string(data), nil
}

// WriteList stores items as the JSON array under key.
func WriteList[T any](s *Store, key string, items []T) error {
	encoded, err := EncodeList(items)
	if err != nil {
		return err
	}
	return s.Set(key, encoded)
}
