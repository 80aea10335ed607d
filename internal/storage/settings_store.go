package storage

import "database/sql"

// SettingsStore holds small key/value metadata such as the vault salt.
type SettingsStore struct {
	db *DB
}

// NewSettingsStore creates a new settings store.
func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the value for a key, or ErrNotFound.
func (s *SettingsStore) Get(key string) (string, error) {
	var value string
	err := s.db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// Set writes a key/value pair, replacing any previous value.
func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.conn.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value,
		    updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}
