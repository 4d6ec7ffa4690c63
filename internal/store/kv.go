package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformed is returned by LoadJSON when a stored value cannot be decoded.
var ErrMalformed = errors.New("malformed stored value")

// Keys used by the core for opaque blobs and once-per-day stamps.
const (
	KeyUserProfile        = "user_profile"
	KeyRoutine            = "routine_today"
	KeyLastWakeCompleted  = "last_wake_completed"
	KeyLastSleepCompleted = "last_sleep_completed"
)

// KVStore is the durable key-value store. Values are stored as text; JSON
// helpers cover structured values.
type KVStore struct {
	db *sql.DB
}

func NewKVStore(db *sql.DB) *KVStore {
	return &KVStore{db: db}
}

// Get returns the value for key and whether it exists.
func (s *KVStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get key %q: %w", key, err)
	}
	return value, true, nil
}

func (s *KVStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set key %q: %w", key, err)
	}
	return nil
}

func (s *KVStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete key %q: %w", key, err)
	}
	return nil
}

// SaveJSON encodes v and stores it under key.
func (s *KVStore) SaveJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode key %q: %w", key, err)
	}
	return s.Set(key, string(data))
}

// LoadJSON decodes the value under key into v. It reports false when the key
// is absent; a value that does not decode yields ErrMalformed.
func (s *KVStore) LoadJSON(key string, v any) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode key %q: %w: %v", key, ErrMalformed, err)
	}
	return true, nil
}
