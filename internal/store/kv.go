package store

import (
	"database/sql"
	"errors"
	"sync"
	"time"
)

// KV is a byte-oriented key-value store. Get returns nil, nil for a missing
// key.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

func (db *DB) Get(key string) ([]byte, error) {
	var value []byte
	err := db.DB.Get(&value, "SELECT value FROM kv WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (db *DB) Set(key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now())
	return err
}

// MemoryKV keeps values in a map. It is safe for concurrent use.
type MemoryKV struct {
	data map[string][]byte
	mu   sync.RWMutex
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte{}, value...)
	return nil
}
