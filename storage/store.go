// Package storage provides the durable client storage backends used by the
// ramp coordinator: an in-memory store for tests and embedded use, and a
// JSON-file-backed store that survives the checkout redirect round-trip.
package storage

import "encoding/json"

// Store is string-keyed byte-value storage. Get returns (nil, nil) for an
// absent key; absence is never an error. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// GetJSON reads and decodes a JSON record. Returns (nil, nil) when the key
// is absent.
func GetJSON[T any](s Store, key string) (*T, error) {
	data, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// SetJSON encodes and writes a JSON record.
func SetJSON[T any](s Store, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Set(key, data)
}
