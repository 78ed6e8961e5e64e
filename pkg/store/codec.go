package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sternrassler/response-cache/pkg/cache"
)

// ErrInvalidEntry indicates a stored payload could not be decoded
var ErrInvalidEntry = errors.New("invalid cache entry")

func encodeEntry(entry *cache.Entry) ([]byte, error) {
	if entry == nil {
		return nil, fmt.Errorf("cache entry cannot be nil")
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("marshal cache entry: %w", err)
	}
	return data, nil
}

func decodeEntry(data []byte) (*cache.Entry, error) {
	var entry cache.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if entry.StatusCode == 0 {
		return nil, fmt.Errorf("%w: missing status code", ErrInvalidEntry)
	}
	return &entry, nil
}
