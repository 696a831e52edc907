package ledger

import (
	"context"
	"encoding/json"
	"fmt"
)

// KV is a single-key durable store.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// KVStore keeps the whole ledger as one JSON object under one key.
type KVStore struct {
	kv  KV
	key string
}

// NewKVStore stores the ledger under key.
func NewKVStore(kv KV, key string) *KVStore {
	return &KVStore{kv: kv, key: key}
}

// Load returns the stored map, or an empty map when the key is absent.
func (s *KVStore) Load(ctx context.Context) (map[string]string, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, err
	}
	entries := map[string]string{}
	if !ok || raw == "" {
		return entries, nil
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return entries, nil
}

// Save overwrites the key with entries.
func (s *KVStore) Save(ctx context.Context, entries map[string]string) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.key, err)
	}
	return s.kv.Set(ctx, s.key, string(data))
}

// Clear removes the key.
func (s *KVStore) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, s.key)
}
