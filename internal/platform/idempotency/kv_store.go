package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hanko-field/storefront/internal/platform/kvstore"
)

const keyPrefix = "idempotency/"

// KVStore keeps one JSON record per key in a kvstore.Store, so it shares the backend selected
// for the rest of the storefront state.
type KVStore struct {
	kv kvstore.Store
}

var _ Store = (*KVStore)(nil)

// NewKVStore wraps kv.
func NewKVStore(kv kvstore.Store) (*KVStore, error) {
	if kv == nil {
		return nil, errors.New("idempotency: kv store is required")
	}
	return &KVStore{kv: kv}, nil
}

// NewMemoryStore returns a KVStore over a private in-memory backend.
func NewMemoryStore() *KVStore {
	return &KVStore{kv: kvstore.NewMemoryStore()}
}

func recordKey(key string) string {
	return keyPrefix + sha256Hex([]byte(strings.TrimSpace(key)))
}

// Reserve implements Store.
func (s *KVStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	var result Reservation
	err := s.kv.Update(ctx, recordKey(key), func(raw []byte, exists bool) ([]byte, error) {
		if exists {
			record, err := decodeRecord(raw)
			if err != nil {
				return nil, err
			}
			if !record.expired(now) {
				if record.Fingerprint != fingerprint {
					return nil, ErrFingerprintMismatch
				}
				result = Reservation{State: ReservationStatePending, Record: record}
				if record.Status == StatusCompleted {
					result.State = ReservationStateCompleted
				}
				return nil, kvstore.ErrSkipWrite
			}
		}
		record := Record{
			Key:         key,
			Fingerprint: fingerprint,
			Status:      StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
			ExpiresAt:   now.Add(ttl),
		}
		result = Reservation{State: ReservationStateNew, Record: record}
		return json.Marshal(record)
	})
	if err != nil {
		return Reservation{}, err
	}
	return result, nil
}

// SaveResponse implements Store.
func (s *KVStore) SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return s.kv.Update(ctx, recordKey(key), func(raw []byte, exists bool) ([]byte, error) {
		record := Record{Key: key, Fingerprint: fingerprint, CreatedAt: now}
		if exists {
			current, err := decodeRecord(raw)
			if err != nil {
				return nil, err
			}
			if current.Fingerprint != fingerprint {
				return nil, ErrFingerprintMismatch
			}
			record = current
		}
		record.Status = StatusCompleted
		record.ResponseStatus = resp.Status
		record.ResponseHeaders = storableHeaders(resp.Headers)
		record.ResponseBody = append([]byte(nil), resp.Body...)
		record.UpdatedAt = now
		record.ExpiresAt = now.Add(ttl)
		return json.Marshal(record)
	})
}

// Release implements Store. Only a record holding fingerprint is removed.
func (s *KVStore) Release(ctx context.Context, key, fingerprint string) error {
	return s.kv.Update(ctx, recordKey(key), func(raw []byte, exists bool) ([]byte, error) {
		if !exists {
			return nil, kvstore.ErrSkipWrite
		}
		record, err := decodeRecord(raw)
		if err == nil && record.Fingerprint != fingerprint {
			return nil, kvstore.ErrSkipWrite
		}
		return nil, nil
	})
}

// CleanupExpired implements Store. It needs a backend implementing kvstore.Scanner and removes
// at most limit records per call.
func (s *KVStore) CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	scanner, ok := s.kv.(kvstore.Scanner)
	if !ok {
		return 0, nil
	}
	keys, err := scanner.Keys(ctx, keyPrefix, 0)
	if err != nil {
		return 0, err
	}
	now = now.UTC()
	removed := 0
	for _, key := range keys {
		if limit > 0 && removed >= limit {
			break
		}
		deleted := false
		err := s.kv.Update(ctx, key, func(raw []byte, exists bool) ([]byte, error) {
			deleted = false
			if !exists {
				return nil, kvstore.ErrSkipWrite
			}
			record, err := decodeRecord(raw)
			if err == nil && !record.expired(now) {
				return nil, kvstore.ErrSkipWrite
			}
			deleted = true
			return nil, nil
		})
		if err != nil {
			return removed, err
		}
		if deleted {
			removed++
		}
	}
	return removed, nil
}

func decodeRecord(raw []byte) (Record, error) {
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, fmt.Errorf("idempotency: decode record: %w", err)
	}
	return record, nil
}
