package redisadapter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	domainerrors "modelmarket/contexts/marketplace/model-ledger/domain/errors"
	"modelmarket/contexts/marketplace/model-ledger/ports"
	"modelmarket/internal/shared/events"
)

const keyPrefix = "model-ledger:idem:"

// IdempotencyStore keeps purchase idempotency records in Redis; expiry is
// delegated to key TTLs.
type IdempotencyStore struct {
	client *redis.Client
}

func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

type storedRecord struct {
	RequestHash string    `json:"request_hash"`
	ModelID     uint64    `json:"model_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (s *IdempotencyStore) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, err
	}

	var stored storedRecord
	if err := events.DecodeInto(raw, &stored); err != nil {
		return ports.IdempotencyRecord{}, false, err
	}
	if !stored.ExpiresAt.IsZero() && now.UTC().After(stored.ExpiresAt.UTC()) {
		_ = s.client.Del(ctx, keyPrefix+key).Err()
		return ports.IdempotencyRecord{}, false, nil
	}

	return ports.IdempotencyRecord{
		Key:         key,
		RequestHash: stored.RequestHash,
		ModelID:     stored.ModelID,
		ExpiresAt:   stored.ExpiresAt,
	}, true, nil
}

func (s *IdempotencyStore) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	payload, err := events.EncodeData(storedRecord{
		RequestHash: record.RequestHash,
		ModelID:     record.ModelID,
		ExpiresAt:   record.ExpiresAt.UTC(),
	})
	if err != nil {
		return err
	}

	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}

	created, err := s.client.SetNX(ctx, keyPrefix+record.Key, []byte(payload), ttl).Result()
	if err != nil {
		return err
	}
	if created {
		return nil
	}

	raw, err := s.client.Get(ctx, keyPrefix+record.Key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Key expired between SetNX and Get; retry the write once.
			return s.client.Set(ctx, keyPrefix+record.Key, []byte(payload), ttl).Err()
		}
		return err
	}
	var existing storedRecord
	if err := events.DecodeInto(raw, &existing); err != nil {
		return err
	}
	if existing.RequestHash != record.RequestHash {
		return domainerrors.ErrIdempotencyKeyConflict
	}
	return nil
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)
