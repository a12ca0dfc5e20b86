package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Store persists Memory records in Redis. Records have no TTL: the clinic
// wants to recognize a returning patient months later.
type Store struct {
	redis  *redis.Client
	tracer trace.Tracer
}

// NewStore creates the Redis-backed store.
func NewStore(client *redis.Client) *Store {
	if client == nil {
		panic("memory: redis client cannot be nil")
	}
	return &Store{
		redis:  client,
		tracer: otel.Tracer("atende.internal.memory"),
	}
}

// Load fetches the record for a phone number, creating an empty one when
// the number has never been seen.
func (s *Store) Load(ctx context.Context, phoneNumber string) (*Memory, error) {
	ctx, span := s.tracer.Start(ctx, "memory.load")
	defer span.End()

	data, err := s.redis.Get(ctx, memoryKey(phoneNumber)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return New(phoneNumber), nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("memory: failed to load record: %w", err)
	}

	var m Memory
	if err := json.Unmarshal(data, &m); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("memory: failed to decode record: %w", err)
	}
	if m.PhoneNumber == "" {
		m.PhoneNumber = phoneNumber
	}
	return &m, nil
}

// Save upserts the record.
func (s *Store) Save(ctx context.Context, m *Memory) error {
	ctx, span := s.tracer.Start(ctx, "memory.save")
	defer span.End()

	if m == nil || m.PhoneNumber == "" {
		return fmt.Errorf("memory: record must carry a phone number")
	}

	data, err := json.Marshal(m)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("memory: failed to marshal record: %w", err)
	}
	if err := s.redis.Set(ctx, memoryKey(m.PhoneNumber), data, 0).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("memory: failed to persist record: %w", err)
	}
	return nil
}

func memoryKey(phoneNumber string) string {
	return fmt.Sprintf("memory:%s", phoneNumber)
}
