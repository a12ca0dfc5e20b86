package clinic

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound indicates the clinic has no stored configuration.
var ErrNotFound = errors.New("clinic: config not found")

// Store reads raw clinic configuration documents from Redis and resolves
// them into Contexts.
type Store struct {
	redis  *redis.Client
	tracer trace.Tracer
}

// NewStore creates a clinic config store.
func NewStore(redisClient *redis.Client) *Store {
	if redisClient == nil {
		panic("clinic: redis client cannot be nil")
	}
	return &Store{
		redis:  redisClient,
		tracer: otel.Tracer("atende.internal.clinic"),
	}
}

func (s *Store) key(clinicID string) string {
	return fmt.Sprintf("clinic:config:%s", clinicID)
}

// Resolve loads the raw document for clinicID and flattens it. Only a wholly
// absent record is an error; malformed documents resolve with defaults.
func (s *Store) Resolve(ctx context.Context, clinicID string) (*Context, error) {
	ctx, span := s.tracer.Start(ctx, "clinic.resolve")
	defer span.End()

	raw, err := s.redis.Get(ctx, s.key(clinicID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("clinic: get config: %w", err)
	}

	return Resolve(clinicID, raw), nil
}

// Put stores a raw clinic document. Used by onboarding tooling and tests.
func (s *Store) Put(ctx context.Context, clinicID string, raw []byte) error {
	ctx, span := s.tracer.Start(ctx, "clinic.put")
	defer span.End()

	if err := s.redis.Set(ctx, s.key(clinicID), raw, 0).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("clinic: set config: %w", err)
	}
	return nil
}
