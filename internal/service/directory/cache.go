package directory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/clinicadesk/clinica_backend/internal/repo"
)

const (
	patientKeyPrefix      = "directory:patient:"
	professionalKeyPrefix = "directory:professional:"
)

// cachedService keeps single-record lookups in Redis. Lists and existence
// checks always go to the inner service, so a removed record can never pass
// validation. Cache failures degrade to a direct lookup.
type cachedService struct {
	Service
	rdb *redis.Client
	ttl time.Duration
}

// NewCached wraps inner with a read-through cache. A cached record may lag
// the directory by up to ttl (five minutes when ttl is not positive).
func NewCached(inner Service, rdb *redis.Client, ttl time.Duration) Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &cachedService{Service: inner, rdb: rdb, ttl: ttl}
}

func (s *cachedService) GetPatient(ctx context.Context, id uuid.UUID) (*repo.Patient, error) {
	return readThrough(ctx, s, patientKeyPrefix+id.String(), func() (*repo.Patient, error) {
		return s.Service.GetPatient(ctx, id)
	})
}

func (s *cachedService) GetProfessional(ctx context.Context, id uuid.UUID) (*repo.Professional, error) {
	return readThrough(ctx, s, professionalKeyPrefix+id.String(), func() (*repo.Professional, error) {
		return s.Service.GetProfessional(ctx, id)
	})
}

func readThrough[T any](ctx context.Context, s *cachedService, key string, load func() (*T, error)) (*T, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return &v, nil
		}
		slog.WarnContext(ctx, "directory cache: corrupt entry", "key", key)
	case !errors.Is(err, redis.Nil):
		slog.WarnContext(ctx, "directory cache: get failed", "key", key, "err", err)
	}

	v, err := load()
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(v); err == nil {
		if err := s.rdb.Set(ctx, key, raw, s.ttl).Err(); err != nil {
			slog.WarnContext(ctx, "directory cache: set failed", "key", key, "err", err)
		}
	}
	return v, nil
}
