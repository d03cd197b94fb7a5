package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"media-dubber/internal/domain"
)

// RedisStore mirrors job snapshots into Redis so a second process (a
// status page, a metrics scraper, a future distributed worker) can read
// them without talking to this process directly, following the same
// key-per-record pattern the ossrs-oryx dubbing service uses for its
// SrsDubbingProject/SrsDubbingTask persistence.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore builds a store against an already-configured client.
func NewRedisStore(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "media-dubber:job:"
	}
	return &RedisStore{client: client, prefix: keyPrefix, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Save writes the job snapshot as JSON under its key, refreshing the TTL.
func (s *RedisStore) Save(ctx context.Context, job domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	return s.client.Set(ctx, s.key(job.ID), data, s.ttl).Err()
}

// Delete removes the job's mirrored record.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

// Load reads back a mirrored job snapshot, used only for cross-process
// inspection tools; the owning Registry never reads through this path.
func (s *RedisStore) Load(ctx context.Context, id string) (domain.Job, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		return domain.Job{}, err
	}
	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return domain.Job{}, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return job, nil
}
