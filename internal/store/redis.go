package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"a11y-checker/internal/models"
)

const (
	jobKeyPrefix = "a11y:job:"
	jobIndexKey  = "a11y:jobs"
	artifactsKey = "a11y:artifacts"

	// updateRetries bounds optimistic transaction retries when another
	// writer touches the same job between read and commit.
	updateRetries = 8
)

// RedisStore persists jobs in Redis so status survives process restarts.
// Atomic read-modify-write uses WATCH-based optimistic transactions.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}

func (s *RedisStore) Create(ctx context.Context, job models.Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	ok, err := s.client.SetNX(ctx, jobKey(job.ID), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("store job: %w", err)
	}
	if !ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	return s.client.ZAdd(ctx, jobIndexKey, redis.Z{
		Score:  float64(job.CreatedAt.UnixMilli()),
		Member: job.ID,
	}).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (models.Job, error) {
	raw, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Job{}, models.ErrNotFound
	}
	if err != nil {
		return models.Job{}, fmt.Errorf("get job: %w", err)
	}
	var job models.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return models.Job{}, fmt.Errorf("unmarshal job: %w", err)
	}
	return job, nil
}

func (s *RedisStore) Update(ctx context.Context, id string, mutate func(*models.Job) error) (models.Job, error) {
	key := jobKey(id)
	var updated models.Job

	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return models.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get job: %w", err)
		}
		var job models.Job
		if err := json.Unmarshal(raw, &job); err != nil {
			return fmt.Errorf("unmarshal job: %w", err)
		}
		if err := mutate(&job); err != nil {
			return err
		}
		out, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = job
		return nil
	}

	for i := 0; i < updateRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return models.Job{}, err
		}
		return updated, nil
	}
	return models.Job{}, fmt.Errorf("job %s: update contention not resolved after %d attempts", id, updateRetries)
}

func (s *RedisStore) List(ctx context.Context) ([]models.Job, error) {
	ids, err := s.client.ZRevRange(ctx, jobIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	out := make([]models.Job, 0, len(ids))
	for _, id := range ids {
		job, err := s.Get(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *RedisStore) RecordArtifact(ctx context.Context, art models.Artifact) error {
	if art.Key == "" {
		return fmt.Errorf("artifact %s has no object key", art.Name)
	}
	raw, err := json.Marshal(art)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	return s.client.HSet(ctx, artifactsKey, art.Key, raw).Err()
}

func (s *RedisStore) LookupArtifact(ctx context.Context, key string) (models.Artifact, error) {
	raw, err := s.client.HGet(ctx, artifactsKey, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Artifact{}, models.ErrNotFound
	}
	if err != nil {
		return models.Artifact{}, fmt.Errorf("lookup artifact: %w", err)
	}
	var art models.Artifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return models.Artifact{}, fmt.Errorf("unmarshal artifact: %w", err)
	}
	return art, nil
}

// Ping verifies connectivity at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err()
}
