package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Epistemic-Technology/vetrecords/models"
)

const (
	redisKeyPrefix = "vetrecords:extraction:"
	redisIndexKey  = "vetrecords:extractions"
)

// RedisOptions configures the redis backend. A zero TTL keeps results until deleted.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisStore keeps each result as a JSON string with a sorted-set index by creation time.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStore{client: client, ttl: opts.TTL}, nil
}

func redisKey(id string) string { return redisKeyPrefix + id }

func (s *RedisStore) SaveExtraction(ctx context.Context, result *models.ExtractionResult) error {
	if result.ID == "" {
		return fmt.Errorf("extraction has no ID")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal extraction: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisKey(result.ID), payload, s.ttl)
		pipe.ZAdd(ctx, redisIndexKey, redis.Z{
			Score:  float64(result.CreatedAt.UnixMilli()),
			Member: result.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save extraction: %w", err)
	}
	return nil
}

func (s *RedisStore) GetExtraction(ctx context.Context, id string) (*models.ExtractionResult, error) {
	payload, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get extraction: %w", err)
	}
	var result models.ExtractionResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal extraction: %w", err)
	}
	return &result, nil
}

func (s *RedisStore) ExtractionExists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, redisKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check extraction: %w", err)
	}
	return n > 0, nil
}

// ListExtractions reads the index newest first. Index entries whose payload has
// expired are pruned on the way.
func (s *RedisStore) ListExtractions(ctx context.Context) ([]models.ExtractionSummary, error) {
	ids, err := s.client.ZRevRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	summaries := []models.ExtractionSummary{}
	if len(ids) == 0 {
		return summaries, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load extractions: %w", err)
	}

	var stale []any
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var result models.ExtractionResult
		if err := json.Unmarshal([]byte(str), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal extraction %s: %w", ids[i], err)
		}
		summaries = append(summaries, result.Summarize())
	}
	if len(stale) > 0 {
		s.client.ZRem(ctx, redisIndexKey, stale...)
	}
	sortSummaries(summaries)
	return summaries, nil
}

func (s *RedisStore) DeleteExtraction(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, redisKey(id))
		pipe.ZRem(ctx, redisIndexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete extraction: %w", err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
