package cache

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"discovery/internal/model"
	"discovery/internal/repository"
)

const scanBatch = 100

// responseCache stores each response as a Redis hash of flat entity fields
type responseCache struct {
	client        *redis.Client
	totalSections int
	logger        *zap.Logger
}

// NewResponseCache creates a Redis-backed response repository
func NewResponseCache(client *redis.Client, totalSections int, logger *zap.Logger) repository.ResponseRepo {
	return &responseCache{
		client:        client,
		totalSections: totalSections,
		logger:        logger,
	}
}

func (c *responseCache) key(userID string) string {
	return fmt.Sprintf("%s:%s", model.ResponsePartition, userID)
}

func (c *responseCache) Get(ctx context.Context, userID string) (*model.QuestionnaireResponse, error) {
	fields, err := c.client.HGetAll(ctx, c.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get response %s: %w", userID, err)
	}
	// HGETALL on a missing key is an empty map rather than redis.Nil
	if len(fields) == 0 {
		return nil, nil
	}
	return repository.DecodeEntityLogged(fields, c.totalSections, c.logger), nil
}

// Save replaces the whole hash so fields dropped from the record do not linger
func (c *responseCache) Save(ctx context.Context, response *model.QuestionnaireResponse) error {
	fields, err := repository.EncodeEntity(response)
	if err != nil {
		return fmt.Errorf("failed to encode response %s: %w", response.RowKey, err)
	}
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}

	key := c.key(response.RowKey)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save response %s: %w", response.RowKey, err)
	}
	return nil
}

func (c *responseCache) List(ctx context.Context) ([]*model.QuestionnaireResponse, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, c.key("*"), scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan responses: %w", err)
	}
	sort.Strings(keys)

	responses := make([]*model.QuestionnaireResponse, 0, len(keys))
	for _, key := range keys {
		fields, err := c.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		if len(fields) == 0 {
			continue
		}
		responses = append(responses, repository.DecodeEntityLogged(fields, c.totalSections, c.logger))
	}
	return responses, nil
}
