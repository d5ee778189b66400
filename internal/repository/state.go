package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
)

// StateRepository mirrors selected game-state fields into session-scoped
// storage: one key per field under a fixed prefix, JSON-encoded values.
type StateRepository interface {
	SaveField(ctx context.Context, name string, value any) error
	LoadField(ctx context.Context, name string, target any) error
	Clear(ctx context.Context) error
}

type dbState struct {
	client *redis.Client
	prefix string
}

func NewStateRepository(client *redis.Client, prefix string) StateRepository {
	return &dbState{
		client: client,
		prefix: prefix,
	}
}

func (that *dbState) SaveField(ctx context.Context, name string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("could not marshal field %q: %w", name, err)
	}

	if err = that.client.Set(ctx, that.prefix+name, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to set field %q: %w", name, err)
	}

	return nil
}

func (that *dbState) LoadField(ctx context.Context, name string, target any) error {
	response, err := that.client.Get(ctx, that.prefix+name).Result()

	if errors.Is(err, redis.Nil) {
		return apperror.ErrNotFound
	}

	if err != nil {
		return fmt.Errorf("failed to get field %q: %w", name, err)
	}

	if err = json.Unmarshal([]byte(response), target); err != nil {
		return fmt.Errorf("failed to unmarshal field %q: %w", name, err)
	}

	return nil
}

// Clear removes every mirrored field. Keys outside the prefix are not
// touched.
func (that *dbState) Clear(ctx context.Context) error {
	iter := that.client.Scan(ctx, 0, that.prefix+"*", 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan fields: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := that.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete fields: %w", err)
	}

	return nil
}
