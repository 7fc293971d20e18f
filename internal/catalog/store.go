package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// EntriesKey returns the Redis hash holding one node's entries of one type.
// Pattern: drey:{instance_name}:catalog:{type}
func EntriesKey(instanceName, entryType string) string {
	return fmt.Sprintf("drey:%s:catalog:%s", instanceName, entryType)
}

// Store is a node's catalog in Redis. Safe for concurrent use.
type Store struct {
	rdb          *redis.Client
	instanceName string
}

// NewStore creates a catalog store namespaced by instanceName.
func NewStore(rdb *redis.Client, instanceName string) (*Store, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	return &Store{rdb: rdb, instanceName: instanceName}, nil
}

// Apply performs e against the store. It returns false, without error, when
// the event is valid but the target does not exist (update or delete).
func (s *Store) Apply(ctx context.Context, e *Event) (bool, error) {
	if err := e.Validate(); err != nil {
		return false, fmt.Errorf("invalid event: %w", err)
	}

	key := EntriesKey(s.instanceName, e.Type)

	switch e.Op {
	case OpPut:
		if err := s.rdb.HSet(ctx, key, e.Name, e.Body).Err(); err != nil {
			return false, fmt.Errorf("failed to write entry: %w", err)
		}
		return true, nil

	case OpUpdate:
		exists, err := s.rdb.HExists(ctx, key, e.Name).Result()
		if err != nil {
			return false, fmt.Errorf("failed to check entry: %w", err)
		}
		if !exists {
			return false, nil
		}
		if err := s.rdb.HSet(ctx, key, e.Name, e.Body).Err(); err != nil {
			return false, fmt.Errorf("failed to update entry: %w", err)
		}
		return true, nil

	default: // OpDelete
		n, err := s.rdb.HDel(ctx, key, e.Name).Result()
		if err != nil {
			return false, fmt.Errorf("failed to delete entry: %w", err)
		}
		return n > 0, nil
	}
}

// Get returns the body of an entry.
// Returns ("", redis.Nil) if the entry doesn't exist; use IsNotFound to check.
func (s *Store) Get(ctx context.Context, entryType, name string) (string, error) {
	body, err := s.rdb.HGet(ctx, EntriesKey(s.instanceName, entryType), name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", redis.Nil
		}
		return "", fmt.Errorf("failed to read entry: %w", err)
	}
	return body, nil
}

// List returns every entry of a type as name -> body.
// Returns an empty map if there are none.
func (s *Store) List(ctx context.Context, entryType string) (map[string]string, error) {
	entries, err := s.rdb.HGetAll(ctx, EntriesKey(s.instanceName, entryType)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
