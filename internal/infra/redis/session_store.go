package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"voice-quiz-service/internal/domain"
)

// SessionStore keeps each user's payload in a Redis hash next to a version
// counter:
//
//	HSET quiz:session:{userID} current {...} all {...} q {id}
//	SET  quiz:session:{userID}:version 3
//
// Saves WATCH both keys, compare the version with the one loaded and replace
// the hash inside MULTI/EXEC, so two processes can never both commit a turn
// built on the same state. A positive TTL expires idle users.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client: client,
		ttl:    ttl,
	}
}

func (s *SessionStore) Load(ctx context.Context, userID string) (domain.Payload, int64, error) {
	var (
		fields  *redis.MapStringStringCmd
		version *redis.StringCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		fields = pipe.HGetAll(ctx, s.key(userID))
		version = pipe.Get(ctx, s.versionKey(userID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, err
	}

	v, err := version.Int64()
	if errors.Is(err, redis.Nil) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("session version: %w", err)
	}
	return domain.Payload(fields.Val()), v, nil
}

func (s *SessionStore) Save(ctx context.Context, userID string, payload domain.Payload, expected int64) error {
	key, versionKey := s.key(userID), s.versionKey(userID)
	values := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		values[k] = v
	}

	conflict := func(current int64) error {
		return fmt.Errorf("%w: user %s at version %d, expected %d", domain.ErrSessionConflict, userID, current, expected)
	}

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != expected {
			return conflict(current)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			if len(values) > 0 {
				pipe.HSet(ctx, key, values)
			}
			pipe.Set(ctx, versionKey, current+1, s.ttl)
			if s.ttl > 0 {
				pipe.Expire(ctx, key, s.ttl)
			}
			return nil
		})
		return err
	}, key, versionKey)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: user %s changed during save", domain.ErrSessionConflict, userID)
	}
	return err
}

func (s *SessionStore) key(userID string) string {
	return "quiz:session:" + userID
}

func (s *SessionStore) versionKey(userID string) string {
	return s.key(userID) + ":version"
}
