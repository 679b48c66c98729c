package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// storedPair is the JSON value kept under session:{userID}.
type storedPair struct {
	AuthToken    string `json:"auth_token"`
	RefreshToken string `json:"refresh_token"`
}

// RedisRepository keeps one key per user. Keys expire together with the
// refresh token, so abandoned sessions clean themselves up.
type RedisRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisRepository returns a store on client whose keys live for ttl.
// A non-positive ttl disables expiry.
func NewRedisRepository(client redis.UniversalClient, ttl time.Duration) *RedisRepository {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisRepository{client: client, ttl: ttl}
}

func key(userID string) string {
	return keyPrefix + userID
}

func (r *RedisRepository) Get(ctx context.Context, userID string) (models.TokenPair, error) {
	return getPair(ctx, r.client, key(userID))
}

// Insert relies on SETNX, so of two concurrent inserts exactly one wins.
func (r *RedisRepository) Insert(ctx context.Context, userID string, pair models.TokenPair) (models.TokenPair, error) {
	val, err := encodePair(pair)
	if err != nil {
		return models.TokenPair{}, err
	}

	ok, err := r.client.SetNX(ctx, key(userID), val, r.ttl).Result()
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("redis error: %w", err)
	}
	if !ok {
		return models.TokenPair{}, common.ErrConflict
	}
	return pair, nil
}

// Update uses SET XX: it only writes when the key already exists.
func (r *RedisRepository) Update(ctx context.Context, userID string, pair models.TokenPair) (models.TokenPair, error) {
	val, err := encodePair(pair)
	if err != nil {
		return models.TokenPair{}, err
	}

	ok, err := r.client.SetXX(ctx, key(userID), val, r.ttl).Result()
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("redis error: %w", err)
	}
	if !ok {
		return models.TokenPair{}, common.ErrNotFound
	}
	return pair, nil
}

func (r *RedisRepository) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// CompareAndSwap watches the key, compares and writes in MULTI/EXEC. Any
// write to the key between WATCH and EXEC aborts the transaction.
func (r *RedisRepository) CompareAndSwap(ctx context.Context, userID string, expected, next models.TokenPair) (models.TokenPair, error) {
	k := key(userID)

	val, err := encodePair(next)
	if err != nil {
		return models.TokenPair{}, err
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := getPair(ctx, tx, k)
		if err != nil {
			return err
		}
		if !current.Equal(expected) {
			return common.ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, val, r.ttl)
			return nil
		})
		return err
	}, k)

	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, redis.TxFailedErr):
		return models.TokenPair{}, common.ErrConflict
	case errors.Is(err, common.ErrConflict), errors.Is(err, common.ErrNotFound):
		return models.TokenPair{}, err
	default:
		return models.TokenPair{}, fmt.Errorf("redis error: %w", err)
	}
}

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getPair(ctx context.Context, c getter, k string) (models.TokenPair, error) {
	raw, err := c.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.TokenPair{}, common.ErrNotFound
		}
		return models.TokenPair{}, fmt.Errorf("redis error: %w", err)
	}

	var sp storedPair
	if err := json.Unmarshal(raw, &sp); err != nil {
		return models.TokenPair{}, fmt.Errorf("%w: decoding session: %v", common.ErrInternal, err)
	}
	return models.TokenPair{AccessToken: sp.AuthToken, RefreshToken: sp.RefreshToken}, nil
}

func encodePair(p models.TokenPair) ([]byte, error) {
	b, err := json.Marshal(storedPair{AuthToken: p.AccessToken, RefreshToken: p.RefreshToken})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding session: %v", common.ErrInternal, err)
	}
	return b, nil
}
