package kv

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis is a [Store] backed by a Redis server. Keys are stored as plain
// strings under an optional prefix so several devices or profiles can
// share one server.
//
// MultiSet maps to a single MSET and MultiRemove to a single DEL, both of
// which Redis applies atomically.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis creates a store on the given client. prefix may be empty; when
// set it is joined to every key with ":".
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
	}
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *Redis) keys(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = r.key(k)
	}
	return out
}

// MultiGet reads every key with one MGET. Non-string replies count as absent.
func (r *Redis) MultiGet(ctx context.Context, keys []string) ([]Entry, error) {
	if err := validateKeys(keys); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []Entry{}, nil
	}

	vals, err := r.client.MGet(ctx, r.keys(keys)...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: mget: %w", ErrUnavailable, err)
	}

	out := make([]Entry, len(keys))
	for i, k := range keys {
		out[i] = Entry{Key: k}
		if i >= len(vals) || vals[i] == nil {
			continue
		}
		s, ok := vals[i].(string)
		if !ok {
			continue
		}
		out[i].Value = s
		out[i].Present = true
	}
	return out, nil
}

// MultiSet writes all pairs atomically with MSET.
func (r *Redis) MultiSet(ctx context.Context, pairs []Pair) error {
	if err := validatePairs(pairs); err != nil {
		return err
	}
	if len(pairs) == 0 {
		return nil
	}

	args := make([]interface{}, 0, len(pairs)*2)
	for _, p := range pairs {
		args = append(args, r.key(p.Key), p.Value)
	}
	if err := r.client.MSet(ctx, args...).Err(); err != nil {
		return fmt.Errorf("%w: mset: %w", ErrUnavailable, err)
	}
	return nil
}

// SetItem writes one key with SET and no expiry.
func (r *Redis) SetItem(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: set: %w", ErrUnavailable, err)
	}
	return nil
}

// MultiRemove deletes keys with one DEL.
func (r *Redis) MultiRemove(ctx context.Context, keys []string) error {
	if err := validateKeys(keys); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, r.keys(keys)...).Err(); err != nil {
		return fmt.Errorf("%w: del: %w", ErrUnavailable, err)
	}
	return nil
}

// Ping checks connectivity to the server.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrUnavailable, err)
	}
	return nil
}
