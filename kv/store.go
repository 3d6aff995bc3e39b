package kv

import (
	"context"
	"errors"
)

// ErrUnavailable wraps backend failures (connection loss, closed store).
var ErrUnavailable = errors.New("kv store unavailable")

// ErrEmptyKey is returned when an operation receives an empty key.
var ErrEmptyKey = errors.New("kv key must not be empty")

// Entry is one result of [Store.MultiGet]. Present is false when the key
// does not exist; Value is then empty.
type Entry struct {
	Key     string
	Value   string
	Present bool
}

// Pair is one key/value assignment for [Store.MultiSet].
type Pair struct {
	Key   string
	Value string
}

// Store is a durable string key-value store.
//
// MultiGet returns one Entry per requested key, in request order.
type Store interface {
	MultiGet(ctx context.Context, keys []string) ([]Entry, error)
	MultiSet(ctx context.Context, pairs []Pair) error
	SetItem(ctx context.Context, key, value string) error
	MultiRemove(ctx context.Context, keys []string) error
}

func validateKeys(keys []string) error {
	for _, k := range keys {
		if k == "" {
			return ErrEmptyKey
		}
	}
	return nil
}

func validatePairs(pairs []Pair) error {
	for _, p := range pairs {
		if p.Key == "" {
			return ErrEmptyKey
		}
	}
	return nil
}
