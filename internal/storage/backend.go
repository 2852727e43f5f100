// Package storage persists the finance snapshot under a single key.
//
// A Backend is a dumb key/value slot: the whole FinanceData object is
// serialized to one JSON blob and rewritten on every mutation.
package storage

import (
	"context"
	"errors"
)

// DefaultKey is the slot name used when none is configured.
const DefaultKey = "finance_tracker_v2"

// ErrNotFound is returned by Load when nothing is stored under the key.
var ErrNotFound = errors.New("snapshot not found")

// Backend stores opaque blobs by key.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Pinger is implemented by backends that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
