// logicbits/pkg/store/store.go

// Package store is the Redis transport for the daemon: it receives event
// records over pub/sub, publishes verdicts and keeps running counters. It
// never stores rule sets.
package store

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// CountersKey is the hash holding the daemon's running counters.
const CountersKey = "logicbits:counters"

type Store interface {
	Subscribe(ctx context.Context, channels ...string) (*redis.PubSub, error)
	PublishRecord(ctx context.Context, channel string, record map[string]interface{}) error
	PublishVerdict(ctx context.Context, channel string, verdict interface{}) error
	IncrCounter(ctx context.Context, name string, by int64) error
	Counters(ctx context.Context) (map[string]int64, error)
	ResetCounters(ctx context.Context) error
	Close() error
}
