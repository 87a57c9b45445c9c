// logicbits/pkg/store/redis_store.go

package store

import (
	"context"
	"encoding/json"
	"strconv"

	"rgehrsitz/logicbits/pkg/logging"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection with a PING.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	logging.Logger.Info().Str("addr", addr).Int("db", db).Msg("Connecting to Redis")

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, logging.NewError(logging.ErrorTypeStore, "failed to connect to Redis", err, map[string]interface{}{"addr": addr})
	}

	logging.Logger.Info().Msg("Successfully connected to Redis")
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Subscribe subscribes to channels and waits for the confirmation.
func (s *RedisStore) Subscribe(ctx context.Context, channels ...string) (*redis.PubSub, error) {
	logging.Logger.Info().Strs("channels", channels).Msg("Subscribing to Redis channels")

	pubsub := s.client.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, logging.NewError(logging.ErrorTypeStore, "failed to subscribe", err, map[string]interface{}{"channels": channels})
	}

	logging.Logger.Info().Strs("channels", channels).Msg("Successfully subscribed to Redis channels")
	return pubsub, nil
}

// PublishRecord publishes record as a JSON object on channel.
func (s *RedisStore) PublishRecord(ctx context.Context, channel string, record map[string]interface{}) error {
	return s.publish(ctx, channel, record)
}

// PublishVerdict publishes verdict as JSON on channel.
func (s *RedisStore) PublishVerdict(ctx context.Context, channel string, verdict interface{}) error {
	return s.publish(ctx, channel, verdict)
}

func (s *RedisStore) publish(ctx context.Context, channel string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Logger.Error().Err(err).Str("channel", channel).Msg("Failed to marshal message")
		return logging.NewError(logging.ErrorTypeStore, "failed to marshal message", err, map[string]interface{}{"channel": channel})
	}
	if err := s.client.Publish(ctx, channel, data).Err(); err != nil {
		logging.Logger.Error().Err(err).Str("channel", channel).Msg("Failed to publish message")
		return logging.NewError(logging.ErrorTypeStore, "failed to publish message", err, map[string]interface{}{"channel": channel})
	}
	logging.Logger.Debug().Str("channel", channel).Int("bytes", len(data)).Msg("Published message")
	return nil
}

// IncrCounter adds by to the named counter.
func (s *RedisStore) IncrCounter(ctx context.Context, name string, by int64) error {
	if err := s.client.HIncrBy(ctx, CountersKey, name, by).Err(); err != nil {
		return logging.NewError(logging.ErrorTypeStore, "failed to increment counter", err, map[string]interface{}{"counter": name})
	}
	return nil
}

// Counters returns every counter. Missing hashes yield an empty map.
func (s *RedisStore) Counters(ctx context.Context) (map[string]int64, error) {
	raw, err := s.client.HGetAll(ctx, CountersKey).Result()
	if err != nil {
		return nil, logging.NewError(logging.ErrorTypeStore, "failed to read counters", err, nil)
	}
	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			logging.Logger.Warn().Str("counter", k).Str("value", v).Msg("Ignoring non-integer counter")
			continue
		}
		out[k] = n
	}
	return out, nil
}

func (s *RedisStore) ResetCounters(ctx context.Context) error {
	if err := s.client.Del(ctx, CountersKey).Err(); err != nil {
		return logging.NewError(logging.ErrorTypeStore, "failed to reset counters", err, nil)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
