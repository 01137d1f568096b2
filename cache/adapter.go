package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kasuganosora/miridle/server/cache/local"
	cacheredis "github.com/kasuganosora/miridle/server/cache/redis"
	"github.com/kasuganosora/miridle/server/config"
)

// Cache is the key/value and sorted-set surface shared by the Redis and
// in-process backends. Room leases use the KV half, the level ranking the
// sorted sets.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)

	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZScore(ctx context.Context, key, member string) (float64, error)

	Close() error
}

// IsNotFound reports whether err is a missing-key error from either backend.
func IsNotFound(err error) bool {
	return errors.Is(err, local.ErrNotFound) || errors.Is(err, cacheredis.ErrNotFound)
}

// Message is a received pub/sub message.
type Message struct {
	Channel string
	Payload string
}

// PubSub carries room events between the simulation and the SSE streams.
type PubSub interface {
	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error)
	Close() error
}

const defaultPubSubBuf = 256

func redisConfig(cfg config.CacheConfig) cacheredis.Config {
	return cacheredis.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.KeyPrefix,
	}
}

// NewCache returns Redis when RedisAddr is set and an in-process cache
// otherwise.
func NewCache(cfg config.CacheConfig) (Cache, error) {
	if cfg.RedisAddr != "" {
		return cacheredis.NewCache(redisConfig(cfg))
	}
	return local.NewCache(local.Config{GCInterval: cfg.LocalGCInterval})
}

// NewPubSub picks the backend the same way NewCache does.
func NewPubSub(cfg config.CacheConfig) (PubSub, error) {
	if cfg.RedisAddr != "" {
		ps, err := cacheredis.NewPubSub(redisConfig(cfg))
		if err != nil {
			return nil, err
		}
		return redisPubSub{ps}, nil
	}
	buf := cfg.LocalPubSubBuf
	if buf <= 0 {
		buf = defaultPubSubBuf
	}
	return localPubSub{local.NewPubSub(buf)}, nil
}

// bridge converts a backend message stream to *Message. The returned cancel
// stops the bridge as well as the backend subscription, so an abandoned
// reader never pins the goroutine.
func bridge[T any](in <-chan T, stop func(), conv func(T) *Message) (<-chan *Message, func()) {
	out := make(chan *Message, defaultPubSubBuf)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for msg := range in {
			select {
			case out <- conv(msg):
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return out, func() {
		once.Do(func() {
			close(done)
			stop()
		})
	}
}

type localPubSub struct{ ps *local.LocalPubSub }

func (a localPubSub) Publish(ctx context.Context, channel, message string) error {
	return a.ps.Publish(ctx, channel, message)
}

func (a localPubSub) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	in, stop, err := a.ps.Subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	out, cancel := bridge(in, stop, func(m *local.LocalMessage) *Message {
		return &Message{Channel: m.Channel, Payload: m.Payload}
	})
	return out, cancel, nil
}

func (a localPubSub) Close() error { return a.ps.Close() }

type redisPubSub struct{ ps *cacheredis.RedisPubSub }

func (a redisPubSub) Publish(ctx context.Context, channel, message string) error {
	return a.ps.Publish(ctx, channel, message)
}

func (a redisPubSub) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	in, stop, err := a.ps.Subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	out, cancel := bridge(in, stop, func(m *cacheredis.RedisMessage) *Message {
		return &Message{Channel: m.Channel, Payload: m.Payload}
	})
	return out, cancel, nil
}

func (a redisPubSub) Close() error { return a.ps.Close() }
