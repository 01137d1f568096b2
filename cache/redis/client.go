package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key or sorted-set member does not exist.
var ErrNotFound = errors.New("cache: key not found")

const (
	dialTimeout   = 5 * time.Second
	subscribeBuf  = 256
	subscribeWait = time.Second
)

// Config holds Redis connection settings. Prefix namespaces every key and
// channel so several deployments can share one Redis.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func dial(cfg Config) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// notFound maps redis.Nil onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, goredis.Nil) {
		return ErrNotFound
	}
	return err
}

type namespace string

func (n namespace) key(k string) string { return string(n) + k }

func (n namespace) keys(ks []string) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = n.key(k)
	}
	return out
}

func (n namespace) strip(k string) string { return strings.TrimPrefix(k, string(n)) }

// RedisCache is the Redis-backed cache.
type RedisCache struct {
	rdb *goredis.Client
	ns  namespace
}

// NewCache connects to Redis and verifies the connection.
func NewCache(cfg Config) (*RedisCache, error) {
	rdb, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisCache{rdb: rdb, ns: namespace(cfg.Prefix)}, nil
}

// Close releases the connection pool.
func (r *RedisCache) Close() error { return r.rdb.Close() }

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.Get(ctx, r.ns.key(key)).Result()
	return v, notFound(err)
}

func (r *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.rdb.Set(ctx, r.ns.key(key), value, ttl).Err()
}

func (r *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.rdb.Del(ctx, r.ns.keys(keys)...).Err()
}

func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.ns.key(key)).Result()
	return n == 1, err
}

func (r *RedisCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.rdb.SetNX(ctx, r.ns.key(key), value, ttl).Result()
}

func (r *RedisCache) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return r.rdb.ZAdd(ctx, r.ns.key(key), goredis.Z{Score: score, Member: member}).Err()
}

func (r *RedisCache) ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return r.rdb.ZRevRange(ctx, r.ns.key(key), start, stop).Result()
}

func (r *RedisCache) ZScore(ctx context.Context, key, member string) (float64, error) {
	v, err := r.rdb.ZScore(ctx, r.ns.key(key), member).Result()
	return v, notFound(err)
}

// RedisMessage is one message received from RedisPubSub. Channel has the
// namespace prefix removed.
type RedisMessage struct {
	Channel string
	Payload string
}

// RedisPubSub publishes and subscribes over Redis channels.
type RedisPubSub struct {
	rdb *goredis.Client
	ns  namespace
}

// NewPubSub connects to Redis and verifies the connection.
func NewPubSub(cfg Config) (*RedisPubSub, error) {
	rdb, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisPubSub{rdb: rdb, ns: namespace(cfg.Prefix)}, nil
}

// Close releases the connection pool.
func (r *RedisPubSub) Close() error { return r.rdb.Close() }

func (r *RedisPubSub) Publish(ctx context.Context, channel, message string) error {
	return r.rdb.Publish(ctx, r.ns.key(channel), message).Err()
}

// Subscribe returns once Redis has confirmed the subscription, so a message
// published right after is delivered. Cancel closes the returned channel.
func (r *RedisPubSub) Subscribe(ctx context.Context, channels ...string) (<-chan *RedisMessage, func(), error) {
	sub := r.rdb.Subscribe(ctx, r.ns.keys(channels)...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan *RedisMessage, subscribeBuf)
	done := make(chan struct{})
	in := sub.Channel(goredis.WithChannelSendTimeout(subscribeWait))
	go func() {
		defer close(out)
		for {
			select {
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- &RedisMessage{Channel: r.ns.strip(msg.Channel), Payload: msg.Payload}:
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}
	return out, cancel, nil
}
