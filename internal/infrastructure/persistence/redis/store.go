// Package redis implements the key-value store contract on Redis.
//
// Every record lives under a namespaced string key. Change notification is
// backed by pub/sub: each write publishes the change, and every store
// instance subscribed to the channel fans it out to its observers, so two
// processes sharing one Redis see each other's writes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kv"
	"github.com/ext-flex/extflex-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection configuration.
type Config struct {
	// Host is the Redis server hostname.
	Host string

	// Port is the Redis server port.
	Port int

	// Password is the Redis authentication password (empty if no auth).
	Password string

	// DB is the Redis database number (0-15).
	DB int

	// KeyPrefix namespaces every record key.
	KeyPrefix string

	// PoolSize is the maximum number of socket connections.
	PoolSize int

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration

	// ReadTimeout is the timeout for socket reads.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for socket writes.
	WriteTimeout time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		DB:           0,
		KeyPrefix:    "extflex:",
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Addr returns the Redis address in "host:port" format.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ErrConnection is returned when the Redis connection cannot be established.
var ErrConnection = errors.New("redis: connection failed")

// changeChannel is the pub/sub channel change notifications travel on.
const changeChannel = "changes"

// changeMessage is the wire form of a change notification.
type changeMessage struct {
	Key     string `json:"key"`
	Value   []byte `json:"value,omitempty"`
	Removed bool   `json:"removed,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store is a Redis-backed kv.Store.
type Store struct {
	client *redis.Client
	config Config

	mu       sync.Mutex
	handlers map[int]kv.ChangeHandler
	nextID   int
	closed   bool

	pubsub *redis.PubSub
	done   chan struct{}
}

var _ kv.Store = (*Store)(nil)

// NewStore connects to Redis and starts the change-notification listener.
func NewStore(cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*cfg.DialTimeout)
	defer cancel()

	// A cold Redis (container still starting, failover in progress) usually
	// answers on the second or third ping.
	err := retry.StorageRetrier().Do(ctx, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return retry.Retryable(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	s := &Store{
		client:   client,
		config:   cfg,
		handlers: make(map[int]kv.ChangeHandler),
		done:     make(chan struct{}),
	}

	s.pubsub = client.Subscribe(context.Background(), cfg.KeyPrefix+changeChannel)
	go s.listen()

	return s, nil
}

func (s *Store) recordKey(key string) string {
	return s.config.KeyPrefix + key
}

// Get returns the document under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.recordKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, kv.ErrKeyNotFound
		}
		return nil, fmt.Errorf("redis: get %q: %w", key, err)
	}
	return data, nil
}

// Set writes the document under key and publishes the change.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.recordKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis: set %q: %w", key, err)
	}
	s.publish(ctx, changeMessage{Key: key, Value: value})
	return nil
}

// Remove deletes the key and publishes the change.
func (s *Store) Remove(ctx context.Context, key string) error {
	deleted, err := s.client.Del(ctx, s.recordKey(key)).Result()
	if err != nil {
		return fmt.Errorf("redis: remove %q: %w", key, err)
	}
	if deleted > 0 {
		s.publish(ctx, changeMessage{Key: key, Removed: true})
	}
	return nil
}

// Clear deletes every record under the configured prefix.
func (s *Store) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.config.KeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis: clear scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: clear: %w", err)
	}
	for _, full := range keys {
		s.publish(ctx, changeMessage{Key: full[len(s.config.KeyPrefix):], Removed: true})
	}
	return nil
}

// OnChange registers a change observer.
func (s *Store) OnChange(handler kv.ChangeHandler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.handlers[id] = handler

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers, id)
	}
}

// Close stops the listener and closes the client.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	_ = s.pubsub.Close()
	return s.client.Close()
}

func (s *Store) publish(ctx context.Context, msg changeMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	// Best effort: a failed notification does not fail the write.
	_ = s.client.Publish(ctx, s.config.KeyPrefix+changeChannel, data).Err()
}

// listen fans incoming change notifications out to local observers.
func (s *Store) listen() {
	ch := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var change changeMessage
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				continue
			}

			s.mu.Lock()
			handlers := make([]kv.ChangeHandler, 0, len(s.handlers))
			for _, h := range s.handlers {
				handlers = append(handlers, h)
			}
			s.mu.Unlock()

			c := kv.Change{Key: change.Key}
			if !change.Removed {
				c.Value = change.Value
			}
			for _, h := range handlers {
				h(c)
			}
		}
	}
}
