package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisOpTimeout = 3 * time.Second

// RedisStore keeps session state in Redis, keyed by a session ID, for
// deployments where a console gateway holds sessions for many browsers.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig configures a RedisStore
type RedisConfig struct {
	URL       string
	Password  string
	DB        int
	SessionID string
}

// NewRedisStore connects to Redis and returns a store scoped to the
// configured session ID.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.SessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB >= 0 {
		opts.DB = cfg.DB
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = redisOpTimeout
	opts.WriteTimeout = redisOpTimeout

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{
		client:    client,
		keyPrefix: "pagegate:session:" + cfg.SessionID + ":",
	}, nil
}

// NewRedisStoreWithClient wraps an existing client, used in tests
func NewRedisStoreWithClient(client *redis.Client, sessionID string) *RedisStore {
	return &RedisStore{
		client:    client,
		keyPrefix: "pagegate:session:" + sessionID + ":",
	}
}

// Close releases the underlying connection pool
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(name string) string {
	return s.keyPrefix + name
}

func (s *RedisStore) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisOpTimeout)
}

// Credentials returns the stored token pair
func (s *RedisStore) Credentials() (Credentials, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	vals, err := s.client.MGet(ctx, s.key("access_token"), s.key("refresh_token")).Result()
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if v, ok := vals[0].(string); ok {
		creds.AccessToken = v
	}
	if v, ok := vals[1].(string); ok {
		creds.RefreshToken = v
	}
	return creds, nil
}

// SetCredentials replaces the token pair
func (s *RedisStore) SetCredentials(creds Credentials) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key("access_token"), creds.AccessToken, 0)
	pipe.Set(ctx, s.key("refresh_token"), creds.RefreshToken, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

// SetAccessToken replaces only the access token
func (s *RedisStore) SetAccessToken(token string) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	if err := s.client.Set(ctx, s.key("access_token"), token, 0).Err(); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	return nil
}

// Identity returns the cached identity
func (s *RedisStore) Identity() (*Identity, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	data, err := s.client.Get(ctx, s.key("identity")).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read identity: %w", err)
	}

	var identity Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("failed to decode identity: %w", err)
	}
	return &identity, nil
}

// SetIdentity caches the identity
func (s *RedisStore) SetIdentity(identity *Identity) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	if identity == nil {
		if err := s.client.Del(ctx, s.key("identity")).Err(); err != nil {
			return fmt.Errorf("failed to remove identity: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}
	if err := s.client.Set(ctx, s.key("identity"), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store identity: %w", err)
	}
	return nil
}

// LastActivity returns the last recorded activity time
func (s *RedisStore) LastActivity() (time.Time, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	val, err := s.client.Get(ctx, s.key("last_activity")).Int64()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read last activity: %w", err)
	}
	return time.UnixMilli(val), nil
}

// SetLastActivity records user activity
func (s *RedisStore) SetLastActivity(t time.Time) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	if err := s.client.Set(ctx, s.key("last_activity"), t.UnixMilli(), 0).Err(); err != nil {
		return fmt.Errorf("failed to store last activity: %w", err)
	}
	return nil
}

// Clear removes all session keys in one DEL, so a concurrent reader sees
// either the full session or none of it.
func (s *RedisStore) Clear() error {
	ctx, cancel := s.opCtx()
	defer cancel()

	err := s.client.Del(ctx,
		s.key("access_token"),
		s.key("refresh_token"),
		s.key("last_activity"),
		s.key("identity"),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
