package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anuphat-bit/Eco-Hero/core"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string        `json:"addr" env:"ADDR, overwrite"`
	Password     string        `json:"password,omitempty" env:"PASSWORD, overwrite"`
	DB           int           `json:"db" env:"DB, overwrite"`
	PoolSize     int           `json:"pool_size" env:"POOL_SIZE, overwrite"`
	MinIdleConns int           `json:"min_idle_conns" env:"MIN_IDLE_CONNS, overwrite"`
	DialTimeout  time.Duration `json:"dial_timeout" env:"DIAL_TIMEOUT, overwrite"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"READ_TIMEOUT, overwrite"`
	WriteTimeout time.Duration `json:"write_timeout" env:"WRITE_TIMEOUT, overwrite"`
	KeyPrefix    string        `json:"key_prefix" env:"KEY_PREFIX, overwrite"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		KeyPrefix:    "eco",
	}
}

// Store implements engine.Store using Redis as the backend.
// Data structure:
// - {prefix}:departments -> hash of department id to JSON
// - {prefix}:department_ids -> list of department ids in seed order
// - {prefix}:users -> hash of user id to JSON (TotalPoints not stored here)
// - {prefix}:user_ids -> list of user ids in seed order
// - {prefix}:points -> hash of user id to cumulative eco-points
// - {prefix}:logs -> list of log entry JSON in commit order
// - {prefix}:log_ids -> set of committed log ids
type Store struct {
	client *redis.Client
	prefix string
}

// New creates a new Redis-backed storage with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client, prefix: prefixOr(config.KeyPrefix)}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefixOr(prefix)}
}

func prefixOr(p string) string {
	if p == "" {
		return "eco"
	}
	return p
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks connectivity for health endpoints.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) key(name string) string { return s.prefix + ":" + name }

// Lua script that upserts one roster row and records first-seen order.
var upsertScript = redis.NewScript(`
	local hash = KEYS[1]
	local order = KEYS[2]
	local id = ARGV[1]
	local body = ARGV[2]
	if redis.call('HEXISTS', hash, id) == 0 then
		redis.call('RPUSH', order, id)
	end
	redis.call('HSET', hash, id, body)
	return 1
`)

// Lua script for the atomic append: the log entry and the point increment
// are written together or not at all.
var appendLogScript = redis.NewScript(`
	local users = KEYS[1]
	local points = KEYS[2]
	local logs = KEYS[3]
	local ids = KEYS[4]
	local user = ARGV[1]
	local logid = ARGV[2]
	local delta = tonumber(ARGV[3])
	local body = ARGV[4]

	if redis.call('HEXISTS', users, user) == 0 then
		return redis.error_reply('user_not_found')
	end
	if redis.call('SISMEMBER', ids, logid) == 1 then
		return redis.error_reply('duplicate_log')
	end
	local current = tonumber(redis.call('HGET', points, user) or '0')
	local next_val = current + delta
	if next_val > 9007199254740991 or next_val < -9007199254740991 then
		return redis.error_reply('integer overflow')
	end
	redis.call('RPUSH', logs, body)
	redis.call('SADD', ids, logid)
	return redis.call('HINCRBY', points, user, delta)
`)

func (s *Store) SeedRoster(ctx context.Context, departments []core.Department, users []core.User) error {
	for _, d := range departments {
		body, err := json.Marshal(d)
		if err != nil {
			return err
		}
		if err := upsertScript.Run(ctx, s.client, []string{s.key("departments"), s.key("department_ids")}, string(d.ID), body).Err(); err != nil {
			return fmt.Errorf("failed to seed department %s: %w", d.ID, err)
		}
	}
	for _, u := range users {
		u.TotalPoints = 0
		body, err := json.Marshal(u)
		if err != nil {
			return err
		}
		if err := upsertScript.Run(ctx, s.client, []string{s.key("users"), s.key("user_ids")}, string(u.ID), body).Err(); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.ID, err)
		}
	}
	return nil
}

func (s *Store) Departments(ctx context.Context) ([]core.Department, error) {
	ids, err := s.client.LRange(ctx, s.key("department_ids"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	out := make([]core.Department, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	vals, err := s.client.HMGet(ctx, s.key("departments"), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load departments: %w", err)
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var d core.Department
		if err := json.Unmarshal([]byte(str), &d); err != nil {
			return nil, fmt.Errorf("decode department %s: %w", ids[i], err)
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) Users(ctx context.Context) ([]core.User, error) {
	ids, err := s.client.LRange(ctx, s.key("user_ids"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	out := make([]core.User, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	pipe := s.client.Pipeline()
	bodies := pipe.HMGet(ctx, s.key("users"), ids...)
	totals := pipe.HMGet(ctx, s.key("points"), ids...)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	pts := totals.Val()
	for i, v := range bodies.Val() {
		str, ok := v.(string)
		if !ok {
			continue
		}
		u, err := decodeUser(str, pts[i])
		if err != nil {
			return nil, fmt.Errorf("decode user %s: %w", ids[i], err)
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *Store) User(ctx context.Context, id core.UserID) (core.User, error) {
	pipe := s.client.Pipeline()
	body := pipe.HGet(ctx, s.key("users"), string(id))
	total := pipe.HGet(ctx, s.key("points"), string(id))
	_, err := pipe.Exec(ctx)
	if err != nil && !errors.Is(err, redis.Nil) {
		return core.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	str, err := body.Result()
	if errors.Is(err, redis.Nil) {
		return core.User{}, fmt.Errorf("user %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, err
	}
	var pts any
	if v, err := total.Result(); err == nil {
		pts = v
	}
	return decodeUser(str, pts)
}

func decodeUser(body string, points any) (core.User, error) {
	var u core.User
	if err := json.Unmarshal([]byte(body), &u); err != nil {
		return core.User{}, err
	}
	if str, ok := points.(string); ok {
		if _, err := fmt.Sscan(str, &u.TotalPoints); err != nil {
			return core.User{}, fmt.Errorf("points %q: %w", str, err)
		}
	}
	return u, nil
}

func (s *Store) Logs(ctx context.Context) ([]core.LogEntry, error) {
	raw, err := s.client.LRange(ctx, s.key("logs"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load logs: %w", err)
	}
	out := make([]core.LogEntry, 0, len(raw))
	for _, r := range raw {
		var e core.LogEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("decode log: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// AppendLog atomically appends the entry and increments the user's points.
func (s *Store) AppendLog(ctx context.Context, entry core.LogEntry) (int64, error) {
	body, err := json.Marshal(entry)
	if err != nil {
		return 0, err
	}
	keys := []string{s.key("users"), s.key("points"), s.key("logs"), s.key("log_ids")}
	result, err := appendLogScript.Run(ctx, s.client, keys, string(entry.UserID), string(entry.ID), entry.EcoPoints, body).Result()
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "user_not_found"):
			return 0, fmt.Errorf("user %s: %w", entry.UserID, core.ErrNotFound)
		case strings.Contains(err.Error(), "duplicate_log"):
			return 0, fmt.Errorf("%w: duplicate log id %s", core.ErrInvalidInput, entry.ID)
		case strings.Contains(err.Error(), "integer overflow"):
			return 0, fmt.Errorf("%w: integer overflow for user %s", core.ErrInvalidInput, entry.UserID)
		}
		return 0, fmt.Errorf("failed to append log: %w", err)
	}
	total, ok := result.(int64)
	if !ok {
		return 0, errors.New("unexpected result type from Redis script")
	}
	return total, nil
}
