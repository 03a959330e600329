package sysconfig

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store provides read/update access to the singleton policy row.
type Store interface {
	Get(ctx context.Context) (Config, error)
	Update(ctx context.Context, cfg Config) error
}

// --- In-memory store (tests, dev) ---

type InMemoryStore struct {
	mu  sync.RWMutex
	cfg Config
}

func NewInMemory(cfg Config) *InMemoryStore {
	return &InMemoryStore{cfg: cfg}
}

func (s *InMemoryStore) Get(context.Context) (Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, nil
}

func (s *InMemoryStore) Update(_ context.Context, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}

// --- Postgres store ---

// PostgresStore persists the policy as a single row keyed by a constant
// TRUE primary key, the usual singleton-row trick.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context) (Config, error) {
	query := `
		SELECT emergency_freeze, day_pass_auto_approve, home_pass_auto_approve,
		       day_pass_start_minute, day_pass_end_minute, guardian_token_ttl_seconds
		FROM system_config
		WHERE singleton = TRUE
	`
	var cfg Config
	var ttlSeconds int64
	err := s.db.QueryRowContext(ctx, query).Scan(
		&cfg.EmergencyFreeze,
		&cfg.DayPassAutoApprove,
		&cfg.HomePassAutoApprove,
		&cfg.DayPassStartMinute,
		&cfg.DayPassEndMinute,
		&ttlSeconds,
	)
	if err == sql.ErrNoRows {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("get system config: %w", err)
	}
	cfg.GuardianTokenTTL = time.Duration(ttlSeconds) * time.Second
	return cfg, nil
}

func (s *PostgresStore) Update(ctx context.Context, cfg Config) error {
	query := `
		INSERT INTO system_config (singleton, emergency_freeze, day_pass_auto_approve,
			home_pass_auto_approve, day_pass_start_minute, day_pass_end_minute,
			guardian_token_ttl_seconds)
		VALUES (TRUE, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (singleton) DO UPDATE SET
			emergency_freeze = EXCLUDED.emergency_freeze,
			day_pass_auto_approve = EXCLUDED.day_pass_auto_approve,
			home_pass_auto_approve = EXCLUDED.home_pass_auto_approve,
			day_pass_start_minute = EXCLUDED.day_pass_start_minute,
			day_pass_end_minute = EXCLUDED.day_pass_end_minute,
			guardian_token_ttl_seconds = EXCLUDED.guardian_token_ttl_seconds
	`
	_, err := s.db.ExecContext(ctx, query,
		cfg.EmergencyFreeze,
		cfg.DayPassAutoApprove,
		cfg.HomePassAutoApprove,
		cfg.DayPassStartMinute,
		cfg.DayPassEndMinute,
		int64(cfg.GuardianTokenTTL/time.Second),
	)
	if err != nil {
		return fmt.Errorf("update system config: %w", err)
	}
	return nil
}

// --- Redis-cached store ---

// CacheTTL bounds how stale an apply-time policy read may be.
const CacheTTL = 5 * time.Minute

const cacheKey = "outpass:sysconfig"

// CachedStore layers a short-lived redis cache over another store. Cache
// failures degrade to the backing store; they never fail a read.
type CachedStore struct {
	backing Store
	redis   *redis.Client
	logger  *slog.Logger
}

func NewCached(backing Store, client *redis.Client, logger *slog.Logger) *CachedStore {
	return &CachedStore{backing: backing, redis: client, logger: logger}
}

func (s *CachedStore) Get(ctx context.Context) (Config, error) {
	if payload, err := s.redis.Get(ctx, cacheKey).Bytes(); err == nil {
		var cfg Config
		if err := json.Unmarshal(payload, &cfg); err == nil {
			return cfg, nil
		}
	}

	cfg, err := s.backing.Get(ctx)
	if err != nil {
		return Config{}, err
	}

	if payload, err := json.Marshal(cfg); err == nil {
		if err := s.redis.Set(ctx, cacheKey, payload, CacheTTL).Err(); err != nil {
			s.logger.WarnContext(ctx, "sysconfig cache write failed", "error", err)
		}
	}
	return cfg, nil
}

func (s *CachedStore) Update(ctx context.Context, cfg Config) error {
	if err := s.backing.Update(ctx, cfg); err != nil {
		return err
	}
	// Drop the cached copy so the new policy is visible on the next read.
	if err := s.redis.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.WarnContext(ctx, "sysconfig cache invalidation failed", "error", err)
	}
	return nil
}
