package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinicflow/config"
	"clinicflow/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrInvalidScope is returned when the requested (doctor, date) scope is
// malformed or outside the allocation policy window.
var ErrInvalidScope = errors.New("invalid token scope: date is malformed or out of policy")

// allocateTokenScript issues the next token for a scope as a single atomic
// operation inside Redis. The key TTL is set only when the INCR created
// the key, so the counter expires 24h after its queue date without ever
// resetting mid-day.
//
// Redis Go client automatically uses EVALSHA after the first call instead
// of sending the script text every time.
var allocateTokenScript = redis.NewScript(`
	local token = redis.call('INCR', KEYS[1])
	if token == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return token
`)

const (
	// Redis key prefix for per-(doctor, date) token counters
	RedisTokenKeyPrefix = "queue:token:"

	// How far in the future a queue date may lie
	maxTokenHorizon = 90 * 24 * time.Hour

	// Batch size for startup re-seed - process 500 scopes at a time
	tokenSyncBatchSize = 500
)

// TokenAllocator issues sequential, collision-free queue tokens scoped to
// (doctor, calendar date).
type TokenAllocator interface {
	Allocate(ctx context.Context, doctorID uuid.UUID, date time.Time) (int, error)
}

// TokenService implements TokenAllocator on a Redis counter per scope.
//
// Guarantees:
// - Tokens are strictly increasing and unique within one (doctor, date)
//   scope; the Lua script serializes allocation inside Redis.
// - Scopes are fully independent: concurrent allocation for different
//   doctors or dates never contend.
// - SyncOnStartup re-seeds counters from MAX(token) in Postgres so a
//   Redis flush never re-issues a token already handed to a patient.
type TokenService struct {
	db          *gorm.DB
	redisClient *redis.Client
	log         *logrus.Logger
	queueRepo   tokenHighWaterSource
	grace       time.Duration
	now         func() time.Time
}

// tokenHighWaterSource is the slice of QueueEntryRepository the token
// service needs for re-seeding.
type tokenHighWaterSource interface {
	MaxTokenByScope(db *gorm.DB, since time.Time, limit, offset int) ([]entity.TokenHighWater, error)
}

func NewTokenService(db *gorm.DB, redisClient *redis.Client, log *logrus.Logger, queueRepo tokenHighWaterSource, cfg config.QueueConfig) *TokenService {
	return &TokenService{
		db:          db,
		redisClient: redisClient,
		log:         log,
		queueRepo:   queueRepo,
		grace:       cfg.TokenGrace,
		now:         time.Now,
	}
}

// Allocate returns the next token for the scope, strictly greater than any
// token previously allocated for the same (doctor, date).
//
// Policy: the date must not lie before today minus the configured grace
// window, and not further out than the horizon. Violations return
// ErrInvalidScope.
func (s *TokenService) Allocate(ctx context.Context, doctorID uuid.UUID, date time.Time) (int, error) {
	if err := s.validateScope(date); err != nil {
		return 0, err
	}

	key := s.tokenKey(doctorID, date)
	ttl := s.calculateTTL(date)

	token, err := allocateTokenScript.Run(ctx, s.redisClient, []string{key}, ttl.Milliseconds()).Int()
	if err != nil {
		s.log.Warnf("Failed Lua script AllocateToken for scope %s: %+v", key, err)
		return 0, fmt.Errorf("lua allocate_token for scope %s: %w", key, err)
	}

	s.log.Debugf("Allocated token %d for scope %s", token, key)
	return token, nil
}

// SyncOnStartup re-seeds every scope counter from the database high-water
// mark. Should be called before accepting traffic (startup or disaster
// recovery). Counters are overwritten only upward: SET is safe because the
// service is not serving traffic yet.
func (s *TokenService) SyncOnStartup(ctx context.Context) error {
	s.log.Info("Starting token counter re-seed from database...")
	startTime := time.Now()

	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		s.log.Warnf("Redis is not available, skipping token re-seed: %+v", err)
		return fmt.Errorf("redis ping failed: %w", err)
	}

	since := s.today().Add(-s.grace)
	offset := 0
	totalSynced := 0

	for {
		results, err := s.queueRepo.MaxTokenByScope(s.db.WithContext(ctx), since, tokenSyncBatchSize, offset)
		if err != nil {
			s.log.Errorf("Failed to query token high-water marks at offset %d: %+v", offset, err)
			return fmt.Errorf("query token high-water marks at offset %d: %w", offset, err)
		}

		if len(results) == 0 {
			if offset == 0 {
				s.log.Info("No token scopes found for re-seed")
			}
			break
		}

		// New pipeline per batch so memory does not accumulate
		pipe := s.redisClient.TxPipeline()
		for _, result := range results {
			key := s.tokenKey(result.DoctorID, result.Date)
			pipe.Set(ctx, key, result.MaxToken, s.calculateTTL(result.Date))
		}
		if _, err := pipe.Exec(ctx); err != nil {
			s.log.Errorf("Failed to execute pipeline for batch at offset %d: %+v", offset, err)
			return fmt.Errorf("pipeline exec at offset %d: %w", offset, err)
		}

		totalSynced += len(results)
		if len(results) < tokenSyncBatchSize {
			break
		}
		offset += tokenSyncBatchSize

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	s.log.Infof("Token re-seed completed: %d scopes in %v", totalSynced, time.Since(startTime))
	return nil
}

func (s *TokenService) validateScope(date time.Time) error {
	if date.IsZero() {
		return ErrInvalidScope
	}
	day := date.UTC().Truncate(24 * time.Hour)
	today := s.today()
	if day.Before(today.Add(-s.grace)) {
		return ErrInvalidScope
	}
	if day.After(today.Add(maxTokenHorizon)) {
		return ErrInvalidScope
	}
	return nil
}

func (s *TokenService) today() time.Time {
	return s.now().UTC().Truncate(24 * time.Hour)
}

func (s *TokenService) tokenKey(doctorID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("%s%s:%s", RedisTokenKeyPrefix, doctorID.String(), date.UTC().Format("2006-01-02"))
}

// calculateTTL returns TTL: 24 hours after the queue date
func (s *TokenService) calculateTTL(date time.Time) time.Duration {
	expireAt := date.UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	ttl := time.Until(expireAt)

	if ttl <= 0 {
		// Past date - short TTL for cleanup
		return 1 * time.Minute
	}

	return ttl
}
