package rollsession

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/clock"
	redisclient "github.com/KirkDiggler/tabletop-api/internal/redis"
)

const (
	// Key pattern: roll_session:{game_id}:{entity_id}
	sessionKeyPrefix = "roll_session:"
	defaultTTL       = 30 * time.Minute

	errSessionNil     = "session cannot be nil"
	errGameIDEmpty    = "game ID cannot be empty"
	errEntityIDEmpty  = "entity ID cannot be empty"
	errSessionExpired = "session has already expired"
)

// Config holds the configuration for the Redis repository
type Config struct {
	Client redisclient.Client
	Clock  clock.Clock
	TTL    time.Duration
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c.Client == nil {
		return errors.InvalidArgument("redis client is required")
	}
	if c.Clock == nil {
		return errors.InvalidArgument("clock is required")
	}
	return nil
}

type redisRepository struct {
	client redisclient.Client
	clock  clock.Clock
	ttl    time.Duration
}

// NewRedisRepository creates a new Redis repository for roll sessions
func NewRedisRepository(cfg *Config) (Repository, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &redisRepository{
		client: cfg.Client,
		clock:  cfg.Clock,
		ttl:    ttl,
	}, nil
}

var _ Repository = (*redisRepository)(nil)

func validateKey(gameID, entityID string) error {
	if gameID == "" {
		return errors.InvalidArgument(errGameIDEmpty)
	}
	if entityID == "" {
		return errors.InvalidArgument(errEntityIDEmpty)
	}
	return nil
}

// Create stores a roll session with the configured TTL unless the input overrides it
func (r *redisRepository) Create(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	if err := validateKey(input.GameID, input.EntityID); err != nil {
		return nil, err
	}

	now := r.clock.Now()
	ttl := input.TTL
	if ttl <= 0 {
		ttl = r.ttl
	}

	session := &RollSession{
		GameID:          input.GameID,
		EntityID:        input.EntityID,
		ActorID:         input.ActorID,
		TurnNumber:      input.TurnNumber,
		Version:         input.Version,
		Action:          input.Action,
		Rolls:           input.Rolls,
		CriticalFailure: input.CriticalFailure,
		Rerolled:        input.Rerolled,
		CreatedAt:       now,
		ExpiresAt:       now.Add(ttl),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal roll session")
	}

	key := buildKey(input.GameID, input.EntityID)
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to store roll session")
	}

	return &CreateOutput{Session: session}, nil
}

// Get retrieves a roll session
func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if err := validateKey(input.GameID, input.EntityID); err != nil {
		return nil, err
	}

	key := buildKey(input.GameID, input.EntityID)
	raw, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, errors.NotFound("no roll to replay")
		}
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to get roll session")
	}

	var session RollSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal roll session")
	}

	// Redis expiry and the injected clock can disagree in tests
	if r.clock.Now().After(session.ExpiresAt) {
		_ = r.client.Del(ctx, key)
		return nil, errors.NotFound("roll session has expired")
	}

	return &GetOutput{Session: &session}, nil
}

// Update replaces an existing roll session with its remaining TTL
func (r *redisRepository) Update(ctx context.Context, session *RollSession) error {
	if session == nil {
		return errors.InvalidArgument(errSessionNil)
	}
	if err := validateKey(session.GameID, session.EntityID); err != nil {
		return err
	}

	now := r.clock.Now()
	if now.After(session.ExpiresAt) {
		return errors.FailedPrecondition(errSessionExpired)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "failed to marshal roll session")
	}

	key := buildKey(session.GameID, session.EntityID)
	if err := r.client.Set(ctx, key, data, session.ExpiresAt.Sub(now)).Err(); err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "failed to update roll session")
	}
	return nil
}

// Delete removes a roll session
func (r *redisRepository) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	if err := validateKey(input.GameID, input.EntityID); err != nil {
		return nil, err
	}

	n, err := r.client.Del(ctx, buildKey(input.GameID, input.EntityID)).Result()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to delete roll session")
	}
	return &DeleteOutput{Deleted: n > 0}, nil
}

func buildKey(gameID, entityID string) string {
	return fmt.Sprintf("%s%s:%s", sessionKeyPrefix, gameID, entityID)
}
