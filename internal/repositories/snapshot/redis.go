package snapshot

import (
	"context"
	stderrors "errors"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/tabletop-api/internal/errors"
	redisclient "github.com/KirkDiggler/tabletop-api/internal/redis"
)

const (
	// Key pattern: game_state_snapshot:{invite_code}
	keyPrefix  = "game_state_snapshot:"
	defaultTTL = 10 * time.Minute

	fieldVersion = "version"
	fieldData    = "data"
)

// Config holds the configuration for the Redis repository
type Config struct {
	Client redisclient.Client
	TTL    time.Duration
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c.Client == nil {
		return errors.InvalidArgument("redis client is required")
	}
	return nil
}

type redisRepository struct {
	client redisclient.Client
	ttl    time.Duration
}

// NewRedisRepository creates a snapshot cache backed by Redis hashes
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
	return &redisRepository{client: cfg.Client, ttl: ttl}, nil
}

var _ Repository = (*redisRepository)(nil)

func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.InviteCode == "" {
		return nil, errors.InvalidArgument("invite code is required")
	}

	values, err := r.client.HMGet(ctx, keyPrefix+input.InviteCode, fieldVersion, fieldData).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return &GetOutput{}, nil
		}
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to read snapshot cache")
	}

	rawVersion, ok := values[0].(string)
	if !ok {
		return &GetOutput{}, nil
	}
	version, err := strconv.ParseInt(rawVersion, 10, 64)
	if err != nil || version != input.Version {
		return &GetOutput{}, nil
	}
	data, ok := values[1].(string)
	if !ok {
		return &GetOutput{}, nil
	}

	return &GetOutput{Hit: true, Data: []byte(data)}, nil
}

func (r *redisRepository) Put(ctx context.Context, input PutInput) (*PutOutput, error) {
	if input.InviteCode == "" {
		return nil, errors.InvalidArgument("invite code is required")
	}

	key := keyPrefix + input.InviteCode
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, fieldVersion, strconv.FormatInt(input.Version, 10), fieldData, input.Data)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to write snapshot cache")
	}
	return &PutOutput{}, nil
}

func (r *redisRepository) Invalidate(ctx context.Context, input InvalidateInput) (*InvalidateOutput, error) {
	if input.InviteCode == "" {
		return nil, errors.InvalidArgument("invite code is required")
	}
	if err := r.client.Del(ctx, keyPrefix+input.InviteCode).Err(); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to invalidate snapshot cache")
	}
	return &InvalidateOutput{}, nil
}
