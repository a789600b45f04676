package redis

import (
	"github.com/redis/go-redis/v9"
)

//go:generate mockgen -destination=mock/mock_client.go -package=redismock -source=interface.go

// Client wraps redis.UniversalClient to allow for easy mocking
type Client interface {
	redis.UniversalClient
}
