// shared/redis/client.go
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/Ftotnem/HACKATHON-SERVICES/shared/logger"
	"github.com/redis/go-redis/v9"
)

// NewUniversalClient creates a Redis client for addrs. A single address yields
// a standalone client, several yield a cluster client.
func NewUniversalClient(ctx context.Context, addrs []string, password string, log *logger.Logger) (redis.UniversalClient, error) {
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no Redis addresses provided")
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        addrs,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  6 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %v: %w", addrs, err)
	}
	log.Info("connected to Redis", "addrs", addrs)
	return rdb, nil
}
