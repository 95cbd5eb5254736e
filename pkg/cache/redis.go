package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/hostel-out-api/pkg/config"
)

// KeyPrefix namespaces every key this service writes.
const KeyPrefix = "hostel"

// NewRedis returns a configured Redis client.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// Key joins parts under KeyPrefix, e.g. Key("leaves", "TEACHER") -> "hostel:leaves:TEACHER".
func Key(parts ...string) string {
	return KeyPrefix + ":" + strings.Join(parts, ":")
}

// Pattern returns a SCAN pattern matching every key under the given parts.
func Pattern(parts ...string) string {
	return Key(parts...) + ":*"
}
