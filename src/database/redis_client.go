package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisOptions accepts either a redis:// URL or a bare host:port.
func RedisOptions(uri string) (*redis.Options, error) {
	if strings.Contains(uri, "://") {
		return redis.ParseURL(uri)
	}
	return &redis.Options{Addr: uri, DB: 0}, nil
}

// NewRedis returns a client that answered PING.
func NewRedis(ctx context.Context, uri string) (*redis.Client, error) {
	opt, err := RedisOptions(uri)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URI: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("❌ failed to connect Redis: %w", err)
	}
	return client, nil
}
