package cache

import (
	"context"
	"fmt"
	"time"
)

// Backend names accepted by [Open].
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Options selects and configures a cache backend.
type Options struct {
	Backend       string        `json:"backend" koanf:"backend"`
	Dir           string        `json:"dir" koanf:"dir"`
	RedisAddr     string        `json:"redis_addr" koanf:"redis_addr"`
	RedisPassword string        `json:"-" koanf:"redis_password"`
	RedisDB       int           `json:"redis_db" koanf:"redis_db"`
	TTL           time.Duration `json:"ttl" koanf:"ttl"`
}

// Open creates the configured backend. An empty backend means file; an
// empty file directory uses [DefaultDir].
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case "", BackendFile:
		dir := opts.Dir
		if dir == "" {
			var err error
			if dir, err = DefaultDir(); err != nil {
				return nil, fmt.Errorf("cache dir: %w", err)
			}
		}
		fc, err := NewFileCache(dir)
		if err != nil {
			return nil, err
		}
		return fc, nil
	case BackendRedis:
		client, err := DialRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
		if err != nil {
			return nil, err
		}
		return NewRedisCache(client, ""), nil
	case BackendNone:
		return NewNullCache(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
