// Package cache stores composed layouts and other derived data.
//
// A [Cache] is a byte store with per-entry TTLs. [FileCache] backs the CLI,
// [RedisCache] backs the server when several instances share work, and
// [NullCache] disables caching. A [Keyer] turns inputs into cache keys so
// that backends and callers agree on naming.
package cache

import (
	"context"
	"time"
)

// Cache is a key/value byte store. A miss is reported by ok == false with a
// nil error. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer generates cache keys.
type Keyer interface {
	// LayoutKey identifies a composed layout of one payload.
	LayoutKey(payloadHash string, opts LayoutKeyOpts) string
	// PayloadKey identifies a built payload by name or path.
	PayloadKey(name string) string
}

// LayoutKeyOpts are the inputs that change a composed layout.
type LayoutKeyOpts struct {
	Mode    string   `json:"mode"`
	Nodes   []string `json:"nodes"`
	Edges   []int    `json:"edges"`
	Options any      `json:"options,omitempty"`
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey implements [Keyer].
func (DefaultKeyer) LayoutKey(payloadHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", payloadHash, opts)
}

// PayloadKey implements [Keyer].
func (DefaultKeyer) PayloadKey(name string) string {
	return "payload:" + name
}

var _ Keyer = DefaultKeyer{}
