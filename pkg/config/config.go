// Package config loads pipescope settings.
//
// Settings are layered, lowest precedence first:
//  1. Built-in defaults
//  2. A YAML file (pipescope.yaml or pipescope.yml in the working
//     directory, or an explicit --config path)
//  3. PIPESCOPE_* environment variables, with "__" separating nesting
//     levels: PIPESCOPE_CACHE__BACKEND=redis sets cache.backend
//  4. Command-line flags that were explicitly set
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/matzehuels/pipescope/pkg/cache"
	"github.com/matzehuels/pipescope/pkg/layout"
	"github.com/matzehuels/pipescope/pkg/search"
	"github.com/matzehuels/pipescope/pkg/server"
	"github.com/matzehuels/pipescope/pkg/session"
	"github.com/matzehuels/pipescope/pkg/source"
)

// Config file names searched in the working directory.
const (
	FileName    = "pipescope.yaml"
	FileNameAlt = "pipescope.yml"
)

// EnvPrefix prefixes every environment variable read by [Load].
const EnvPrefix = "PIPESCOPE_"

// Session backends.
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// Config is the complete application configuration.
type Config struct {
	Verbose  bool           `koanf:"verbose"`
	Layout   layout.Options `koanf:"layout"`
	Search   SearchConfig   `koanf:"search"`
	Cache    cache.Options  `koanf:"cache"`
	Server   server.Config  `koanf:"server"`
	Sessions SessionConfig  `koanf:"sessions"`
	Mongo    MongoConfig    `koanf:"mongo"`

	// File is the config file that was loaded, empty when none was.
	File string `koanf:"-"`
}

// SearchConfig configures node search.
type SearchConfig struct {
	search.Options `koanf:",squash"`
	Debounce       time.Duration `koanf:"debounce"`
}

// SessionConfig selects where server sessions live. The redis backend
// shares the connection settings of the redis cache.
type SessionConfig struct {
	Backend string `koanf:"backend"`
}

// MongoConfig locates the payload collection used by build --publish and
// serve --from-mongo.
type MongoConfig struct {
	URI        string `koanf:"uri"`
	Database   string `koanf:"database"`
	Collection string `koanf:"collection"`
}

// defaults returns the built-in settings as flat koanf keys.
func defaults() map[string]any {
	lo := layout.DefaultOptions()
	return map[string]any{
		"verbose":                 false,
		"layout.node_width":       lo.NodeWidth,
		"layout.node_height":      lo.NodeHeight,
		"layout.rank_sep":         lo.RankSep,
		"layout.node_sep":         lo.NodeSep,
		"layout.edge_sep":         lo.EdgeSep,
		"layout.rank_dir":         lo.RankDir,
		"layout.gap":              lo.Gap,
		"layout.padding.top":      lo.Padding.Top,
		"layout.padding.bottom":   lo.Padding.Bottom,
		"layout.padding.left":     lo.Padding.Left,
		"layout.padding.right":    lo.Padding.Right,
		"search.min_length":       search.DefaultMinLength,
		"search.limit":            search.DefaultLimit,
		"search.debounce":         search.DefaultDelay,
		"cache.backend":           cache.BackendFile,
		"cache.redis_addr":        "localhost:6379",
		"cache.ttl":               24 * time.Hour,
		"server.addr":             server.DefaultAddr,
		"server.session_ttl":      session.DefaultTTL,
		"server.cleanup_interval": server.DefaultCleanupInterval,
		"sessions.backend":        SessionMemory,
		"mongo.database":          source.DefaultMongoDatabase,
		"mongo.collection":        source.DefaultMongoCollection,
	}
}

// flagKeys maps command-line flag names to config keys. Flags not listed
// here are command options, not settings.
var flagKeys = map[string]string{
	"verbose":          "verbose",
	"rankdir":          "layout.rank_dir",
	"node-width":       "layout.node_width",
	"node-height":      "layout.node_height",
	"cache":            "cache.backend",
	"cache-dir":        "cache.dir",
	"redis-addr":       "cache.redis_addr",
	"addr":             "server.addr",
	"session-ttl":      "server.session_ttl",
	"sessions":         "sessions.backend",
	"mongo-uri":        "mongo.uri",
	"mongo-database":   "mongo.database",
	"mongo-collection": "mongo.collection",
}

// findFile returns the config file to load: the explicit path if given,
// otherwise the first default name present in the working directory.
func findFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{FileName, FileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// envKey maps PIPESCOPE_CACHE__REDIS_ADDR to cache.redis_addr.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Load reads the configuration. cfgFile may be empty; flags may be nil.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	path := findFile(cfgFile)
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("invalid layout configuration: %w", err)
	}
	if c.Search.Debounce < 0 {
		return fmt.Errorf("search debounce must not be negative")
	}
	switch c.Cache.Backend {
	case cache.BackendFile, cache.BackendRedis, cache.BackendNone:
	default:
		return fmt.Errorf("%w: %q (want file, redis or none)", cache.ErrUnknownBackend, c.Cache.Backend)
	}
	switch c.Sessions.Backend {
	case SessionMemory, SessionRedis:
	default:
		return fmt.Errorf("unknown session backend %q (want memory or redis)", c.Sessions.Backend)
	}
	return nil
}
