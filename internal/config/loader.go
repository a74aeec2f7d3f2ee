package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Defaults are the values used when no other source sets a key.
func Defaults() map[string]any {
	return map[string]any{
		"server.addr":                ":8080",
		"server.read_header_timeout": 10 * time.Second,
		"server.shutdown_timeout":    5 * time.Second,

		"upstream.base_url":          "http://localhost:8000/api/v6",
		"upstream.job_path":          "/jobs/{id}/",
		"upstream.nodes_path":        "/nodes/",
		"upstream.token":             "",
		"upstream.timeout":           5 * time.Second,
		"upstream.max_retries":       3,
		"upstream.base_backoff":      100 * time.Millisecond,
		"upstream.max_backoff":       2 * time.Second,
		"upstream.failure_threshold": 3,
		"upstream.success_threshold": 2,
		"upstream.poll_interval":     15 * time.Second,

		"cache.backend":          BackendMemory,
		"cache.ttl":              30 * time.Second,
		"cache.cleanup_interval": time.Minute,
		"cache.redis.addr":       "localhost:6379",
		"cache.redis.password":   "",
		"cache.redis.db":         0,
		"cache.redis.prefix":     "scaledash:",

		"display.date_format":      "%Y-%m-%d %H:%M:%SZ",
		"display.node_type":        "Nodes",
		"display.show_description": false,

		"log.level":  "info",
		"log.buffer": 500,
		"log.json":   false,
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"addr":          "server.addr",
	"upstream-url":  "upstream.base_url",
	"token":         "upstream.token",
	"poll-interval": "upstream.poll_interval",
	"cache-backend": "cache.backend",
	"cache-ttl":     "cache.ttl",
	"redis-addr":    "cache.redis.addr",
	"date-format":   "display.date_format",
	"log-level":     "log.level",
	"log-json":      "log.json",
}

// Load builds a validated Config. path may be empty to skip the file; flags
// may be nil. Only flags the user actually set override other sources.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. Environment: SCALEDASH_CACHE__REDIS__ADDR -> cache.redis.addr
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
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
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// RegisterFlags adds every overridable flag to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("addr", "", "HTTP listen address")
	fs.String("upstream-url", "", "Scale API base URL, including the version prefix")
	fs.String("token", "", "Scale API token")
	fs.Duration("poll-interval", 0, "node poll interval")
	fs.String("cache-backend", "", "payload cache backend (memory|redis)")
	fs.Duration("cache-ttl", 0, "payload cache TTL")
	fs.String("redis-addr", "", "Redis address for the redis cache backend")
	fs.String("date-format", "", "strftime pattern for rendered timestamps")
	fs.String("log-level", "", "log level (debug|info|warn|error)")
	fs.Bool("log-json", false, "mirror logs to stdout as JSON")
}
