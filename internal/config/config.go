// Package config loads dashboard settings from defaults, a YAML file,
// SCALEDASH_ environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"scale-dashboard/internal/logs"
)

// EnvPrefix marks environment variables read by Load. A double underscore
// separates nesting levels: SCALEDASH_UPSTREAM__BASE_URL.
const EnvPrefix = "SCALEDASH_"

// Config is the full dashboard configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Cache    CacheConfig    `koanf:"cache"`
	Display  DisplayConfig  `koanf:"display"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// UpstreamConfig locates the Scale REST API.
type UpstreamConfig struct {
	BaseURL          string        `koanf:"base_url"`
	JobPath          string        `koanf:"job_path"`
	NodesPath        string        `koanf:"nodes_path"`
	Token            string        `koanf:"token"`
	Timeout          time.Duration `koanf:"timeout"`
	MaxRetries       int           `koanf:"max_retries"`
	BaseBackoff      time.Duration `koanf:"base_backoff"`
	MaxBackoff       time.Duration `koanf:"max_backoff"`
	FailureThreshold int           `koanf:"failure_threshold"`
	SuccessThreshold int           `koanf:"success_threshold"`
	PollInterval     time.Duration `koanf:"poll_interval"`
}

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type CacheConfig struct {
	Backend         string        `koanf:"backend"`
	TTL             time.Duration `koanf:"ttl"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	Redis           RedisConfig   `koanf:"redis"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

// DisplayConfig holds rendering choices handed to view models.
type DisplayConfig struct {
	DateFormat      string `koanf:"date_format"`
	NodeType        string `koanf:"node_type"`
	ShowDescription bool   `koanf:"show_description"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Buffer int    `koanf:"buffer"`
	JSON   bool   `koanf:"json"`
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}

	if u, err := url.Parse(c.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("upstream.base_url %q is not an absolute URL", c.Upstream.BaseURL))
	}
	if c.Upstream.MaxRetries < 0 {
		errs = append(errs, errors.New("upstream.max_retries must not be negative"))
	}
	if c.Upstream.FailureThreshold < 1 || c.Upstream.SuccessThreshold < 1 {
		errs = append(errs, errors.New("upstream thresholds must be at least 1"))
	}
	for name, d := range map[string]time.Duration{
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"upstream.timeout":        c.Upstream.Timeout,
		"upstream.poll_interval":  c.Upstream.PollInterval,
		"cache.cleanup_interval":  c.Cache.CleanupInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	switch c.Cache.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q is not one of memory, redis", c.Cache.Backend))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}

	if c.Display.DateFormat == "" {
		errs = append(errs, errors.New("display.date_format is required"))
	}

	if _, err := logs.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Buffer < 1 {
		errs = append(errs, errors.New("log.buffer must be at least 1"))
	}

	return errors.Join(errs...)
}
