// Package config loads the gateway's YAML configuration surface,
// generalizing server/gateway.go's loadGatewaySetting into the full
// recognized set of options SPEC_FULL.md §1 names.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/sosodev/duration"
)

// LogConfig controls the gateway's structured logger.
type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"json"`
}

// EntityCachingConfig controls the EntityCache component.
type EntityCachingConfig struct {
	Enabled bool   `yaml:"enabled" default:"false"`
	TTL     string `yaml:"ttl" default:"30s"`
}

// TTLDuration parses TTL as a time.Duration.
func (c EntityCachingConfig) TTLDuration() (time.Duration, error) {
	return parseDuration(c.TTL)
}

// OperationLimitsConfig is the operation_limits block of gateway.yaml,
// per spec §6. Load parses it; no package reads it, so the binder and
// planner do not enforce these limits.
type OperationLimitsConfig struct {
	Complexity int `yaml:"complexity" default:"0"`
	Depth      int `yaml:"depth" default:"0"`
	Height     int `yaml:"height" default:"0"`
	Aliases    int `yaml:"aliases" default:"0"`
	RootFields int `yaml:"root_fields" default:"0"`
}

// RateLimitConfig is a contract-only surface: rate limiting itself is out
// of scope (spec.md Non-goals), but the config shape is still recognized
// so a deployment-wide gateway.yaml validates even when a rate-limiting
// sidecar reads the same file.
type RateLimitConfig struct {
	Storage      string `yaml:"storage"`
	Global       int    `yaml:"global"`
	PerSubgraph  int    `yaml:"per_subgraph"`
}

// BatchingConfig is the batching block of gateway.yaml. Load parses it;
// no package reads it, and the gateway accepts one operation per HTTP
// request.
type BatchingConfig struct {
	Enabled bool `yaml:"enabled" default:"false"`
	Limit   int  `yaml:"limit" default:"10"`
}

// ComplexityControlConfig is the complexity_control block of gateway.yaml.
// Load parses it; no package reads it, and query cost is not enforced.
type ComplexityControlConfig struct {
	Enabled bool `yaml:"enabled" default:"false"`
	Limit   int  `yaml:"limit" default:"1000"`
}

// HeaderRule describes one request/response header propagation rule.
type HeaderRule struct {
	Name    string `yaml:"name"`
	Forward bool   `yaml:"forward"`
}

// HeadersConfig lists the header propagation rules applied to subgraph
// requests.
type HeadersConfig struct {
	Rules []HeaderRule `yaml:"rules"`
}

// Config is the full gateway.yaml surface.
type Config struct {
	ListenAddress      string                  `yaml:"listen_address" default:":4000"`
	GraphRef           string                  `yaml:"graph_ref"`
	SchemaPath         string                  `yaml:"schema_path"`
	Timeout            string                  `yaml:"timeout" default:"5s"`
	Log                LogConfig               `yaml:"log"`
	EntityCaching      EntityCachingConfig     `yaml:"entity_caching"`
	OperationLimits    OperationLimitsConfig   `yaml:"operation_limits"`
	RateLimit          RateLimitConfig         `yaml:"rate_limit"`
	Batching           BatchingConfig          `yaml:"batching"`
	ComplexityControl  ComplexityControlConfig `yaml:"complexity_control"`
	Headers            HeadersConfig           `yaml:"headers"`
}

// Load reads and parses a gateway.yaml file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// TimeoutDuration parses Timeout as a time.Duration.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	return parseDuration(c.Timeout)
}

// TTLDuration parses EntityCaching.TTL as a time.Duration.
func (c *Config) TTLDuration() (time.Duration, error) {
	return parseDuration(c.EntityCaching.TTL)
}

// parseDuration accepts either a Go duration string ("30s") or an ISO-8601
// duration ("PT30S"), trying the latter via sosodev/duration only when
// the former fails to parse.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	iso, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("config: %q is neither a Go duration nor an ISO-8601 duration: %w", s, err)
	}
	return iso.ToTimeDuration(), nil
}
