package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/code-troopers/postits/internal/identity"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "postits.yml"

// Transport kinds
const (
	TransportWebSocket = "websocket"
	TransportRedis     = "redis"
)

// MaxInstanceNameLength is the maximum length of transport.instance
const MaxInstanceNameLength = 63

// InstanceNamePattern restricts instance names to lowercase alphanumerics
// with inner hyphens, keeping Redis channel names predictable.
var InstanceNamePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// PostitsConfig represents the top-level postits.yml configuration
type PostitsConfig struct {
	Version   string           `yaml:"version"`
	Server    ServerConfig     `yaml:"server"`
	Transport *TransportConfig `yaml:"transport,omitempty"`
	Auth      *AuthConfig      `yaml:"auth,omitempty"`
	Log       *LogConfig       `yaml:"log,omitempty"`
}

// ServerConfig locates the authority
type ServerConfig struct {
	APIURL string `yaml:"api_url"`          // Base URL of the REST endpoints
	WSURL  string `yaml:"ws_url,omitempty"` // Base URL of the websocket; derived from api_url when empty
}

// TransportConfig selects how events are received
type TransportConfig struct {
	Kind     string `yaml:"kind,omitempty"`      // "websocket" (default) or "redis"
	RedisURL string `yaml:"redis_url,omitempty"` // Required when kind is redis
	Instance string `yaml:"instance,omitempty"`  // Channel namespace when kind is redis
}

// AuthConfig specifies where the bearer token comes from
type AuthConfig struct {
	Token     string `yaml:"token,omitempty"`
	TokenFile string `yaml:"token_file,omitempty"` // Takes precedence over token
}

// LogConfig specifies logging behaviour
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`  // logrus level name, default "info"
	Format string `yaml:"format,omitempty"` // "text" (default) or "json"
}

// Default returns the configuration used when no file is present.
func Default() *PostitsConfig {
	return &PostitsConfig{
		Version: "1.0",
		Server:  ServerConfig{APIURL: "http://localhost:3010"},
	}
}

// Validate performs strict validation on the configuration, filling in
// defaults for omitted optional sections.
func (c *PostitsConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Server.APIURL == "" {
		return fmt.Errorf("server.api_url is required")
	}
	api, err := url.Parse(c.Server.APIURL)
	if err != nil || (api.Scheme != "http" && api.Scheme != "https") || api.Host == "" {
		return fmt.Errorf("server.api_url must be an http(s) URL, got %q", c.Server.APIURL)
	}

	if c.Server.WSURL == "" {
		ws := *api
		ws.Scheme = strings.Replace(api.Scheme, "http", "ws", 1)
		c.Server.WSURL = ws.String()
	}
	if ws, err := url.Parse(c.Server.WSURL); err != nil || (ws.Scheme != "ws" && ws.Scheme != "wss") || ws.Host == "" {
		return fmt.Errorf("server.ws_url must be a ws(s) URL, got %q", c.Server.WSURL)
	}

	if c.Transport == nil {
		c.Transport = &TransportConfig{}
	}
	if c.Transport.Kind == "" {
		c.Transport.Kind = TransportWebSocket
	}
	switch c.Transport.Kind {
	case TransportWebSocket:
	case TransportRedis:
		if c.Transport.RedisURL == "" {
			return fmt.Errorf("transport.redis_url is required when transport.kind is redis")
		}
		if _, err := redis.ParseURL(c.Transport.RedisURL); err != nil {
			return fmt.Errorf("invalid transport.redis_url: %w", err)
		}
		if c.Transport.Instance == "" {
			c.Transport.Instance = "default"
		}
		if err := ValidateInstanceName(c.Transport.Instance); err != nil {
			return fmt.Errorf("invalid transport.instance: %w", err)
		}
	default:
		return fmt.Errorf("invalid transport.kind: %s (must be 'websocket' or 'redis')", c.Transport.Kind)
	}

	if c.Auth == nil {
		c.Auth = &AuthConfig{}
	}

	if c.Log == nil {
		c.Log = &LogConfig{}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log.format: %s (must be 'text' or 'json')", c.Log.Format)
	}

	return nil
}

// ValidateInstanceName checks a Redis channel namespace.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("instance name cannot be empty")
	}
	if len(name) > MaxInstanceNameLength {
		return fmt.Errorf("instance name too long: %d characters (max: %d)", len(name), MaxInstanceNameLength)
	}
	if !InstanceNamePattern.MatchString(name) {
		return fmt.Errorf("invalid instance name '%s': must be lowercase alphanumeric with hyphens (not at start/end)", name)
	}
	return nil
}

// ApplyEnv overrides fields from POSTITS_* environment variables. lookup is
// os.LookupEnv outside of tests.
func (c *PostitsConfig) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set("POSTITS_API_URL", &c.Server.APIURL)
	set("POSTITS_WS_URL", &c.Server.WSURL)

	if c.Auth == nil {
		c.Auth = &AuthConfig{}
	}
	set("POSTITS_TOKEN", &c.Auth.Token)
	set("POSTITS_TOKEN_FILE", &c.Auth.TokenFile)

	if v, ok := lookup("POSTITS_REDIS_URL"); ok && v != "" {
		if c.Transport == nil {
			c.Transport = &TransportConfig{}
		}
		c.Transport.RedisURL = v
		if c.Transport.Kind == "" {
			c.Transport.Kind = TransportRedis
		}
	}

	if c.Log == nil {
		c.Log = &LogConfig{}
	}
	set("POSTITS_LOG_LEVEL", &c.Log.Level)
}

// TokenSource returns the configured token source, or nil when no token is
// configured.
func (c *PostitsConfig) TokenSource() identity.TokenSource {
	if c.Auth == nil {
		return nil
	}
	if c.Auth.TokenFile != "" {
		return identity.FileToken{Path: c.Auth.TokenFile}
	}
	if c.Auth.Token != "" {
		return identity.StaticToken(c.Auth.Token)
	}
	return nil
}

// RedisOptions parses transport.redis_url.
func (c *PostitsConfig) RedisOptions() (*redis.Options, error) {
	if c.Transport == nil || c.Transport.RedisURL == "" {
		return nil, fmt.Errorf("transport.redis_url is not set")
	}
	return redis.ParseURL(c.Transport.RedisURL)
}

// Load reads postits.yml from the specified path, applies environment
// overrides and validates the result
func Load(path string) (*PostitsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config PostitsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return finish(&config)
}

// LoadOrDefault loads path when it exists and falls back to Default
// otherwise. Environment overrides apply in both cases.
func LoadOrDefault(path string) (*PostitsConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return finish(Default())
	}
	return Load(path)
}

func finish(config *PostitsConfig) (*PostitsConfig, error) {
	config.ApplyEnv(os.LookupEnv)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}
