package client

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/spacetimedb/sdk-go/observability"
	"github.com/spacetimedb/sdk-go/protocol"
	"github.com/spacetimedb/sdk-go/tokenstore"
)

// ReconnectConfig bounds the connection actor's reconnect/backoff schedule.
type ReconnectConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// Config is the façade's startup configuration, per spec.md §6:
// {host, database, token?, subscriptions?, compression?, reconnect?}.
type Config struct {
	Scheme   string `yaml:"scheme"` // "ws"/"wss"; defaults to "ws"
	Host     string `yaml:"host"`
	Database string `yaml:"database"`
	Token    string `yaml:"token"`

	// Subscriptions are sent as a single Subscribe once InitialConnection
	// negotiates, if non-empty.
	Subscriptions []string `yaml:"subscriptions"`

	// Compression selects the outbound envelope/query-string compression:
	// "none" (default), "gzip", or "brotli".
	Compression string `yaml:"compression"`

	Reconnect ReconnectConfig `yaml:"reconnect"`

	// QueryRateLimit, when positive, throttles every outbound client frame
	// (Subscribe, Unsubscribe, OneOffQuery, CallReducer, CallProcedure) via
	// golang.org/x/time/rate.
	QueryRateLimit float64 `yaml:"query_rate_limit"`
	QueryBurst     int     `yaml:"query_burst"`

	// TokenStore, when set, is consulted for a cached token before
	// connecting (if Token is empty) and is given the server-minted token
	// after a successful handshake. Defaults to an in-memory store.
	TokenStore tokenstore.Store `yaml:"-"`

	Logger observability.Logger `yaml:"-"`
	Tracer observability.Tracer `yaml:"-"`
}

func compressionByte(name string) byte {
	switch name {
	case "gzip":
		return protocol.CompressionGzip
	case "brotli":
		return protocol.CompressionBrotli
	default:
		return protocol.CompressionNone
	}
}

func (c *Config) rateLimiter() *rate.Limiter {
	if c.QueryRateLimit <= 0 {
		return nil
	}
	burst := c.QueryBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(c.QueryRateLimit), burst)
}

// LoadConfigFile reads and parses a YAML config document, per spec.md §6's
// config shape. Ground: integration_tests/framework/runner.go's fixture
// loader.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("client: read config %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("client: parse config %q: %w", path, err)
	}
	return &cfg, nil
}
