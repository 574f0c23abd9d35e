// Package opensearch mirrors the product catalog into an OpenSearch index.
// The mirror is optional; semantic search works without it and keyword
// matching falls back to local term scoring.
package opensearch

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/opensearch-project/opensearch-go/v3"
	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

var ErrConnectionFailed = errors.New(errors.ErrCodeServiceUnavailable, "opensearch connection failed")

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config holds the OpenSearch connection settings.
type Config struct {
	Addresses           []string      `mapstructure:"addresses"`
	Username            string        `mapstructure:"username"`
	Password            string        `mapstructure:"password"`
	InsecureTLS         bool          `mapstructure:"insecure_tls"`
	MaxRetries          int           `mapstructure:"max_retries"`
	RetryBackoff        time.Duration `mapstructure:"retry_backoff"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
}

// ValidateConfig checks the connection settings.
func ValidateConfig(cfg Config) error {
	if len(cfg.Addresses) == 0 {
		return errors.NewValidationError("addresses", "at least one address is required")
	}
	if cfg.MaxRetries < 0 {
		return errors.NewValidationError("max_retries", "must be >= 0")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxIdleConnsPerHost == 0 {
		cfg.MaxIdleConnsPerHost = 10
	}
	if cfg.HealthCheckInterval == 0 {
		cfg.HealthCheckInterval = 30 * time.Second
	}
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Client manages the OpenSearch connection and its health state.
type Client struct {
	api     *opensearchapi.Client
	config  Config
	logger  logging.Logger
	healthy atomic.Bool
	cancel  context.CancelFunc
}

// NewClient connects to the cluster and verifies it with a ping.
func NewClient(cfg Config, log logging.Logger) (*Client, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	applyDefaults(&cfg)

	transport := &http.Transport{MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	api, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses:     cfg.Addresses,
			Username:      cfg.Username,
			Password:      cfg.Password,
			MaxRetries:    cfg.MaxRetries,
			RetryBackoff:  func(int) time.Duration { return cfg.RetryBackoff },
			RetryOnStatus: []int{429, 502, 503, 504},
			Transport:     transport,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to create opensearch client")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{api: api, config: cfg, logger: log.Named("opensearch"), cancel: cancel}

	pingCtx, pingCancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer pingCancel()
	if err := c.Ping(pingCtx); err != nil {
		cancel()
		return nil, ErrConnectionFailed
	}
	go c.healthLoop(ctx)

	c.logger.Info("OpenSearch client connected", logging.Int("nodes", len(cfg.Addresses)))
	return c, nil
}

// API returns the typed OpenSearch client.
func (c *Client) API() *opensearchapi.Client {
	return c.api
}

// Ping checks cluster reachability and updates the cached health state.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.api.Ping(ctx, nil)
	if err != nil || (resp != nil && resp.StatusCode >= 400) {
		c.healthy.Store(false)
		if err == nil {
			return ErrConnectionFailed
		}
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "opensearch ping failed")
	}
	c.healthy.Store(true)
	return nil
}

// IsHealthy reports the last observed health state.
func (c *Client) IsHealthy() bool {
	return c.healthy.Load()
}

// Close stops the background health loop.
func (c *Client) Close() error {
	c.cancel()
	return nil
}

func (c *Client) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Ping(ctx); err != nil {
				c.logger.Warn("OpenSearch health check failed", logging.Err(err))
			}
		}
	}
}
