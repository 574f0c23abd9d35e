// Package milvus provides the Milvus-backed vector index used by semantic
// product search when external vector infrastructure is configured.
package milvus

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

// newMilvusClient is swapped out in tests.
var newMilvusClient = client.NewClient

var (
	ErrConnectionFailed = errors.New(errors.ErrCodeServiceUnavailable, "milvus connection failed")
	ErrUnhealthy        = errors.New(errors.ErrCodeServiceUnavailable, "milvus unhealthy")
)

// consecutive health check failures before a reconnect attempt
const reconnectThreshold = 3

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config holds the Milvus connection settings.
type Config struct {
	Address             string        `mapstructure:"address"`
	Username            string        `mapstructure:"username"`
	Password            string        `mapstructure:"password"`
	DBName              string        `mapstructure:"db_name"`
	TLSEnabled          bool          `mapstructure:"tls_enabled"`
	TLSCertPath         string        `mapstructure:"tls_cert_path"`
	TLSServerName       string        `mapstructure:"tls_server_name"`
	ConnectTimeout      time.Duration `mapstructure:"connect_timeout"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
	KeepAliveTime       time.Duration `mapstructure:"keep_alive_time"`
	KeepAliveTimeout    time.Duration `mapstructure:"keep_alive_timeout"`
}

// ValidateConfig checks the connection settings.
func ValidateConfig(cfg Config) error {
	if cfg.Address == "" {
		return errors.NewValidationError("address", "milvus address is required")
	}
	if cfg.TLSEnabled && cfg.TLSCertPath == "" {
		return errors.NewValidationError("tls_cert_path", "required when TLS is enabled")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.DBName == "" {
		cfg.DBName = "default"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.HealthCheckInterval == 0 {
		cfg.HealthCheckInterval = 30 * time.Second
	}
	if cfg.KeepAliveTime == 0 {
		cfg.KeepAliveTime = 60 * time.Second
	}
	if cfg.KeepAliveTimeout == 0 {
		cfg.KeepAliveTimeout = 20 * time.Second
	}
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Client manages the Milvus connection with periodic health checks and
// automatic reconnection after repeated failures.
type Client struct {
	mc      client.Client
	config  Config
	logger  logging.Logger
	healthy atomic.Bool
	cancel  context.CancelFunc
	mu      sync.RWMutex
}

// NewClient connects to Milvus and starts the background health loop.
func NewClient(cfg Config, log logging.Logger) (*Client, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	applyDefaults(&cfg)

	ctx, cancel := context.WithCancel(context.Background())
	mc, err := connect(ctx, cfg)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to create milvus client")
	}

	c := &Client{
		mc:     mc,
		config: cfg,
		logger: log.Named("milvus"),
		cancel: cancel,
	}

	if err := c.CheckHealth(ctx); err != nil {
		c.Close()
		return nil, ErrConnectionFailed
	}
	go c.healthLoop(ctx)

	c.logger.Info("Milvus client connected", logging.String("address", cfg.Address))
	return c, nil
}

func connect(ctx context.Context, cfg Config) (client.Client, error) {
	milvusCfg := client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.DBName,
	}

	var dialOpts []grpc.DialOption
	if cfg.TLSEnabled {
		caCert, err := os.ReadFile(cfg.TLSCertPath)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeValidation, "failed to read TLS cert")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errors.New(errors.ErrCodeValidation, "failed to parse TLS cert")
		}
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{
			RootCAs:    pool,
			ServerName: cfg.TLSServerName,
		})))
		milvusCfg.EnableTLSAuth = true
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	dialOpts = append(dialOpts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
		Time:                cfg.KeepAliveTime,
		Timeout:             cfg.KeepAliveTimeout,
		PermitWithoutStream: true,
	}))
	milvusCfg.DialOptions = dialOpts

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	return newMilvusClient(connectCtx, milvusCfg)
}

// Milvus returns the underlying SDK client.
func (c *Client) Milvus() client.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mc
}

// CheckHealth pings the cluster and updates the cached health state.
func (c *Client) CheckHealth(ctx context.Context) error {
	mc := c.Milvus()
	if mc == nil {
		return ErrConnectionFailed
	}
	if _, err := mc.CheckHealth(ctx); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("Milvus health check failed", logging.Err(err))
		return ErrUnhealthy
	}
	c.healthy.Store(true)
	return nil
}

// IsHealthy reports the last observed health state.
func (c *Client) IsHealthy() bool {
	return c.healthy.Load()
}

// ServerVersion returns the Milvus server version string.
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	return c.Milvus().GetVersion(ctx)
}

// Close stops the health loop and closes the connection.
func (c *Client) Close() error {
	c.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mc != nil {
		c.mc.Close()
	}
	c.logger.Info("Milvus client closed")
	return nil
}

func (c *Client) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.CheckHealth(ctx); err != nil {
				failures++
			} else {
				failures = 0
			}
			if failures >= reconnectThreshold {
				c.logger.Warn("Milvus repeatedly unhealthy, reconnecting")
				if err := c.reconnect(ctx); err != nil {
					c.logger.Error("Milvus reconnect failed", logging.Err(err))
				} else {
					failures = 0
				}
			}
		}
	}
}

func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mc != nil {
		c.mc.Close()
	}
	mc, err := connect(ctx, c.config)
	if err != nil {
		return err
	}
	c.mc = mc
	c.logger.Info("Milvus client reconnected")
	return nil
}
