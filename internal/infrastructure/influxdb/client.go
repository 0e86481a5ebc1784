package influxdb

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/studiocast-core/internal/infrastructure/config"
)

// Sentinel errors for the metrics sink.
var (
	// ErrDisabled is returned by Connect when metrics are switched off.
	ErrDisabled = errors.New("influxdb: metrics disabled")

	ErrUnreachable  = errors.New("influxdb: server unreachable")
	ErrNotConnected = errors.New("influxdb: metrics sink closed or never connected")
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	defaultBatchSize       = 100
	defaultFlushIntervalMs = 10_000
)

// Client is the metrics sink for scheduler sweeps and relay sessions.
//
// Points are batched and sent in the background, so WriteTick and
// WriteCameraSession never block the scheduler or the relay watcher. Every
// point carries the deployment's site tag. A nil *Client is a valid,
// disconnected sink.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	site     string

	closed  atomic.Bool
	onError atomic.Pointer[func(error)]
}

// Connect pings the server (bounded by ctx) and opens the batched write API.
// site is attached to every point as the "site" tag.
func Connect(ctx context.Context, cfg config.InfluxDBConfig, site string) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	opts := influxdb2.DefaultOptions().
		SetBatchSize(defaultBatchSize).
		SetFlushInterval(defaultFlushIntervalMs)
	if cfg.BatchSize > 0 {
		opts.SetBatchSize(uint(cfg.BatchSize)) // #nosec G115 -- checked positive
	}
	if cfg.FlushInterval > 0 {
		opts.SetFlushInterval(uint(cfg.FlushInterval) * uint(time.Second/time.Millisecond)) // #nosec G115 -- checked positive
	}

	raw := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if ok, err := raw.Ping(pingCtx); err != nil || !ok {
		raw.Close()
		if err == nil {
			err = errors.New("ping reported unhealthy")
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreachable, cfg.URL, err)
	}

	c := &Client{
		client:   raw,
		writeAPI: raw.WriteAPI(cfg.Org, cfg.Bucket),
		site:     site,
	}
	go c.forwardWriteErrors()

	return c, nil
}

// forwardWriteErrors hands asynchronous batch failures to the OnError callback.
func (c *Client) forwardWriteErrors() {
	for err := range c.writeAPI.Errors() {
		if fn := c.onError.Load(); fn != nil {
			(*fn)(err)
		}
	}
}

// SetOnError installs the callback for failed background writes.
func (c *Client) SetOnError(fn func(err error)) {
	c.onError.Store(&fn)
}

// IsConnected reports whether points are currently accepted.
func (c *Client) IsConnected() bool {
	return c != nil && c.client != nil && !c.closed.Load()
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	ok, err := c.client.Ping(checkCtx)
	switch {
	case err != nil:
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	case !ok:
		return fmt.Errorf("%w: ping reported unhealthy", ErrUnreachable)
	}
	return nil
}

// Flush blocks until buffered points are sent. No-op once closed.
func (c *Client) Flush() {
	if c.IsConnected() {
		c.writeAPI.Flush()
	}
}

// Close sends pending points and releases the client. Safe to call twice.
func (c *Client) Close() error {
	if c == nil || c.client == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.writeAPI.Flush()
	c.client.Close()
	return nil
}
