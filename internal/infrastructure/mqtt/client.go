package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/studiocast-core/internal/infrastructure/config"
)

// Logger is satisfied by logging.Logger and *slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// Client is the core's link to the platform broker.
//
// It publishes camera state and scheduler decisions and delivers operator
// camera commands to a single CommandHandler. paho reconnects on its own;
// on every (re)connect the client re-announces itself on the system status
// topic and restores the command subscription if one is active.
type Client struct {
	paho   pahomqtt.Client
	cfg    config.MQTTConfig
	qos    byte
	topics Topics

	connected atomic.Bool

	mu           sync.RWMutex
	onCommand    CommandHandler
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

// Connect dials the broker and waits for the first CONNACK.
//
// The broker is told to publish a retained "offline" status on
// studiocast/system/status if the core disappears without Close.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	if cfg.QoS < 0 || cfg.QoS > maxQoS {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQoS, cfg.QoS)
	}

	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	c := &Client{
		cfg: cfg,
		qos: byte(cfg.QoS),
	}

	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleConnectionLost(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.log().Warn("MQTT reconnecting", "broker", cfg.Broker.Host)
	})

	c.paho = pahomqtt.NewClient(opts)
	if err := await(c.paho.Connect(), defaultConnectTimeout); err != nil {
		return nil, fmt.Errorf("%w: %s:%d: %w", ErrConnectionFailed, cfg.Broker.Host, cfg.Broker.Port, err)
	}

	// The OnConnect handler runs on its own goroutine and may lag behind.
	c.connected.Store(true)

	return c, nil
}

// await waits for a paho token and returns its error, or a timeout error.
func await(token pahomqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("no acknowledgement after %v", timeout)
	}
	return token.Error()
}

func (c *Client) handleConnect() {
	c.connected.Store(true)

	c.mu.RLock()
	listening := c.onCommand != nil
	callback := c.onConnect
	c.mu.RUnlock()

	if listening {
		// Waiting here would stall paho's connect path; failures show up as
		// the next connection loss.
		c.paho.Subscribe(c.topics.AllCameraCommands(), c.qos, c.dispatchCommand)
	}
	c.paho.Publish(c.topics.SystemStatus(), c.qos, true, statusPayload(c.cfg.Broker.ClientID, statusOnline, ""))

	if callback != nil {
		callback()
	}
}

func (c *Client) handleConnectionLost(err error) {
	c.connected.Store(false)

	c.mu.RLock()
	callback := c.onDisconnect
	c.mu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// Close announces a graceful offline status (distinct from the LWT) and
// disconnects, letting pending publishes drain.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}

	if c.IsConnected() {
		payload := statusPayload(c.cfg.Broker.ClientID, statusOffline, reasonShutdown)
		_ = await(c.paho.Publish(c.topics.SystemStatus(), c.qos, true, payload), defaultPublishTimeout) //nolint:errcheck // best effort on shutdown
	}

	c.paho.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)

	return nil
}

// HealthCheck reports ErrNotConnected when the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known broker link state.
func (c *Client) IsConnected() bool {
	return c.paho != nil && c.connected.Load() && c.paho.IsConnected()
}

// SetOnConnect sets a callback run after every (re)connect.
func (c *Client) SetOnConnect(callback func()) {
	c.mu.Lock()
	c.onConnect = callback
	c.mu.Unlock()
}

// SetOnDisconnect sets a callback run when the connection is lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.mu.Lock()
	c.onDisconnect = callback
	c.mu.Unlock()
}

// SetLogger sets the logger for dropped commands, handler panics and reconnects.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.logger == nil {
		return nopLogger{}
	}
	return c.logger
}
