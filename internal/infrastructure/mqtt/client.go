package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/goveedeck/core/internal/infrastructure/config"
)

// MessageHandler receives one message. Paho invokes handlers on its
// own goroutines; a returned error is logged, not redelivered.
type MessageHandler func(topic string, payload []byte) error

// Logger is the slice of a structured logger the client needs. Both
// logging.Logger and slog.Logger satisfy it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Client is a paho wrapper speaking the goveedeck topic hierarchy.
// All methods are safe for concurrent use. Subscriptions made through
// it are replayed after every reconnect.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	subsMu sync.RWMutex
	subs   map[string]subscription

	stateMu   sync.RWMutex
	connected bool

	cbMu         sync.RWMutex
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

// subscription is what handleConnect needs to replay one topic.
type subscription struct {
	qos     byte
	handler MessageHandler
}

// Connect dials the broker, arms the last-will offline status and
// enables auto-reconnect with backoff. It blocks until the first
// connection attempt resolves.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:  cfg,
		subs: make(map[string]subscription),
	}

	opts := clientOptions(cfg)
	opts.SetWill(Topics{}.SystemStatus(),
		string(statusPayload("offline", cfg.Broker.ClientID, "unexpected_disconnect")), 1, true)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect handler fires asynchronously; mark connected here
	// so IsConnected already holds when Connect returns.
	c.stateMu.Lock()
	c.connected = true
	c.stateMu.Unlock()

	return c, nil
}

// handleConnect runs on the initial connection and every reconnect:
// replay tracked subscriptions, announce the online status, then hand
// off to the application callback.
func (c *Client) handleConnect() {
	c.stateMu.Lock()
	c.connected = true
	c.stateMu.Unlock()

	c.subsMu.RLock()
	for topic, sub := range c.subs {
		// Failures here resolve on the next reconnect.
		c.client.Subscribe(topic, sub.qos, c.dispatch(sub.handler))
	}
	c.subsMu.RUnlock()

	c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true,
		statusPayload("online", c.cfg.Broker.ClientID, ""))

	c.cbMu.RLock()
	cb := c.onConnect
	c.cbMu.RUnlock()
	if cb != nil {
		cb()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.stateMu.Lock()
	c.connected = false
	c.stateMu.Unlock()

	c.cbMu.RLock()
	cb := c.onDisconnect
	c.cbMu.RUnlock()
	if cb != nil {
		cb(err)
	}
}

// Close publishes a graceful shutdown status, distinguishable from the
// broker-side last will, and disconnects. Closing an unconnected
// client is a no-op.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true,
			statusPayload("offline", c.cfg.Broker.ClientID, "graceful_shutdown"))
		token.WaitTimeout(publishTimeout)
	}
	c.client.Disconnect(disconnectQuiesceMS)

	c.stateMu.Lock()
	c.connected = false
	c.stateMu.Unlock()

	return nil
}

// HealthCheck reports whether the broker connection is up.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// SetOnConnect registers a callback for the initial connection and
// every reconnect.
func (c *Client) SetOnConnect(cb func()) {
	c.cbMu.Lock()
	c.onConnect = cb
	c.cbMu.Unlock()
}

// SetOnDisconnect registers a callback for lost connections.
func (c *Client) SetOnDisconnect(cb func(err error)) {
	c.cbMu.Lock()
	c.onDisconnect = cb
	c.cbMu.Unlock()
}

// SetLogger attaches a logger for handler panics and errors. Without
// one they are dropped.
func (c *Client) SetLogger(logger Logger) {
	c.cbMu.Lock()
	c.logger = logger
	c.cbMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.cbMu.RLock()
	defer c.cbMu.RUnlock()
	return c.logger
}

// dispatch adapts a MessageHandler to paho, containing panics so one
// bad payload cannot take the daemon down.
func (c *Client) dispatch(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if l := c.getLogger(); l != nil {
					l.Error("mqtt handler panicked", "topic", msg.Topic(), "panic", r)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if l := c.getLogger(); l != nil {
				l.Warn("mqtt handler error", "topic", msg.Topic(), "error", err)
			}
		}
	}
}
