// Package events publishes JSON event envelopes to a RabbitMQ topic exchange.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/JaimeStill/intake/pkg/lifecycle"
)

// Publisher emits event envelopes.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// New returns a RabbitMQ publisher when cfg has a URL and a no-op publisher
// otherwise. The connection is established by the lifecycle startup hook.
func New(cfg *Config, logger *slog.Logger) Publisher {
	logger = logger.With("system", "events")
	if !cfg.Enabled() {
		logger.Info("event publishing disabled")
		return Noop{}
	}
	return &Client{cfg: cfg, logger: logger}
}

// Noop discards every envelope.
type Noop struct{}

func (Noop) Publish(context.Context, Envelope) error { return nil }

// Client publishes envelopes over a pooled set of AMQP channels.
type Client struct {
	cfg    *Config
	logger *slog.Logger

	mu   sync.RWMutex
	conn *amqp.Connection
	pool *channelPool[*amqp.Channel]
}

// Start registers hooks that dial the broker, declare the exchange, and close
// the connection on shutdown.
func (c *Client) Start(lc *lifecycle.Coordinator) {
	lc.OnStartup("events", func() error {
		return c.connect()
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		c.Close()
	})
}

func (c *Client) connect() error {
	host := ""
	if u, err := url.Parse(c.cfg.URL); err == nil {
		host = u.Host
	}
	c.logger.Info("connecting to rabbitmq", "host", host)

	conn, err := amqp.DialConfig(c.cfg.URL, amqp.Config{
		Dial: amqp.DefaultDial(c.cfg.ConnTimeoutDuration()),
	})
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("declare exchange %s: %w", c.cfg.Exchange, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.pool = newChannelPool(amqpOpener(conn), c.cfg.PoolSize)
	c.mu.Unlock()

	c.logger.Info("rabbitmq publisher ready", "exchange", c.cfg.Exchange)
	return nil
}

// Publish marshals env and publishes it persistently to the configured
// exchange and routing key.
func (c *Client) Publish(ctx context.Context, env Envelope) error {
	if env.Meta.ID == "" {
		return fmt.Errorf("envelope meta id is required")
	}
	if env.Meta.CorrelationID == nil {
		env.Meta.CorrelationID = &env.Meta.ID
	}
	if env.Meta.Producer == nil {
		env.Meta.Producer = &c.cfg.Producer
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	c.mu.RLock()
	pool := c.pool
	c.mu.RUnlock()
	if pool == nil {
		return errNotConnected
	}

	ch, err := pool.borrow(ctx)
	if err != nil {
		return fmt.Errorf("borrow channel: %w", err)
	}
	defer pool.put(ch)

	return ch.PublishWithContext(ctx, c.cfg.Exchange, c.cfg.RoutingKey, false, false, amqp.Publishing{
		ContentType:   "application/json",
		Body:          body,
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.Meta.ID,
		CorrelationId: *env.Meta.CorrelationID,
		Type:          env.Meta.Type,
		Timestamp:     env.Meta.Time,
		AppId:         c.cfg.Producer,
	})
}

// Close releases pooled channels and the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pool != nil {
		c.pool.close()
		c.pool = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.logger.Info("rabbitmq publisher closed")
}
