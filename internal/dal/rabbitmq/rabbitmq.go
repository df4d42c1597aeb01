package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/streadway/amqp"
)

// Config holds the broker settings read from the environment.
type Config struct {
	User  string `env:"LEDGER_RABBITMQ_USER"  envDefault:"guest"`
	Pass  string `env:"LEDGER_RABBITMQ_PASS"  envDefault:"guest"`
	Host  string `env:"LEDGER_RABBITMQ_HOST"  envDefault:"rabbitmq"`
	Port  int    `env:"LEDGER_RABBITMQ_PORT"  envDefault:"5672"`
	VHost string `env:"LEDGER_RABBITMQ_VHOST" envDefault:"/"`
}

// URL renders the AMQP connection string.
func (c Config) URL() string {
	vhost := c.VHost
	if vhost == "/" {
		vhost = ""
	}

	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", c.User, c.Pass, c.Host, c.Port, vhost)
}

// Client represents a RabbitMQ client.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Channel returns the underlying AMQP channel.
func (r *Client) Channel() *amqp.Channel {
	return r.channel
}

// Close closes the channel and connection for graceful shutdown.
func (r *Client) Close() error {
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			return err
		}
	}
	if r.conn != nil {
		return r.conn.Close()
	}

	return nil
}

// MustNewClient creates a new RabbitMQ client.
func MustNewClient() *Client {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		panic(fmt.Sprintf("Failed to parse RabbitMQ config: %v", err))
	}

	conn, err := amqp.Dial(cfg.URL())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to RabbitMQ: %v", err))
	}

	channel, err := conn.Channel()
	if err != nil {
		if cerr := conn.Close(); cerr != nil {
			panic(fmt.Sprintf("Failed to close a connection: %v", cerr))
		}
		panic(fmt.Sprintf("Failed to open a channel: %v", err))
	}

	slog.Info("RabbitMQ connected", "host", cfg.Host)

	return &Client{
		conn:    conn,
		channel: channel,
	}
}

// DeclareExchange declares a durable topic exchange for ledger events.
func (r *Client) DeclareExchange(name string) error {
	return r.channel.ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil)
}

// Publish sends one persistent message. The channel has no context support, so ctx is only
// checked before sending.
func (r *Client) Publish(ctx context.Context, exchange, routingKey, contentType string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.channel.Publish(
		exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  contentType,
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
