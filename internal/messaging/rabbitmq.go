package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

type RabbitMQClient struct {
	conn *amqp.Connection
	open func() (channel, error)

	mu       sync.Mutex
	channel  channel
	declared map[string]bool
}

func NewRabbitMQClient(url string) (*RabbitMQClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	c := newClient(func() (channel, error) {
		return conn.Channel()
	})
	c.conn = conn

	if err := c.ensureChannel(); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func newClient(open func() (channel, error)) *RabbitMQClient {
	return &RabbitMQClient{
		open:     open,
		declared: make(map[string]bool),
	}
}

func (c *RabbitMQClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// ensureChannel reopens the channel after the broker closed it. Any channel
// error closes the channel on the broker side, and queue declarations do not
// survive it.
func (c *RabbitMQClient) ensureChannel() error {
	if c.channel != nil && !c.channel.IsClosed() {
		return nil
	}
	ch, err := c.open()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	c.channel = ch
	c.declared = make(map[string]bool)
	return nil
}

func (c *RabbitMQClient) declareQueue(name string) error {
	if c.declared[name] {
		return nil
	}
	_, err := c.channel.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return err
	}
	c.declared[name] = true
	return nil
}

// Publish sends a persistent JSON message to queueName through the default exchange.
func (c *RabbitMQClient) Publish(ctx context.Context, queueName string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureChannel(); err != nil {
		return err
	}
	if err := c.declareQueue(queueName); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	return c.channel.PublishWithContext(
		ctx,
		"",        // exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
}
