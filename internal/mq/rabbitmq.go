package mq

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange/queue topology for the object-deletion task pipeline: the
// cleanup sweeper publishes a deletion task per expired share onto
// ExchangeTasks; a consumer (the sweeper worker itself, or a separate
// process) removes the object from the storage gateway and acks. A
// failed delivery is acked and republished onto the retry queue, which
// dead-letters
// back onto the tasks queue after its per-message TTL elapses; after
// the configured number of redeliveries the task is routed to the DLQ
// for manual inspection rather than retried forever.
const (
	ExchangeTasks = "deletion.exchange"
	ExchangeRetry = "deletion.retry.exchange"
	ExchangeDLQ   = "deletion.dlq.exchange"

	QueueTasks = "deletion.queue"
	QueueRetry = "deletion.retry.queue"
	QueueDLQ   = "deletion.dlq.queue"

	RoutingTask  = "deletion"
	RoutingRetry = "deletion.retry"
	RoutingDLQ   = "deletion.dlq"
)

type Client struct {
	Conn      *amqp.Connection
	Channel   *amqp.Channel
	publishMu sync.Mutex
}

var publisherMu sync.Mutex
var publisher *Client

// Dial opens a connection and channel against the given AMQP URL. The
// caller owns the returned client and must Close it.
func Dial(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Client{Conn: conn, Channel: ch}, nil
}

// GetPublisher returns a process-wide lazily-(re)dialed publisher,
// redialing whenever the previous connection or channel has died.
func GetPublisher(url string) (*Client, error) {
	publisherMu.Lock()
	defer publisherMu.Unlock()
	if publisher != nil {
		if !publisher.Conn.IsClosed() && !publisher.Channel.IsClosed() {
			return publisher, nil
		}
		publisher.Close()
		publisher = nil
	}
	client, err := Dial(url)
	if err != nil {
		return nil, err
	}
	if err := client.DeclareTopology(); err != nil {
		client.Close()
		return nil, err
	}
	publisher = client
	return publisher, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.Channel != nil {
		_ = c.Channel.Close()
	}
	if c.Conn != nil {
		_ = c.Conn.Close()
	}
}

func (c *Client) DeclareTopology() error {
	if err := c.Channel.ExchangeDeclare(ExchangeTasks, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if err := c.Channel.ExchangeDeclare(ExchangeRetry, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if err := c.Channel.ExchangeDeclare(ExchangeDLQ, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := c.Channel.QueueDeclare(QueueTasks, true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := c.Channel.QueueDeclare(QueueRetry, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    ExchangeTasks,
		"x-dead-letter-routing-key": RoutingTask,
	}); err != nil {
		return err
	}
	if _, err := c.Channel.QueueDeclare(QueueDLQ, true, false, false, false, nil); err != nil {
		return err
	}
	if err := c.Channel.QueueBind(QueueTasks, RoutingTask, ExchangeTasks, false, nil); err != nil {
		return err
	}
	if err := c.Channel.QueueBind(QueueRetry, RoutingRetry, ExchangeRetry, false, nil); err != nil {
		return err
	}
	if err := c.Channel.QueueBind(QueueDLQ, RoutingDLQ, ExchangeDLQ, false, nil); err != nil {
		return err
	}
	return nil
}

// PublishTask enqueues a deletion task for immediate delivery.
func (c *Client) PublishTask(ctx context.Context, body []byte) error {
	return c.publish(ctx, ExchangeTasks, RoutingTask, body, "")
}

// PublishRetry re-enqueues a deletion task to be redelivered after
// delay, via the retry queue's dead-letter TTL.
func (c *Client) PublishRetry(ctx context.Context, body []byte, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	expiration := fmt.Sprintf("%d", delay.Milliseconds())
	return c.publish(ctx, ExchangeRetry, RoutingRetry, body, expiration)
}

// PublishDLQ routes a deletion task that exhausted its retries to the
// dead-letter queue for manual inspection.
func (c *Client) PublishDLQ(ctx context.Context, body []byte) error {
	return c.publish(ctx, ExchangeDLQ, RoutingDLQ, body, "")
}

// Consume starts delivering deletion tasks from the tasks queue. The
// caller is responsible for Ack/Nack on each delivery.
func (c *Client) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	return c.Channel.Consume(QueueTasks, consumerTag, false, false, false, false, nil)
}

func (c *Client) publish(ctx context.Context, exchange, key string, body []byte, expiration string) error {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}
	if expiration != "" {
		msg.Expiration = expiration
	}
	return c.Channel.PublishWithContext(ctx, exchange, key, false, false, msg)
}
