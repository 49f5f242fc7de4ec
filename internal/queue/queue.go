package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange     = "dinehall.events"
	NotificationsQueue = "dinehall.notifications"
)

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func New(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Client{conn: conn, ch: ch}, nil
}

func (c *Client) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// EnsureTopology declares the topic exchange and the durable notification
// queue, bound to every event routing key.
func (c *Client) EnsureTopology() error {
	if err := c.ch.ExchangeDeclare(EventsExchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := c.ch.QueueDeclare(NotificationsQueue, true, false, false, false, nil); err != nil {
		return err
	}
	return c.ch.QueueBind(NotificationsQueue, "#", EventsExchange, false, nil)
}

// PublishJSON is fire-and-forget; a nil client is a no-op so handlers never
// need to branch on whether the broker is configured.
func (c *Client) PublishJSON(ctx context.Context, routingKey string, payload any) error {
	if c == nil {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.ch.PublishWithContext(ctx, EventsExchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
	})
}

func (c *Client) Consume(queueName string, handler func(ctx context.Context, routingKey string, body []byte) error) error {
	deliveries, err := c.ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return err
	}
	for delivery := range deliveries {
		if err := handler(context.Background(), delivery.RoutingKey, delivery.Body); err != nil {
			_ = delivery.Nack(false, false)
			continue
		}
		_ = delivery.Ack(false)
	}
	return nil
}

// ConsumeWithRetry re-enters the consume loop after transient channel errors.
func (c *Client) ConsumeWithRetry(queueName string, handler func(ctx context.Context, routingKey string, body []byte) error, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = c.Consume(queueName, handler)
		if err == nil {
			return nil
		}
		time.Sleep(delay)
	}
	return err
}
