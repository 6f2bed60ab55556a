// Package amqp publishes and consumes document sync messages over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	applog "finanzas/internal/log"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures = 5
	openTimeout = 30 * time.Second
	maxBackoff  = 30 * time.Second
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *slog.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	// unix nanoseconds of the latest failure
	lastFailure atomic.Int64
}

func NewClient(url, exchangeName, queueName string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.With(applog.FieldComponent, applog.ComponentAMQP),
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	c.conn = conn
	c.channel = channel
	return nil
}

func setup(ch *amqp091.Channel, exchange, queue string) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name on a direct exchange.
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// liveChannel returns an open channel, redialling when the previous
// connection dropped.
func (c *Client) liveChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	return c.channel, nil
}

// PublishDocumentSync announces a changed document for account.
func (c *Client) PublishDocumentSync(ctx context.Context, account string) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish sync for %s: %w", account, ErrCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := NewDocumentSyncMessage(account).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	channel, err := c.liveChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = channel.PublishWithContext(ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		if isConnectionError(err) {
			c.recordFailure()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.logger.DebugContext(ctx, "Published document sync message",
		applog.FieldAccount, account,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// ConsumeDocumentSync delivers messages to handler until ctx ends,
// reconnecting with backoff when the broker goes away. Deliveries whose
// handler fails are rejected without requeue.
func (c *Client) ConsumeDocumentSync(ctx context.Context, handler func(context.Context, *DocumentSyncMessage) error) error {
	var backoff reconnectBackoff
	for {
		delivered, err := c.consumeOnce(ctx, handler)
		if delivered > 0 {
			backoff.reset()
		}
		if ctx.Err() != nil {
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		if err != nil && !isConnectionError(err) && !errors.Is(err, errDeliveriesClosed) {
			return err
		}

		wait := backoff.next()
		c.logger.WarnContext(ctx, "AMQP consumer interrupted, reconnecting",
			applog.FieldError, err,
			"attempt", backoff.attempt,
			"wait", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

var errDeliveriesClosed = errors.New("delivery channel closed")

// consumeOnce runs one consumer session and returns how many deliveries it
// handled.
func (c *Client) consumeOnce(ctx context.Context, handler func(context.Context, *DocumentSyncMessage) error) (int, error) {
	channel, err := c.liveChannel()
	if err != nil {
		return 0, err
	}
	msgs, err := channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return 0, fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming document sync messages", "queue", c.queueName)

	delivered := 0
	for {
		select {
		case <-ctx.Done():
			return delivered, ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return delivered, errDeliveriesClosed
			}
			c.handleDelivery(ctx, delivery, handler)
			delivered++
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, d amqp091.Delivery, handler func(context.Context, *DocumentSyncMessage) error) {
	msg, err := DocumentSyncMessageFromJSON(d.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to decode sync message", applog.FieldError, err)
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "Failed to handle sync message",
			applog.FieldAccount, msg.Account,
			applog.FieldError, err)
		_ = d.Nack(false, false)
		return
	}

	_ = d.Ack(false)
	c.logger.DebugContext(ctx, "Processed sync message", applog.FieldAccount, msg.Account)
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		if time.Since(time.Unix(0, c.lastFailure.Load())) > openTimeout {
			atomic.StoreInt32(&c.state, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (c *Client) recordFailure() {
	c.lastFailure.Store(time.Now().UnixNano())
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

// reconnectBackoff grows the wait between consumer reconnects and starts
// over once a session has delivered messages.
type reconnectBackoff struct {
	attempt int
}

func (b *reconnectBackoff) next() time.Duration {
	d := exponentialBackoff(b.attempt)
	b.attempt++
	return d
}

func (b *reconnectBackoff) reset() { b.attempt = 0 }

func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	var err error
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	return err
}
