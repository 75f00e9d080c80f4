package service

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "github.com/avast/retry-go"
    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/movie-storefront/internal/queue"
)

// QueuePublisher publishes domain events to a durable RabbitMQ queue.  Each
// publish dials its own connection, so a broker outage never leaves a stale
// channel behind; failed attempts are retried with backoff.
type QueuePublisher struct {
    url      string
    queue    string
    attempts uint
    delay    time.Duration
    log      *zap.Logger
}

// NewQueuePublisher returns a publisher for queueName on the broker at url.
func NewQueuePublisher(url, queueName string, attempts uint, delay time.Duration, log *zap.Logger) *QueuePublisher {
    if queueName == "" {
        queueName = queue.OrderPaidQueue
    }
    if attempts == 0 {
        attempts = 1
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &QueuePublisher{url: url, queue: queueName, attempts: attempts, delay: delay, log: log}
}

// PublishOrderPaid sends ev as a persistent JSON message.  The error is
// returned after the last attempt; callers treat publishing as best effort.
func (p *QueuePublisher) PublishOrderPaid(ctx context.Context, ev queue.OrderPaidEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }
    err = retry.Do(
        func() error { return p.publish(ctx, body) },
        retry.Attempts(p.attempts),
        retry.Delay(p.delay),
        retry.MaxDelay(5*time.Second),
        retry.LastErrorOnly(true),
        retry.RetryIf(func(error) bool { return ctx.Err() == nil }),
        retry.OnRetry(func(n uint, err error) {
            p.log.Warn("rabbitmq: publish attempt failed", zap.Uint("attempt", n+1), zap.Error(err))
        }),
    )
    if err != nil {
        p.log.Error("rabbitmq: publish failed", zap.Uint64("order_id", ev.OrderID), zap.Error(err))
        return err
    }
    return nil
}

func (p *QueuePublisher) publish(ctx context.Context, body []byte) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return fmt.Errorf("dial: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(
        p.queue, // name
        true,    // durable
        false,   // autoDelete
        false,   // exclusive
        false,   // noWait
        nil,     // args
    ); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
        return fmt.Errorf("publish: %w", err)
    }
    return nil
}
