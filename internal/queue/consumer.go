package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strconv"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// Consumer listens to the order-paid queue and appends one line per settled
// order to a log file.
type Consumer struct {
    URL     string
    Queue   string
    LogPath string
    Log     *zap.Logger
}

// Run connects to RabbitMQ, declares the durable queue and consumes it
// until ctx is cancelled.  Lost connections are re-dialled with an
// exponential backoff capped at 30s.  Messages that cannot be handled are
// rejected without requeue so a poison message cannot spin the loop.
func (c *Consumer) Run(ctx context.Context) error {
    if c.Log == nil {
        c.Log = zap.NewNop()
    }
    if c.Queue == "" {
        c.Queue = OrderPaidQueue
    }
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Log.Warn("order consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Log.Warn("order consumer: loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Log.Warn("order consumer: set qos failed", zap.Error(err))
    }
    if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }
    c.Log.Info("order consumer: consuming", zap.String("queue", c.Queue))

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.Handle(d.Body); err != nil {
                c.Log.Error("order consumer: handle message failed", zap.Error(err))
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// Handle decodes one message body and appends it to the log file.
func (c *Consumer) Handle(body []byte) error {
    var ev OrderPaidEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.OrderID == 0 {
        return errors.New("event without order_id")
    }
    path := c.LogPath
    if path == "" {
        path = filepath.Join("logs", "orders.log")
    }
    if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatOrderPaid(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatOrderPaid renders the single log line written for an event.
func FormatOrderPaid(ev OrderPaidEvent) string {
    movies := make([]string, len(ev.MovieIDs))
    for i, id := range ev.MovieIDs {
        movies[i] = strconv.FormatUint(id, 10)
    }
    return fmt.Sprintf("[%s] Order paid | order_id=%d | user_id=%d | payment_id=%d | external_id=%s | total=%s %s | movies=[%s]\n",
        ev.PaidAt, ev.OrderID, ev.UserID, ev.PaymentID, ev.ExternalPaymentID, ev.TotalAmount,
        strings.ToUpper(ev.Currency), strings.Join(movies, ","))
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
