package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// DefaultAuditLog is where the audit consumer appends account events.
var DefaultAuditLog = filepath.Join("logs", "accounts.log")

// Consumer drains the account.events queue into an append-only audit log.
type Consumer struct {
    URL     string
    LogPath string
    Log     logrus.FieldLogger
}

// Run connects to RabbitMQ, declares the queue and consumes until ctx is
// cancelled.  Lost connections are retried with exponential backoff capped
// at 30s.  Messages that cannot be decoded or written are rejected without
// requeueing.
func (c *Consumer) Run(ctx context.Context) error {
    if c.URL == "" {
        c.URL = DefaultAMQPURL
    }
    if c.LogPath == "" {
        c.LogPath = DefaultAuditLog
    }
    if c.Log == nil {
        c.Log = logrus.StandardLogger()
    }

    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Log.WithError(err).Warnf("audit-consumer: dial failed; retrying in %s", backoff)
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
        c.Log.WithError(err).Warn("audit-consumer: consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
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

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Log.WithError(err).Warn("audit-consumer: set QoS failed")
    }
    if _, err := ch.QueueDeclare(AccountEventsQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.ConsumeWithContext(ctx, AccountEventsQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := c.handle(d.Body); err != nil {
            c.Log.WithError(err).Error("audit-consumer: handle message failed")
            _ = d.Nack(false, false)
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

func (c *Consumer) handle(body []byte) error {
    var ev AccountEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" {
        return errors.New("event without type")
    }
    return appendLine(c.LogPath, FormatAuditLine(ev))
}

func appendLine(path, line string) error {
    if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatAuditLine renders one event as a single newline-terminated line.
func FormatAuditLine(ev AccountEvent) string {
    flags := []string{}
    if ev.IsActive {
        flags = append(flags, "active")
    } else {
        flags = append(flags, "inactive")
    }
    if ev.IsSuperuser {
        flags = append(flags, "superuser")
    }
    return fmt.Sprintf("[%s] %s | account_id=%d | email=%q | username=%q | flags=[%s]\n",
        ev.OccurredAt, ev.Type, ev.AccountID, ev.Email, ev.Username, strings.Join(flags, ","))
}
