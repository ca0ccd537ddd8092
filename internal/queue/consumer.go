package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-tracker/internal/config"
	"github.com/iliyamo/movie-tracker/internal/logging"
)

// PurgeFunc drops cached catalog responses after the catalog changed.
type PurgeFunc func(ctx context.Context) (int64, error)

// Consumer listens on the ingestion events queue. Each event is appended to
// <LogDir>/ingestion.log and, when the run changed the catalog, the
// response cache is purged.
type Consumer struct {
	url    string
	queue  string
	logDir string
	purge  PurgeFunc
	log    zerolog.Logger
}

// NewConsumer builds a consumer. purge may be nil when no cache is configured.
func NewConsumer(cfg config.BrokerConfig, purge PurgeFunc) *Consumer {
	return &Consumer{
		url:    cfg.URL,
		queue:  cfg.Queue,
		logDir: cfg.LogDir,
		purge:  purge,
		log:    logging.Component("ingest-consumer"),
	}
}

// Run connects and consumes until ctx is cancelled, reconnecting with a
// doubling delay (capped at 30s) when the broker is unavailable.
func (c *Consumer) Run(ctx context.Context) error {
	delay := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn().Err(err).Dur("retry_in", delay).Msg("failed to dial broker")
			if !sleep(ctx, delay) {
				return ctx.Err()
			}
			if delay < 30*time.Second {
				delay *= 2
			}
			continue
		}
		delay = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn().Err(err).Msg("consume loop ended; reconnecting")
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

	if err := ch.Qos(10, 0, false); err != nil {
		c.log.Warn().Err(err).Msg("set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				c.log.Error().Err(err).Msg("handle ingestion event failed")
				_ = d.Nack(false, false) // no requeue: a bad message would loop
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var ev IngestionCompletedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := c.appendLog(ev); err != nil {
		return err
	}
	if c.purge != nil && ev.Inserted+ev.Updated > 0 {
		n, err := c.purge(ctx)
		if err != nil {
			// the cache expires on its own; the event is still handled
			c.log.Warn().Err(err).Str("run_id", ev.RunID).Msg("cache purge failed")
			return nil
		}
		c.log.Info().Str("run_id", ev.RunID).Int64("keys", n).Msg("catalog cache purged")
	}
	return nil
}

func (c *Consumer) appendLog(ev IngestionCompletedEvent) error {
	if err := os.MkdirAll(c.logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(c.logDir, "ingestion.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] Ingestion %s | run_id=%s | kinds=%s | pages=%d | inserted=%d | updated=%d | skipped=%d | failed=%d | pages_failed=%d\n",
		ev.FinishedAt, ev.Status, ev.RunID, strings.Join(ev.Kinds, ","), ev.Pages,
		ev.Inserted, ev.Updated, ev.Skipped, ev.Failed, ev.PagesFailed)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
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
