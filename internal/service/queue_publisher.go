package service

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-tracker/internal/config"
	"github.com/iliyamo/movie-tracker/internal/ingest"
	"github.com/iliyamo/movie-tracker/internal/logging"
	"github.com/iliyamo/movie-tracker/internal/queue"
)

// Publisher announces finished ingestion runs on RabbitMQ. Runs are rare, so
// each publish dials its own connection. Errors are logged and returned; the
// engine never fails a run because of them.
type Publisher struct {
	url   string
	queue string
	log   zerolog.Logger
}

var _ ingest.Notifier = (*Publisher)(nil)

func NewPublisher(cfg config.BrokerConfig) *Publisher {
	return &Publisher{url: cfg.URL, queue: cfg.Queue, log: logging.Component("publisher")}
}

// IngestionCompleted publishes the summary of a run as a persistent message.
func (p *Publisher) IngestionCompleted(ctx context.Context, s ingest.Summary) error {
	body, err := json.Marshal(EventFromSummary(s))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn().Err(err).Msg("dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn().Err(err).Msg("channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		p.log.Warn().Err(err).Str("queue", p.queue).Msg("queue declare failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    s.RunID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.log.Warn().Err(err).Msg("publish failed")
		return err
	}
	p.log.Debug().Str("run_id", s.RunID).Str("queue", p.queue).Msg("ingestion event published")
	return nil
}

// EventFromSummary flattens a run summary into the wire event.
func EventFromSummary(s ingest.Summary) queue.IngestionCompletedEvent {
	kinds := make([]string, len(s.Kinds))
	for i, k := range s.Kinds {
		kinds[i] = string(k)
	}
	return queue.IngestionCompletedEvent{
		RunID:       s.RunID,
		Status:      s.Status,
		Kinds:       kinds,
		Pages:       s.Pages,
		Inserted:    s.Inserted,
		Updated:     s.Updated,
		Skipped:     s.Skipped,
		Failed:      s.Failed,
		Total:       s.Total,
		PagesFailed: s.PagesFailed,
		StartedAt:   s.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:  s.FinishedAt.UTC().Format(time.RFC3339),
	}
}
