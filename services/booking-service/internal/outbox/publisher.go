package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/agendly/agendly/libs/kafkax"
	libotel "github.com/agendly/agendly/libs/otel"
)

// Publisher relays staged events to Kafka. Topic names are the event type
// with a version suffix, e.g. booking.appointment.booked.v1.
type Publisher struct {
	repo      *Repository
	writer    *kafka.Writer
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewPublisher(repo *Repository, brokers []string, logger *slog.Logger) *Publisher {
	return &Publisher{
		repo: repo,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 100 * time.Millisecond,
		},
		interval:  time.Second,
		batchSize: 100,
		logger:    logger,
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Run polls for unpublished events until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.publishBatch(ctx)
			if err != nil {
				p.logger.Error("outbox publish batch failed", "error", err)
				continue
			}
			if n > 0 {
				p.logger.Info("published outbox events", "count", n)
			}
		}
	}
}

// publishBatch locks a batch, writes it to Kafka, and marks it published in
// the same transaction. A Kafka failure rolls the batch back for retry;
// delivery is therefore at-least-once and consumers dedupe on event id.
func (p *Publisher) publishBatch(ctx context.Context) (int, error) {
	tx, err := p.repo.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	events, err := p.repo.FetchUnpublished(ctx, tx, p.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	ids := make([]string, 0, len(events))
	for _, e := range events {
		msg := kafka.Message{
			Topic: e.EventType + ".v1",
			Key:   []byte(e.ID),
			Value: e.Payload,
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(e.ID)},
				{Key: "event_type", Value: []byte(e.EventType)},
			},
		}
		msgCtx := libotel.ContextWithTraceContext(ctx, e.Traceparent, e.Tracestate)
		kafkax.InjectTraceHeaders(msgCtx, &msg)
		msgs = append(msgs, msg)
		ids = append(ids, e.ID)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, err
	}
	if err := p.repo.MarkPublished(ctx, tx, ids); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(events), nil
}
