// Package consumer reads booking lifecycle events and emails clients.
// Delivery is best effort: a failed email never blocks the stream.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/agendly/agendly/libs/kafkax"
	"github.com/agendly/agendly/services/notifier-service/internal/email"
	"github.com/agendly/agendly/services/notifier-service/internal/inbox"
)

const (
	topicBooked    = "booking.appointment.booked.v1"
	topicCancelled = "booking.appointment.cancelled.v1"
)

// appointmentEvent mirrors the booking service's published payload.
type appointmentEvent struct {
	kafkax.EventMeta
	Data struct {
		ID          string    `json:"id"`
		StartTime   time.Time `json:"start_time"`
		ServiceName string    `json:"service_name"`
		ClientName  string    `json:"client_name"`
		ClientEmail string    `json:"client_email"`
	} `json:"data"`
}

type Consumer struct {
	reader *kafka.Reader
	inbox  *inbox.Inbox
	sender email.Sender
	logger *slog.Logger
}

func New(brokers []string, groupID string, ibx *inbox.Inbox, sender email.Sender, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			GroupID:     groupID,
			GroupTopics: []string{topicBooked, topicCancelled},
			MinBytes:    1,
			MaxBytes:    1 << 20,
			MaxWait:     500 * time.Millisecond,
		}),
		inbox:  ibx,
		sender: sender,
		logger: logger,
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Run consumes until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Error("fetch failed", "error", err)
			continue
		}
		c.handle(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("commit failed", "error", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	ctx = kafkax.ExtractTraceContext(ctx, msg)
	tracer := otel.Tracer("notifier-service")
	ctx, span := tracer.Start(ctx, "notify "+msg.Topic, trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var event appointmentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("undecodable event dropped", "topic", msg.Topic, "error", err)
		return
	}
	if err := c.inbox.Mark(ctx, event.EventID, event.EventType); err != nil {
		if errors.Is(err, inbox.ErrDuplicate) {
			c.logger.Debug("duplicate event skipped", "event_id", event.EventID)
			return
		}
		c.logger.Error("inbox mark failed", "event_id", event.EventID, "error", err)
		return
	}
	if event.Data.ClientEmail == "" {
		c.logger.Debug("no client email on event", "event_id", event.EventID)
		return
	}

	subject, body := c.compose(msg.Topic, event)
	if err := c.sender.Send(event.Data.ClientEmail, subject, body); err != nil {
		c.logger.Error("email send failed", "event_id", event.EventID, "error", err)
		return
	}
	c.logger.Info("notification sent", "event_id", event.EventID, "topic", msg.Topic)
}

func (c *Consumer) compose(topic string, event appointmentEvent) (subject, body string) {
	when := event.Data.StartTime.UTC().Format("Monday, 2 January 2006 at 15:04")
	name := event.Data.ClientName
	if name == "" {
		name = "there"
	}
	switch topic {
	case topicCancelled:
		subject = "Your appointment was cancelled"
		body = fmt.Sprintf("Hi %s,\n\nYour %s appointment on %s has been cancelled.\n",
			name, event.Data.ServiceName, when)
	default:
		subject = "Your appointment is confirmed"
		body = fmt.Sprintf("Hi %s,\n\nYour %s appointment is confirmed for %s.\n",
			name, event.Data.ServiceName, when)
	}
	return subject, body
}
