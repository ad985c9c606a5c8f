// Package outbox stages domain events in the service's own database so a
// booking and its event never diverge, then relays them to Kafka.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agendly/agendly/libs/db"
	"github.com/agendly/agendly/libs/kafkax"
	libotel "github.com/agendly/agendly/libs/otel"
)

// Event is one staged outbox row.
type Event struct {
	ID          string
	EventType   string
	Payload     []byte
	Traceparent string
	Tracestate  string
	CreatedAt   time.Time
}

type envelope struct {
	kafkax.EventMeta
	Data any `json:"data"`
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record stages an event. It satisfies the engine's EventRecorder. The
// active trace context is persisted alongside so the relay can continue the
// trace.
func (r *Repository) Record(ctx context.Context, eventType string, payload any) error {
	id := uuid.NewString()
	body, err := json.Marshal(envelope{
		EventMeta: kafkax.EventMeta{
			EventID:    id,
			EventType:  eventType,
			OccurredAt: time.Now().UTC(),
		},
		Data: payload,
	})
	if err != nil {
		return err
	}
	traceparent, tracestate := libotel.TraceContextStrings(ctx)
	_, err = r.pool.Exec(ctx, `
		INSERT INTO outbox_events (id, event_type, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5)`,
		id, eventType, body, traceparent, tracestate)
	return err
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// FetchUnpublished locks a batch of pending events for this relay instance.
// SKIP LOCKED lets concurrent relays work disjoint batches.
func (r *Repository) FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]Event, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, event_type, payload, traceparent, tracestate, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.EventType, &e.Payload, &e.Traceparent, &e.Tracestate, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *Repository) MarkPublished(ctx context.Context, tx pgx.Tx, ids []string) error {
	_, err := tx.Exec(ctx, `
		UPDATE outbox_events SET published_at = now() WHERE id = ANY($1)`, ids)
	return err
}
