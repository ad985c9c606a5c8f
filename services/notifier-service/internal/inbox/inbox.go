// Package inbox deduplicates consumed events. The outbox relay delivers
// at-least-once, so each event id is recorded before processing and a
// replay shows up as a duplicate insert.
package inbox

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agendly/agendly/libs/db"
)

var ErrDuplicate = errors.New("event already processed")

type Inbox struct {
	pool *db.Pool
}

func New(pool *db.Pool) *Inbox {
	return &Inbox{pool: pool}
}

// Mark records an event id, returning ErrDuplicate if it was seen before.
func (i *Inbox) Mark(ctx context.Context, eventID, eventType string) error {
	_, err := i.pool.Exec(ctx, `
		INSERT INTO processed_events (event_id, event_type)
		VALUES ($1, $2)`, eventID, eventType)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return err
	}
	return nil
}
