package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"payment-webhook-service/internal/model"
)

type EventRepository struct {
	pool        *pgxpool.Pool
	callTimeout time.Duration
}

func NewEventRepository(pool *pgxpool.Pool, callTimeout time.Duration) *EventRepository {
	return &EventRepository{pool: pool, callTimeout: callTimeout}
}

// Record inserts a received delivery. It reports false when the provider already
// delivered the same event id.
func (r *EventRepository) Record(ctx context.Context, e model.Event) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	query := `INSERT INTO provider_events (provider, event_id, event_type, provider_type, received_at)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (provider, event_id) DO NOTHING`
	tag, err := r.pool.Exec(ctx, query, string(e.Provider), e.ID, string(e.Type), e.ProviderType, e.ReceivedAt)
	if err != nil {
		return false, errors.Wrap(err, "record provider event")
	}
	return tag.RowsAffected() == 1, nil
}

// Complete stores the result of processing a recorded delivery. A redelivery
// overwrites the previous result.
func (r *EventRepository) Complete(ctx context.Context, e model.Event, outcome string, processErr error) error {
	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	var errMsg *string
	if processErr != nil {
		msg := processErr.Error()
		errMsg = &msg
	}

	query := `UPDATE provider_events SET processed_at = now(), outcome = $3, error = $4
	          WHERE provider = $1 AND event_id = $2`
	_, err := r.pool.Exec(ctx, query, string(e.Provider), e.ID, outcome, errMsg)
	return errors.Wrap(err, "complete provider event")
}

func (r *EventRepository) SelectByID(ctx context.Context, provider model.Provider, eventID string) (*ProviderEventEntity, error) {
	query := `SELECT provider, event_id, event_type, provider_type, received_at, processed_at, outcome, error
	          FROM provider_events WHERE provider = $1 AND event_id = $2`

	var e ProviderEventEntity
	err := r.pool.QueryRow(ctx, query, string(provider), eventID).Scan(&e.Provider, &e.EventID, &e.EventType,
		&e.ProviderType, &e.ReceivedAt, &e.ProcessedAt, &e.Outcome, &e.Error)
	if err != nil {
		return nil, errors.Wrap(err, "select provider event")
	}
	return &e, nil
}
