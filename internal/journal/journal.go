package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/example/tablebot/internal/db"
	"github.com/example/tablebot/internal/domain/booking"
)

const defaultListLimit = 50

// Repo stores booking attempts in Postgres. One row per idempotency key;
// a repeated key updates the outcome instead of inserting again.
type Repo struct{ db db.Querier }

func NewRepo(d db.Querier) *Repo { return &Repo{db: d} }

func (r *Repo) Record(ctx context.Context, a booking.Attempt) error {
	if a.Key == "" {
		return fmt.Errorf("journal: attempt without idempotency key")
	}
	var errText *string
	if a.Error != "" {
		errText = &a.Error
	}
	at := a.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	err := r.db.Exec(ctx, `
INSERT INTO booking_attempts(idempotency_key,conversation_id,channel,slot_id,customer_name,seats,booking_date,outcome,error,attempted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (idempotency_key) DO UPDATE SET outcome=EXCLUDED.outcome, error=EXCLUDED.error, attempted_at=EXCLUDED.attempted_at`,
		a.Key, a.ConversationID, a.Channel, a.Request.ID, a.Request.Name, a.Request.Seats, a.Request.Date, a.Outcome, errText, at,
	)
	if err != nil {
		return fmt.Errorf("journal: record %s: %w", a.Key, err)
	}
	return nil
}

const selectColumns = `idempotency_key,conversation_id,channel,slot_id,customer_name,seats,booking_date,outcome,error,attempted_at`

// Get loads one attempt by idempotency key. A missing key is db.ErrNotFound.
func (r *Repo) Get(ctx context.Context, key string) (booking.Attempt, error) {
	var a booking.Attempt
	var errText *string
	err := r.db.QueryRow(ctx, `
SELECT `+selectColumns+`
FROM booking_attempts
WHERE idempotency_key=$1`, key).
		Scan(&a.Key, &a.ConversationID, &a.Channel, &a.Request.ID, &a.Request.Name, &a.Request.Seats, &a.Request.Date,
			&a.Outcome, &errText, &a.At)
	if err != nil {
		return booking.Attempt{}, db.WrapNotFound(err)
	}
	if errText != nil {
		a.Error = *errText
	}
	return a, nil
}

// List returns the most recent attempts first.
func (r *Repo) List(ctx context.Context, limit int) ([]booking.Attempt, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.db.Query(ctx, `
SELECT `+selectColumns+`
FROM booking_attempts
ORDER BY attempted_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()

	var out []booking.Attempt
	for rows.Next() {
		var a booking.Attempt
		var errText *string
		if err := rows.Scan(
			&a.Key, &a.ConversationID, &a.Channel, &a.Request.ID, &a.Request.Name, &a.Request.Seats, &a.Request.Date,
			&a.Outcome, &errText, &a.At,
		); err != nil {
			return nil, err
		}
		if errText != nil {
			a.Error = *errText
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
