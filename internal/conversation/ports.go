package conversation

import (
	"context"
	"errors"

	"github.com/example/tablebot/internal/domain/booking"
)

type SlotFinder interface {
	FetchSlots(ctx context.Context, date string) ([]booking.SlotOption, error)
}

type BookingSubmitter interface {
	SubmitBooking(ctx context.Context, req booking.Request, idempotencyKey string) (bool, error)
}

// Journal records submission attempts for operators.
type Journal interface {
	Record(ctx context.Context, a booking.Attempt) error
}

// Store keeps conversations between turns.
type Store interface {
	Get(ctx context.Context, id string) (*Conversation, error)
	Save(ctx context.Context, c *Conversation) error
	Delete(ctx context.Context, id string) error
}

var ErrNotFound = errors.New("conversation not found")
