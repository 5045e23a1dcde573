package booking

import "errors"

var (
	// ErrTransport covers network failures and unexpected HTTP statuses.
	ErrTransport = errors.New("slot service transport error")
	// ErrDecode means the slot service answered with a body we could not read.
	ErrDecode = errors.New("slot service decode error")

	ErrInvalidPartySize = errors.New("party size must be from 1 to 10")
	ErrSlotNotFound     = errors.New("selected slot not in fetched list")
	ErrSlotsAlreadySet  = errors.New("available slots already fetched")
	ErrNotConfirmed     = errors.New("booking not confirmed")
)
