package conversation

import (
	"errors"
	"fmt"
)

type State string

const (
	StateAwaitDate    State = "await_date"
	StateFetchSlots   State = "fetch_slots"
	StateAwaitSlot    State = "await_slot"
	StateAwaitName    State = "await_name"
	StateAwaitSeats   State = "await_seats"
	StateAwaitConfirm State = "await_confirm"
	StateSubmit       State = "submit"
	StateTerminated   State = "terminated"
)

// Outcome explains why a conversation reached StateTerminated.
type Outcome string

const (
	OutcomeNone           Outcome = ""
	OutcomeNoAvailability Outcome = "no_availability"
	OutcomeDeclined       Outcome = "declined"
	OutcomeBooked         Outcome = "booked"
	OutcomeRejected       Outcome = "rejected"
	OutcomeFailed         Outcome = "failed"
)

var (
	ErrIllegalTransition = errors.New("illegal state transition")
	ErrConversationEnded = errors.New("conversation has ended")
)

// transitions lists every legal move. Self loops are validation re-prompts.
var transitions = map[State][]State{
	StateAwaitDate:    {StateFetchSlots},
	StateFetchSlots:   {StateAwaitSlot, StateTerminated},
	StateAwaitSlot:    {StateAwaitSlot, StateAwaitName},
	StateAwaitName:    {StateAwaitName, StateAwaitSeats},
	StateAwaitSeats:   {StateAwaitSeats, StateAwaitConfirm},
	StateAwaitConfirm: {StateAwaitConfirm, StateSubmit, StateTerminated},
	StateSubmit:       {StateTerminated},
}

func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (c *Conversation) transition(to State) error {
	if !CanTransition(c.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, c.State, to)
	}
	c.State = to
	return nil
}

func (c *Conversation) terminate(o Outcome) error {
	if err := c.transition(StateTerminated); err != nil {
		return err
	}
	c.Outcome = o
	return nil
}
