package booking

import (
	"fmt"
	"strconv"
	"strings"
)

// Offerable returns the slots with spare capacity, in service order.
func Offerable(all []SlotOption) []SlotOption {
	var out []SlotOption
	for _, s := range all {
		if s.Available() {
			out = append(out, s)
		}
	}
	return out
}

// Labels returns the display time of every slot.
func Labels(ss []SlotOption) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, s.Time)
	}
	return out
}

// ResolveSlotID finds the id of the first slot whose time label equals label.
// Duplicate labels are reported through dup so callers can log the ambiguity.
func ResolveSlotID(all []SlotOption, label string) (id string, dup bool, err error) {
	found := false
	for _, s := range all {
		if s.Time != label {
			continue
		}
		if found {
			return id, true, nil
		}
		id, found = s.ID, true
	}
	if !found {
		return "", false, fmt.Errorf("%w: %q", ErrSlotNotFound, label)
	}
	return id, false, nil
}

// ParsePartySize accepts an integer in [MinPartySize, MaxPartySize].
func ParsePartySize(in string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(in))
	if err != nil {
		return 0, ErrInvalidPartySize
	}
	if n < MinPartySize || n > MaxPartySize {
		return 0, ErrInvalidPartySize
	}
	return n, nil
}

// SetSlots stores the fetched snapshot. It may only happen once.
func (b *InProgress) SetSlots(ss []SlotOption) error {
	if b.SlotsFetched {
		return ErrSlotsAlreadySet
	}
	b.AvailableSlots = ss
	b.SlotsFetched = true
	return nil
}

// Request builds the submission payload from a confirmed record, joining
// the chosen label back to a slot id.
func (b InProgress) Request() (Request, bool, error) {
	if !b.Confirmed {
		return Request{}, false, ErrNotConfirmed
	}
	id, dup, err := ResolveSlotID(b.AvailableSlots, b.SelectedSlot)
	if err != nil {
		return Request{}, false, err
	}
	return Request{ID: id, Name: b.CustomerName, Seats: b.PartySize, Date: b.Date}, dup, nil
}
