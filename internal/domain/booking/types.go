package booking

// ExistingBooking is a reservation already held against a slot. The service
// returns them with every slot; the conversation does not use them.
type ExistingBooking struct {
	Name  string `json:"name"`
	Seats int    `json:"seats"`
}

// SlotOption is one bookable time on the queried date.
type SlotOption struct {
	ID               string            `json:"id"`
	Date             string            `json:"date"`
	Time             string            `json:"time"`
	SpacesRemaining  int               `json:"spaces_remaining"`
	ExistingBookings []ExistingBooking `json:"existing_bookings"`
}

func (s SlotOption) Available() bool { return s.SpacesRemaining > 0 }

// Request is the payload posted to the booking endpoint.
type Request struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Seats int    `json:"seats"`
	Date  string `json:"date"`
}

// InProgress accumulates the user's answers for a single conversation.
// Fields are filled in step order and never rewritten once set.
type InProgress struct {
	Date           string       `json:"date"`
	AvailableSlots []SlotOption `json:"available_slots"`
	SlotsFetched   bool         `json:"slots_fetched"`
	SelectedSlot   string       `json:"selected_slot"`
	CustomerName   string       `json:"customer_name"`
	PartySize      int          `json:"party_size"`
	Confirmed      bool         `json:"confirmed"`
}

const (
	MinPartySize = 1
	MaxPartySize = 10
)
