package booking

import "time"

// Attempt is one submission made to the booking endpoint, kept for audit.
type Attempt struct {
	Key            string
	ConversationID string
	Channel        string
	Request        Request
	Outcome        string
	Error          string
	At             time.Time
}
