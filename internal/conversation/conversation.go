package conversation

import (
	"time"

	"github.com/example/tablebot/internal/domain/booking"
)

// Conversation is the per-session record a channel keeps between turns.
type Conversation struct {
	ID      string             `json:"id"`
	Channel string             `json:"channel"`
	State   State              `json:"state"`
	Outcome Outcome            `json:"outcome,omitempty"`
	Booking booking.InProgress `json:"booking"`

	// Offered holds the labels shown in the slot choice prompt.
	Offered []string `json:"offered,omitempty"`

	IdempotencyKey string `json:"idempotency_key,omitempty"`
	LastError      string `json:"last_error,omitempty"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Conversation) Ended() bool { return c.State == StateTerminated }

// Message is one outbound reply. Choices, when present, form a closed set
// the channel should render as buttons.
type Message struct {
	Text    string   `json:"text"`
	Choices []string `json:"choices,omitempty"`
	Prompt  bool     `json:"prompt,omitempty"`
}

func say(text string) Message { return Message{Text: text} }

func ask(text string, choices ...string) Message {
	return Message{Text: text, Choices: choices, Prompt: true}
}
