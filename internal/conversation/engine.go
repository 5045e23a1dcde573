package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/tablebot/internal/domain/booking"
	"github.com/example/tablebot/internal/metrics"
)

// Engine drives the booking flow one turn at a time. It holds no
// per-conversation state and is safe for concurrent use across sessions.
type Engine struct {
	finder    SlotFinder
	submitter BookingSubmitter
	journal   Journal
	log       *zap.Logger
	newKey    func() string
	now       func() time.Time
}

type Option func(*Engine)

func WithJournal(j Journal) Option { return func(e *Engine) { e.journal = j } }

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.log = l } }

// WithKeyFunc replaces the idempotency key generator.
func WithKeyFunc(fn func() string) Option { return func(e *Engine) { e.newKey = fn } }

func WithClock(fn func() time.Time) Option { return func(e *Engine) { e.now = fn } }

func NewEngine(finder SlotFinder, submitter BookingSubmitter, opts ...Option) *Engine {
	e := &Engine{
		finder:    finder,
		submitter: submitter,
		log:       zap.NewNop(),
		newKey:    uuid.NewString,
		now:       time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Start opens a new conversation and returns the greeting.
func (e *Engine) Start(id, channel string) (*Conversation, []Message) {
	now := e.now()
	c := &Conversation{
		ID:        id,
		Channel:   channel,
		State:     StateAwaitDate,
		StartedAt: now,
		UpdatedAt: now,
	}
	metrics.RecordConversationStarted(channel)
	e.log.Info("conversation started", zap.String("conversation_id", id), zap.String("channel", channel))
	return c, []Message{say(textGreeting), ask(textAskDate)}
}

// Handle consumes one user utterance and advances c. Validation failures
// keep c in its current state and return the retry prompt.
func (e *Engine) Handle(ctx context.Context, c *Conversation, utterance string) ([]Message, error) {
	if c.Ended() {
		return nil, ErrConversationEnded
	}
	defer func() { c.UpdatedAt = e.now() }()

	switch c.State {
	case StateAwaitDate:
		return e.onDate(ctx, c, utterance)
	case StateAwaitSlot:
		return e.onSlot(c, utterance)
	case StateAwaitName:
		return e.onName(c, utterance)
	case StateAwaitSeats:
		return e.onSeats(c, utterance)
	case StateAwaitConfirm:
		return e.onConfirm(ctx, c, utterance)
	default:
		return nil, fmt.Errorf("%w: cannot accept input in %s", ErrIllegalTransition, c.State)
	}
}

func (e *Engine) onDate(ctx context.Context, c *Conversation, date string) ([]Message, error) {
	c.Booking.Date = date
	if err := c.transition(StateFetchSlots); err != nil {
		return nil, err
	}

	all, err := e.finder.FetchSlots(ctx, date)
	if err != nil {
		e.log.Error("fetch slots failed",
			zap.String("conversation_id", c.ID),
			zap.String("date", date),
			zap.Error(err),
		)
		c.LastError = err.Error()
		return e.end(c, OutcomeFailed, textFetchFailed)
	}
	if err := c.Booking.SetSlots(all); err != nil {
		return nil, err
	}

	offered := booking.Offerable(all)
	if len(offered) == 0 {
		return e.end(c, OutcomeNoAvailability, textFullyBooked(date))
	}
	c.Offered = booking.Labels(offered)
	if err := c.transition(StateAwaitSlot); err != nil {
		return nil, err
	}
	return []Message{ask(textAskSlot, c.Offered...)}, nil
}

func (e *Engine) onSlot(c *Conversation, in string) ([]Message, error) {
	label, ok := matchChoice(c.Offered, in)
	if !ok {
		return e.reprompt(c, ask(textAskSlot, c.Offered...))
	}
	c.Booking.SelectedSlot = label
	if err := c.transition(StateAwaitName); err != nil {
		return nil, err
	}
	return []Message{ask(textAskName)}, nil
}

func (e *Engine) onName(c *Conversation, in string) ([]Message, error) {
	name := strings.TrimSpace(in)
	if name == "" {
		return e.reprompt(c, ask(textAskName))
	}
	c.Booking.CustomerName = name
	if err := c.transition(StateAwaitSeats); err != nil {
		return nil, err
	}
	return []Message{say(textThanks(name)), ask(textAskSeats)}, nil
}

func (e *Engine) onSeats(c *Conversation, in string) ([]Message, error) {
	n, err := booking.ParsePartySize(in)
	if err != nil {
		return e.reprompt(c, ask(textSeatsRetry))
	}
	c.Booking.PartySize = n
	if err := c.transition(StateAwaitConfirm); err != nil {
		return nil, err
	}
	b := c.Booking
	return []Message{
		say(textSummary(b.CustomerName, b.PartySize, b.SelectedSlot, b.Date)),
		ask(textAskConfirm, choiceYes, choiceNo),
	}, nil
}

func (e *Engine) onConfirm(ctx context.Context, c *Conversation, in string) ([]Message, error) {
	yes, ok := parseConfirm(in)
	if !ok {
		return e.reprompt(c, ask(textAskConfirm, choiceYes, choiceNo))
	}
	if !yes {
		return e.end(c, OutcomeDeclined, textDeclined)
	}
	c.Booking.Confirmed = true
	c.IdempotencyKey = e.newKey()
	if err := c.transition(StateSubmit); err != nil {
		return nil, err
	}
	return e.submit(ctx, c)
}

func (e *Engine) submit(ctx context.Context, c *Conversation) ([]Message, error) {
	log := e.log.With(
		zap.String("conversation_id", c.ID),
		zap.String("idempotency_key", c.IdempotencyKey),
	)

	// The label is joined against the full fetched list, full slots included,
	// so a duplicated label resolves to its first occurrence even when that
	// slot has no spaces left.
	req, dup, err := c.Booking.Request()
	if err != nil {
		log.Error("build booking request", zap.Error(err))
		c.LastError = err.Error()
		return e.end(c, OutcomeFailed, textRejected)
	}
	if dup {
		log.Warn("duplicate slot label, using first match",
			zap.String("slot", c.Booking.SelectedSlot),
			zap.String("slot_id", req.ID),
		)
	}

	ok, err := e.submitter.SubmitBooking(ctx, req, c.IdempotencyKey)
	attempt := booking.Attempt{
		Key:            c.IdempotencyKey,
		ConversationID: c.ID,
		Channel:        c.Channel,
		Request:        req,
		At:             e.now(),
	}

	var msgs []Message
	switch {
	case err != nil:
		log.Error("submit booking failed", zap.Error(err))
		c.LastError = err.Error()
		attempt.Outcome, attempt.Error = string(OutcomeFailed), err.Error()
		msgs, err = e.end(c, OutcomeFailed, textSubmitUnknown)
	case ok:
		attempt.Outcome = string(OutcomeBooked)
		msgs, err = e.end(c, OutcomeBooked, textBooked)
	default:
		attempt.Outcome = string(OutcomeRejected)
		msgs, err = e.end(c, OutcomeRejected, textRejected)
	}

	if e.journal != nil {
		if jerr := e.journal.Record(ctx, attempt); jerr != nil {
			log.Warn("journal record failed", zap.Error(jerr))
		}
	}
	return msgs, err
}

func (e *Engine) reprompt(c *Conversation, m Message) ([]Message, error) {
	if err := c.transition(c.State); err != nil {
		return nil, err
	}
	metrics.RecordReprompt(string(c.State))
	return []Message{m}, nil
}

func (e *Engine) end(c *Conversation, o Outcome, text string) ([]Message, error) {
	if err := c.terminate(o); err != nil {
		return nil, err
	}
	metrics.RecordConversationEnded(string(o))
	e.log.Info("conversation ended",
		zap.String("conversation_id", c.ID),
		zap.String("outcome", string(o)),
	)
	return []Message{say(text)}, nil
}
