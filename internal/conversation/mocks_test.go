package conversation

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/example/tablebot/internal/domain/booking"
)

type MockSlotFinder struct{ mock.Mock }

func (m *MockSlotFinder) FetchSlots(ctx context.Context, date string) ([]booking.SlotOption, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.SlotOption), args.Error(1)
}

type MockSubmitter struct{ mock.Mock }

func (m *MockSubmitter) SubmitBooking(ctx context.Context, req booking.Request, key string) (bool, error) {
	args := m.Called(ctx, req, key)
	return args.Bool(0), args.Error(1)
}

type MockJournal struct{ mock.Mock }

func (m *MockJournal) Record(ctx context.Context, a booking.Attempt) error {
	return m.Called(ctx, a).Error(0)
}

type mapStore struct {
	mu sync.Mutex
	m  map[string]Conversation
}

func newMapStore() *mapStore { return &mapStore{m: map[string]Conversation{}} }

func (s *mapStore) Get(_ context.Context, id string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *mapStore) Save(_ context.Context, c *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[c.ID] = *c
	return nil
}

func (s *mapStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}
