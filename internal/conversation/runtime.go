package conversation

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/example/tablebot/internal/metrics"
)

// Runtime is the hosting side of a conversation: it loads the record for a
// session, serialises turns on it, and persists it between turns.
type Runtime struct {
	engine *Engine
	store  Store
	log    *zap.Logger
	locks  keyedMutex
}

func NewRuntime(engine *Engine, store Store, log *zap.Logger) *Runtime {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runtime{engine: engine, store: store, log: log}
}

// Turn delivers one utterance for session id. A session with no live
// conversation is greeted and the utterance is not consumed as an answer.
func (r *Runtime) Turn(ctx context.Context, id, channel, text string) ([]Message, error) {
	unlock := r.locks.lock(id)
	defer unlock()

	c, err := r.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) || (err == nil && c.Ended()) {
		return r.start(ctx, id, channel)
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordTurn(channel)
	msgs, err := r.engine.Handle(ctx, c, text)
	if err != nil {
		return nil, err
	}
	if c.Ended() {
		if err := r.store.Delete(ctx, id); err != nil {
			r.log.Warn("delete ended conversation", zap.String("conversation_id", id), zap.Error(err))
		}
		return msgs, nil
	}
	if err := r.store.Save(ctx, c); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Restart discards any live conversation for id and greets again.
func (r *Runtime) Restart(ctx context.Context, id, channel string) ([]Message, error) {
	unlock := r.locks.lock(id)
	defer unlock()

	if err := r.store.Delete(ctx, id); err != nil {
		return nil, err
	}
	return r.start(ctx, id, channel)
}

func (r *Runtime) start(ctx context.Context, id, channel string) ([]Message, error) {
	c, msgs := r.engine.Start(id, channel)
	if err := r.store.Save(ctx, c); err != nil {
		return nil, err
	}
	return msgs, nil
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
