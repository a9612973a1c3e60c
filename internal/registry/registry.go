// Package registry keeps one primed model conversation per client session.
//
// A Registry is created at process start, handed to every front-end and
// dropped at process stop. Nothing is persisted and records never expire:
// a record lives until Clear is called for its session or the process exits.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"career-chat/internal/llm"
	"career-chat/internal/storage"
)

var (
	ErrNotFound       = errors.New("registry: no conversation for session")
	ErrEmptySessionID = errors.New("registry: empty session id")
)

// Exchange is one user message and the model's reply to it.
type Exchange struct {
	User      string
	AI        string
	Timestamp time.Time
}

// Record is the conversation owned by one session.
type Record struct {
	ID        string
	CreatedAt time.Time

	handle *llm.Chat

	mu         sync.RWMutex
	transcript []Exchange
}

// Send submits text through the record's conversation handle.
func (r *Record) Send(ctx context.Context, text string) (string, error) {
	return r.handle.Send(ctx, text)
}

func (r *Record) append(e Exchange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcript = append(r.transcript, e)
}

func (r *Record) snapshot() []Exchange {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Exchange, len(r.transcript))
	copy(out, r.transcript)
	return out
}

type Option func(*Registry)

// WithRecorder mirrors every appended exchange to rec.
func WithRecorder(rec storage.Recorder) Option {
	return func(r *Registry) { r.recorder = rec }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

type Registry struct {
	client  llm.Client
	persona string

	mu       sync.RWMutex
	sessions map[string]*Record
	creating singleflight.Group

	recorder storage.Recorder
	log      *zap.Logger
	now      func() time.Time
}

// New returns an empty registry. persona is sent as the first turn of every
// new conversation.
func New(client llm.Client, persona string, opts ...Option) *Registry {
	r := &Registry{
		client:   client,
		persona:  persona,
		sessions: make(map[string]*Record),
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) lookup(id string) *Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// GetOrCreate returns the record for id, creating and priming it first if
// needed. Concurrent calls for the same id share one priming call, which is
// not cancelled when the caller that started it goes away; it stays bounded
// by the client's own timeout. If priming fails nothing is stored and the
// error is returned.
func (r *Registry) GetOrCreate(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, ErrEmptySessionID
	}
	if rec := r.lookup(id); rec != nil {
		return rec, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := r.creating.Do(id, func() (interface{}, error) {
		// a flight for id may have finished between lookup and Do
		if rec := r.lookup(id); rec != nil {
			return rec, nil
		}

		handle := llm.NewChat(r.client)
		if _, err := handle.Send(flightCtx, r.persona); err != nil {
			r.log.Warn("priming failed", zap.String("session", id), zap.Error(err))
			return nil, fmt.Errorf("prime session %s: %w", id, err)
		}

		rec := &Record{ID: id, CreatedAt: r.now(), handle: handle, transcript: []Exchange{}}
		r.mu.Lock()
		r.sessions[id] = rec
		r.mu.Unlock()

		r.log.Info("conversation created", zap.String("session", id))
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Record), nil
}

// AppendExchange adds one exchange to the end of id's transcript.
func (r *Registry) AppendExchange(id, userText, aiText string) error {
	rec := r.lookup(id)
	if rec == nil {
		return ErrNotFound
	}
	return r.AppendTo(rec, userText, aiText)
}

// AppendTo adds one exchange to rec's transcript, provided rec is still the
// live record for its session. A record that was cleared, or replaced by a
// newer one for the same id, gets ErrNotFound and the exchange is dropped.
func (r *Registry) AppendTo(rec *Record, userText, aiText string) error {
	e := Exchange{User: userText, AI: aiText, Timestamp: r.now()}

	r.mu.RLock()
	if r.sessions[rec.ID] != rec {
		r.mu.RUnlock()
		return ErrNotFound
	}
	rec.append(e)
	r.mu.RUnlock()

	if r.recorder != nil {
		err := r.recorder.AppendInteraction(storage.Event{
			Timestamp:         e.Timestamp,
			SessionID:         rec.ID,
			UserMessage:       userText,
			AssistantResponse: aiText,
		})
		if err != nil {
			r.log.Warn("failed to record exchange", zap.String("session", rec.ID), zap.Error(err))
		}
	}
	return nil
}

// Transcript returns a copy of id's transcript, or an empty slice for an unknown id.
func (r *Registry) Transcript(id string) []Exchange {
	rec := r.lookup(id)
	if rec == nil {
		return []Exchange{}
	}
	return rec.snapshot()
}

// Clear drops the record for id together with its conversation handle.
func (r *Registry) Clear(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; ok {
		delete(r.sessions, id)
		r.log.Info("conversation cleared", zap.String("session", id))
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

type Stats struct {
	Sessions  int
	Exchanges int
	Oldest    time.Time
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	recs := make([]*Record, 0, len(r.sessions))
	for _, rec := range r.sessions {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	s := Stats{Sessions: len(recs)}
	for _, rec := range recs {
		rec.mu.RLock()
		s.Exchanges += len(rec.transcript)
		rec.mu.RUnlock()
		if s.Oldest.IsZero() || rec.CreatedAt.Before(s.Oldest) {
			s.Oldest = rec.CreatedAt
		}
	}
	return s
}
