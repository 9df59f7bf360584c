package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/echochat/internal/shared/clock"
	"github.com/GriffinCanCode/echochat/internal/shared/id"
)

// Removal reasons reported to the Observer.
const (
	ReasonDeleted = "deleted"
	ReasonExpired = "expired"
)

// Observer receives store lifecycle events. Implemented by the monitoring
// package. SetSessionsActive is called while the store lock is held, so
// implementations must not call back into the store.
type Observer interface {
	SessionCreated()
	SessionsRemoved(reason string, n int)
	SetSessionsActive(n int)
}

type nopObserver struct{}

func (nopObserver) SessionCreated()             {}
func (nopObserver) SessionsRemoved(string, int) {}
func (nopObserver) SetSessionsActive(int)       {}

// Store owns the id -> Record mapping.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Record

	clock    clock.Clock
	ids      *id.Generator
	observer Observer
	logger   *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithClock sets the time source used for timestamps and touches
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithGenerator sets the id generator
func WithGenerator(g *id.Generator) Option {
	return func(s *Store) { s.ids = g }
}

// WithObserver sets the lifecycle observer
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l.Named("store") }
}

// NewStore creates an empty store
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*Record),
		clock:    clock.Real(),
		ids:      id.Default(),
		observer: nopObserver{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Clock returns the store's time source
func (s *Store) Clock() clock.Clock {
	return s.clock
}

// Create inserts a fresh record and returns its id
func (s *Store) Create() string {
	// Generate outside the lock, the generator serializes itself
	sid := s.ids.NewSessionID().String()
	now := s.clock.Now()

	s.mu.Lock()
	for {
		if _, exists := s.sessions[sid]; !exists {
			break
		}
		sid = s.ids.NewSessionID().String()
	}
	s.sessions[sid] = newRecord(sid, now)
	s.observer.SetSessionsActive(len(s.sessions))
	s.mu.Unlock()

	s.observer.SessionCreated()
	s.logger.Debug("session created", zap.String("session_id", sid))
	return sid
}

// Get returns a copy of the record and refreshes its last activity.
// Lookup and touch happen in one critical section, so a concurrent
// eviction either removes the record before the lookup or observes the
// refreshed timestamp.
func (s *Store) Get(sid string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sid]
	if !ok {
		return Record{}, false
	}
	rec.touch(s.clock.Now())
	return rec.clone(), true
}

// Peek returns a copy of the record without touching it
func (s *Store) Peek(sid string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sid]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// Delete removes a record. Reports whether anything was removed.
func (s *Store) Delete(sid string) bool {
	s.mu.Lock()
	_, ok := s.sessions[sid]
	if ok {
		delete(s.sessions, sid)
		s.observer.SetSessionsActive(len(s.sessions))
	}
	s.mu.Unlock()

	if ok {
		s.observer.SessionsRemoved(ReasonDeleted, 1)
		s.logger.Debug("session deleted", zap.String("session_id", sid))
	}
	return ok
}

// Count returns the number of live sessions
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ResetTurn clears question, answer and trace. Memory is kept.
func (s *Store) ResetTurn(sid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sid]
	if !ok {
		return false
	}
	rec.resetTurn()
	return true
}

// BeginTurn resets the turn fields, stores the question and records the
// Input stage.
func (s *Store) BeginTurn(sid, question string) error {
	return s.update(sid, func(rec *Record) {
		rec.resetTurn()
		rec.Question = &question
		rec.Trace = append(rec.Trace, StageInput)
	})
}

// AppendTrace records a completed stage for the current turn
func (s *Store) AppendTrace(sid, stage string) error {
	return s.update(sid, func(rec *Record) {
		rec.Trace = append(rec.Trace, stage)
	})
}

// CommitAnswer stores the turn's answer and replaces the memory handle in
// one step, so readers never see an answer without its memory.
func (s *Store) CommitAnswer(sid, answer string, memory any) error {
	return s.update(sid, func(rec *Record) {
		rec.Answer = &answer
		rec.Memory = memory
	})
}

// SetMemory replaces the memory handle
func (s *Store) SetMemory(sid string, memory any) error {
	return s.update(sid, func(rec *Record) {
		rec.Memory = memory
	})
}

// Memory returns the current memory handle, nil if never set
func (s *Store) Memory(sid string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sid]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Memory, nil
}

// Activity snapshots (id, last activity) for every record
func (s *Store) Activity() []Activity {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Activity, 0, len(s.sessions))
	for sid, rec := range s.sessions {
		out = append(out, Activity{ID: sid, LastActivity: rec.LastActivity})
	}
	return out
}

// EvictIdle removes each listed record whose last activity is still before
// deadline. A record touched after the candidate list was built survives.
// Returns the ids actually removed.
func (s *Store) EvictIdle(ids []string, deadline time.Time) []string {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	evicted := make([]string, 0, len(ids))
	for _, sid := range ids {
		rec, ok := s.sessions[sid]
		if !ok || !rec.LastActivity.Before(deadline) {
			continue
		}
		delete(s.sessions, sid)
		evicted = append(evicted, sid)
	}
	if len(evicted) > 0 {
		s.observer.SetSessionsActive(len(s.sessions))
	}
	s.mu.Unlock()

	if len(evicted) > 0 {
		s.observer.SessionsRemoved(ReasonExpired, len(evicted))
	}
	return evicted
}

// Close drops every record. The store stays usable afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	n := len(s.sessions)
	s.sessions = make(map[string]*Record)
	s.observer.SetSessionsActive(0)
	s.mu.Unlock()

	s.logger.Info("session store closed", zap.Int("dropped", n))
}

// update applies fn to a record under the lock and touches it
func (s *Store) update(sid string, fn func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sid]
	if !ok {
		return ErrNotFound
	}
	fn(rec)
	rec.touch(s.clock.Now())
	return nil
}
