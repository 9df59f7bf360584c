package session

import (
	"errors"
	"time"
)

// ErrNotFound is returned by turn mutators when the session id is unknown,
// either because it never existed or because it was evicted.
var ErrNotFound = errors.New("session not found")

// Stage names recorded in a record's trace, in execution order.
const (
	StageInput    = "Input"
	StageRetrieve = "Retrieve"
	StageAnswer   = "Answer"
)

// Record is the state of one chat session.
//
// Memory is an opaque handle owned by the chat layer. The store never
// inspects it, and a turn replaces it wholesale instead of mutating it.
type Record struct {
	ID           string
	CreatedAt    time.Time
	LastActivity time.Time

	// Current turn; cleared at the start of every turn.
	Question *string
	Answer   *string
	Trace    []string

	Memory any
}

func newRecord(id string, now time.Time) *Record {
	return &Record{
		ID:           id,
		CreatedAt:    now,
		LastActivity: now,
		Trace:        []string{},
	}
}

// touch refreshes LastActivity. Never moves it backwards.
func (r *Record) touch(now time.Time) {
	if now.After(r.LastActivity) {
		r.LastActivity = now
	}
}

// resetTurn clears the current turn but keeps memory.
func (r *Record) resetTurn() {
	r.Question = nil
	r.Answer = nil
	r.Trace = []string{}
}

// clone returns a copy safe to hand out of the critical section.
func (r *Record) clone() Record {
	c := *r
	c.Trace = append([]string(nil), r.Trace...)
	if r.Question != nil {
		q := *r.Question
		c.Question = &q
	}
	if r.Answer != nil {
		a := *r.Answer
		c.Answer = &a
	}
	return c
}

// Activity is the reaper's view of a record.
type Activity struct {
	ID           string
	LastActivity time.Time
}

// IdleFor returns how long the session has been idle at now.
func (a Activity) IdleFor(now time.Time) time.Duration {
	return now.Sub(a.LastActivity)
}
