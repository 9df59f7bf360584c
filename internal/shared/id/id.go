// Package id provides identifier generation for chat sessions and requests.
//
// Session ids are prefixed ULIDs: 48 bits of millisecond timestamp plus
// 80 bits of crypto/rand entropy, so collisions between concurrently
// created sessions are negligible. The prefix keeps ids readable in logs:
//
//	sess_01HZX5J8Q6W3V9K2N4M7P0R1ST
//
// Request ids use random UUIDs since they only need to be unique for the
// lifetime of a log line.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// SessionID identifies a chat session
type SessionID string

// RequestID identifies an API request
type RequestID string

const (
	SessionPrefix = "sess"
	RequestPrefix = "req"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{
		entropy: rand.Reader,
	}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewSessionID generates a new session ID
func (g *Generator) NewSessionID() SessionID {
	return SessionID(g.GenerateWithPrefix(SessionPrefix))
}

// NewSessionID generates a session ID from the default generator
func NewSessionID() SessionID {
	return Default().NewSessionID()
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(RequestPrefix + "_" + uuid.NewString())
}

func (id SessionID) String() string { return string(id) }
func (id RequestID) String() string { return string(id) }

func isULID(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// IsSessionID reports whether s looks like an id produced by NewSessionID.
func IsSessionID(s string) bool {
	rest, ok := strings.CutPrefix(s, SessionPrefix+"_")
	return ok && isULID(rest)
}

// Timestamp extracts the creation time embedded in a session id
func Timestamp(s string) (time.Time, error) {
	rest, _ := strings.CutPrefix(s, SessionPrefix+"_")
	parsed, err := ulid.Parse(rest)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
