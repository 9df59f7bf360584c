package id

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	assert.NotEqual(t, id1.String(), id2.String())
	assert.Len(t, id1.String(), 26)
}

func TestNewSessionID(t *testing.T) {
	sid := NewSessionID()

	assert.True(t, strings.HasPrefix(sid.String(), "sess_"))
	assert.True(t, IsSessionID(sid.String()))

	parts := strings.Split(sid.String(), "_")
	require.Len(t, parts, 2)
	assert.Len(t, parts[1], 26)
}

func TestNewRequestID(t *testing.T) {
	rid := NewRequestID()
	assert.True(t, strings.HasPrefix(rid.String(), "req_"))
	assert.NotEqual(t, rid, NewRequestID())
}

func TestIsSessionID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"generated", NewSessionID().String(), true},
		{"empty", "", false},
		{"missing prefix", NewGenerator().GenerateString(), false},
		{"wrong prefix", "req_" + NewGenerator().GenerateString(), false},
		{"garbage", "sess_not-a-ulid", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSessionID(tt.input))
		})
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now()
	sid := NewSessionID()
	after := time.Now()

	ts, err := Timestamp(sid.String())
	require.NoError(t, err)

	// ULID timestamps have millisecond precision
	assert.GreaterOrEqual(t, ts.UnixMilli(), before.UnixMilli())
	assert.LessOrEqual(t, ts.UnixMilli(), after.UnixMilli())

	_, err = Timestamp("sess_bogus")
	assert.Error(t, err)
}

func TestConcurrentSessionIDs(t *testing.T) {
	gen := NewGenerator()

	const goroutines = 50
	const idsPerGoroutine = 100

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[SessionID]struct{}, goroutines*idsPerGoroutine)
	)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < idsPerGoroutine; j++ {
				sid := gen.NewSessionID()
				mu.Lock()
				seen[sid] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*idsPerGoroutine)
}
