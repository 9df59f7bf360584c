// Package testutil provides mocks and fixtures shared by package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/GriffinCanCode/echochat/internal/domain/chat"
	"github.com/GriffinCanCode/echochat/internal/domain/session"
	"github.com/GriffinCanCode/echochat/internal/shared/clock"
)

// Epoch is a fixed start time for fake clocks
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// MockRetriever is a mock implementation of chat.DocumentRetriever.
type MockRetriever struct {
	mock.Mock
}

// Search mocks the Search method.
func (m *MockRetriever) Search(ctx context.Context, query string, k int) ([]chat.Document, error) {
	args := m.Called(ctx, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]chat.Document), args.Error(1)
}

// MockModel is a mock implementation of chat.ConversationModel.
type MockModel struct {
	mock.Mock
}

// Generate mocks the Generate method.
func (m *MockModel) Generate(ctx context.Context, contextText string, memory chat.Memory, question string) (string, chat.Memory, error) {
	args := m.Called(ctx, contextText, memory, question)
	return args.String(0), args.Get(1).(chat.Memory), args.Error(2)
}

// EchoModel answers every question with a fixed prefix and records the
// exchange in memory, like a well-behaved model would.
type EchoModel struct {
	Prefix string
}

// Generate implements chat.ConversationModel.
func (e EchoModel) Generate(_ context.Context, _ string, memory chat.Memory, question string) (string, chat.Memory, error) {
	answer := e.Prefix + question
	return answer, memory.WithExchange(question, answer), nil
}

// StaticRetriever returns the same documents for every query.
type StaticRetriever []chat.Document

// Search implements chat.DocumentRetriever.
func (s StaticRetriever) Search(_ context.Context, _ string, k int) ([]chat.Document, error) {
	if k > 0 && len(s) > k {
		return s[:k], nil
	}
	return s, nil
}

// NewMockRetriever creates a retriever mock that returns docs for any query.
func NewMockRetriever(t *testing.T, docs []chat.Document) *MockRetriever {
	t.Helper()
	m := new(MockRetriever)
	m.On("Search", mock.Anything, mock.Anything, mock.Anything).Return(docs, nil).Maybe()
	return m
}

// NewStore creates a session store on a fake clock.
func NewStore(t *testing.T) (*session.Store, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(Epoch)
	return session.NewStore(session.WithClock(fake), session.WithLogger(NewLogger(t))), fake
}

// NewLogger returns a logger that writes through t.Log.
func NewLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t)
}
