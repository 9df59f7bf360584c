package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/echochat/internal/domain/chat"
	"github.com/GriffinCanCode/echochat/internal/domain/session"
	"github.com/GriffinCanCode/echochat/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/echochat/internal/testutil"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
	failed   []string
}

func (r *recordingObserver) ObserveTurn(outcome string, _ time.Duration) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, outcome)
	r.mu.Unlock()
}

func (r *recordingObserver) CollaboratorFailed(name string) {
	r.mu.Lock()
	r.failed = append(r.failed, name)
	r.mu.Unlock()
}

var societyDocs = []chat.Document{
	{Text: "The society meets every Friday.", Score: 0.9},
	{Text: "Membership is free for students.", Score: 0.8},
}

func TestRunCreatesSessionAndAnswers(t *testing.T) {
	store, _ := testutil.NewStore(t)
	retriever := testutil.NewMockRetriever(t, societyDocs)
	obs := &recordingObserver{}

	orch := chat.NewOrchestrator(store, retriever, testutil.EchoModel{Prefix: "A: "}, chat.DefaultConfig(),
		chat.WithLogger(testutil.NewLogger(t)),
		chat.WithObserver(obs),
	)

	res, err := orch.Run(context.Background(), "", "  When do you meet?  ")
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, "A: When do you meet?", res.Answer)
	assert.Equal(t, []string{session.StageInput, session.StageRetrieve, session.StageAnswer}, res.Trace)
	assert.Equal(t, 2, res.MemoryBufferLength)
	assert.Equal(t, chat.NoMemory, res.MemoryContent)
	assert.Equal(t, []string{chat.OutcomeAnswered}, obs.outcomes)

	rec, ok := store.Peek(res.SessionID)
	require.True(t, ok)
	require.NotNil(t, rec.Question)
	require.NotNil(t, rec.Answer)
	assert.Equal(t, "When do you meet?", *rec.Question)
	assert.Equal(t, "A: When do you meet?", *rec.Answer)
	assert.IsType(t, chat.Memory{}, rec.Memory)

	retriever.AssertCalled(t, "Search", mock.Anything, "When do you meet?", 3)
}

func TestRunReusesExistingSessionAndMemory(t *testing.T) {
	store, _ := testutil.NewStore(t)
	orch := chat.NewOrchestrator(store, testutil.StaticRetriever(societyDocs), testutil.EchoModel{}, chat.DefaultConfig())

	first, err := orch.Run(context.Background(), "", "hello")
	require.NoError(t, err)

	second, err := orch.Run(context.Background(), first.SessionID, "and membership?")
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, 4, second.MemoryBufferLength)
	assert.Equal(t, 1, store.Count())

	// Trace holds only the latest turn
	assert.Equal(t, []string{session.StageInput, session.StageRetrieve, session.StageAnswer}, second.Trace)
}

func TestRunUnknownSessionStartsFresh(t *testing.T) {
	store, _ := testutil.NewStore(t)
	orch := chat.NewOrchestrator(store, testutil.StaticRetriever(nil), testutil.EchoModel{}, chat.DefaultConfig())

	res, err := orch.Run(context.Background(), "sess_expired", "hello again")
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.NotEqual(t, "sess_expired", res.SessionID)
	assert.Equal(t, 2, res.MemoryBufferLength)
}

func TestRunRejectsBlankInput(t *testing.T) {
	store, _ := testutil.NewStore(t)
	retriever := new(testutil.MockRetriever)
	model := new(testutil.MockModel)
	obs := &recordingObserver{}

	orch := chat.NewOrchestrator(store, retriever, model, chat.DefaultConfig(), chat.WithObserver(obs))

	sid := store.Create()
	for _, input := range []string{"", "   ", "\n\t "} {
		res, err := orch.Run(context.Background(), sid, input)
		assert.ErrorIs(t, err, chat.ErrValidation)
		assert.True(t, chat.IsUserError(err))
		assert.Equal(t, sid, res.SessionID)
	}

	retriever.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
	model.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	rec, ok := store.Peek(sid)
	require.True(t, ok)
	assert.Empty(t, rec.Trace)
	assert.Nil(t, rec.Question)
	assert.Equal(t, 1, store.Count(), "rejected input must not create sessions")
	assert.Equal(t, []string{chat.OutcomeRejected, chat.OutcomeRejected, chat.OutcomeRejected}, obs.outcomes)
}

func TestRunZeroResultsUsesSentinel(t *testing.T) {
	store, _ := testutil.NewStore(t)
	retriever := testutil.NewMockRetriever(t, []chat.Document{})
	model := new(testutil.MockModel)
	model.On("Generate", mock.Anything, chat.NoContext, chat.Memory{}, "who are you?").
		Return("I'm Echo.", chat.Memory{}.WithExchange("who are you?", "I'm Echo."), nil).
		Once()

	orch := chat.NewOrchestrator(store, retriever, model, chat.DefaultConfig())

	res, err := orch.Run(context.Background(), "", "who are you?")
	require.NoError(t, err)
	assert.Equal(t, "I'm Echo.", res.Answer)
	model.AssertExpectations(t)
}

func TestRunPassesTruncatedContext(t *testing.T) {
	store, _ := testutil.NewStore(t)
	docs := []chat.Document{{Text: "abcdef"}, {Text: "ghijkl"}, {Text: "mnopqr"}, {Text: "unused"}}
	model := new(testutil.MockModel)
	model.On("Generate", mock.Anything, "abcd\n---\nghij\n---\nmnop", mock.Anything, "q").
		Return("ok", chat.Memory{}, nil).
		Once()

	orch := chat.NewOrchestrator(store, testutil.StaticRetriever(docs), model, chat.Config{TopK: 3, SnippetChars: 4})

	_, err := orch.Run(context.Background(), "", "q")
	require.NoError(t, err)
	model.AssertExpectations(t)
}

func TestRunModelFailureKeepsPriorState(t *testing.T) {
	store, _ := testutil.NewStore(t)
	obs := &recordingObserver{}

	model := new(testutil.MockModel)
	prior := chat.Memory{Summary: "Asked about meetings."}.WithExchange("when?", "Friday")
	model.On("Generate", mock.Anything, mock.Anything, prior, "and where?").
		Return("", chat.Memory{}, errors.New("model timeout")).
		Once()

	orch := chat.NewOrchestrator(store, testutil.StaticRetriever(societyDocs), model, chat.DefaultConfig(),
		chat.WithObserver(obs),
	)

	sid := store.Create()
	require.NoError(t, store.CommitAnswer(sid, "Friday", prior))

	res, err := orch.Run(context.Background(), sid, "and where?")
	require.Error(t, err)
	assert.ErrorIs(t, err, chat.ErrCollaboratorUnavailable)
	assert.False(t, chat.IsUserError(err))

	assert.Equal(t, chat.FallbackAnswer, res.Answer)
	assert.Equal(t, []string{session.StageInput}, res.Trace)
	assert.Equal(t, "Asked about meetings.", res.MemoryContent)
	assert.Equal(t, 2, res.MemoryBufferLength)

	rec, ok := store.Peek(sid)
	require.True(t, ok)
	assert.Nil(t, rec.Answer, "failed turn must not write an answer")
	assert.Equal(t, []string{session.StageInput}, rec.Trace)
	assert.Equal(t, prior, rec.Memory, "memory untouched on failure")

	assert.Equal(t, []string{chat.OutcomeFailed}, obs.outcomes)
	assert.Equal(t, []string{chat.CollaboratorModel}, obs.failed)
}

func TestRunRetrieverFailure(t *testing.T) {
	store, _ := testutil.NewStore(t)
	retriever := new(testutil.MockRetriever)
	retriever.On("Search", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))
	model := new(testutil.MockModel)

	orch := chat.NewOrchestrator(store, retriever, model, chat.DefaultConfig())

	res, err := orch.Run(context.Background(), "", "hi")
	assert.ErrorIs(t, err, chat.ErrCollaboratorUnavailable)
	assert.Equal(t, chat.FallbackAnswer, res.Answer)
	assert.Equal(t, []string{session.StageInput}, res.Trace)
	model.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunOpenBreakerFailsFast(t *testing.T) {
	store, _ := testutil.NewStore(t)
	retriever := new(testutil.MockRetriever)
	retriever.On("Search", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("down")).
		Once()

	tripOnce := resilience.Settings{
		ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 1 },
	}
	orch := chat.NewOrchestrator(store, retriever, testutil.EchoModel{}, chat.DefaultConfig(),
		chat.WithBreakers(resilience.New("retriever", tripOnce), resilience.New("model", tripOnce)),
	)

	_, err := orch.Run(context.Background(), "", "first")
	require.ErrorIs(t, err, chat.ErrCollaboratorUnavailable)

	_, err = orch.Run(context.Background(), "", "second")
	assert.ErrorIs(t, err, chat.ErrCollaboratorUnavailable)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)

	retriever.AssertNumberOfCalls(t, "Search", 1)
}

func TestRunCorruptMemoryDropsSession(t *testing.T) {
	store, _ := testutil.NewStore(t)
	orch := chat.NewOrchestrator(store, testutil.StaticRetriever(nil), testutil.EchoModel{}, chat.DefaultConfig())

	sid := store.Create()
	require.NoError(t, store.SetMemory(sid, "not a memory"))

	res, err := orch.Run(context.Background(), sid, "hello")
	assert.ErrorIs(t, err, chat.ErrInconsistent)
	assert.Equal(t, chat.FallbackAnswer, res.Answer)

	_, ok := store.Peek(sid)
	assert.False(t, ok)
}

func TestRunCleansModelOutput(t *testing.T) {
	store, _ := testutil.NewStore(t)
	model := new(testutil.MockModel)
	model.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("<think>reasoning</think>\n**Friday** at 5pm", chat.Memory{Summary: "<think>x</think>User asked about time."}, nil)

	orch := chat.NewOrchestrator(store, testutil.StaticRetriever(nil), model, chat.DefaultConfig())

	res, err := orch.Run(context.Background(), "", "when?")
	require.NoError(t, err)
	assert.Equal(t, "**Friday** at 5pm", res.Answer)
	assert.Equal(t, "User asked about time.", res.MemoryContent)

	rec, _ := store.Peek(res.SessionID)
	assert.Equal(t, "**Friday** at 5pm", *rec.Answer)
}

func TestRunCallerCancellation(t *testing.T) {
	store, _ := testutil.NewStore(t)
	orch := chat.NewOrchestrator(store, testutil.StaticRetriever(societyDocs), testutil.EchoModel{}, chat.DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := orch.Run(ctx, "", "hello")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, chat.FallbackAnswer, res.Answer)

	// Store is still consistent and usable
	rec, ok := store.Peek(res.SessionID)
	require.True(t, ok)
	assert.Equal(t, []string{session.StageInput}, rec.Trace)

	again, err := orch.Run(context.Background(), res.SessionID, "hello")
	require.NoError(t, err)
	assert.Equal(t, res.SessionID, again.SessionID)
}

func TestRunEvictedMidTurnIsSafe(t *testing.T) {
	store, _ := testutil.NewStore(t)

	var sid string
	model := new(testutil.MockModel)
	model.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { store.Delete(sid) }).
		Return("late answer", chat.Memory{}, nil)

	orch := chat.NewOrchestrator(store, testutil.StaticRetriever(nil), model, chat.DefaultConfig())
	sid = store.Create()

	res, err := orch.Run(context.Background(), sid, "hello")
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Equal(t, chat.FallbackAnswer, res.Answer)
	assert.Equal(t, 0, store.Count())
}

func TestConcurrentTurnsOnDistinctSessions(t *testing.T) {
	store, _ := testutil.NewStore(t)
	orch := chat.NewOrchestrator(store, testutil.StaticRetriever(societyDocs), testutil.EchoModel{}, chat.DefaultConfig())

	const sessions = 50
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := orch.Run(context.Background(), "", "first")
			if !assert.NoError(t, err) {
				return
			}
			_, err = orch.Run(context.Background(), res.SessionID, "second")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, sessions, store.Count())
}
