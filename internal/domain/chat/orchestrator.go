package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/echochat/internal/domain/session"
	"github.com/GriffinCanCode/echochat/internal/infrastructure/resilience"
)

// MaxQuestionLength bounds a single question, in bytes
const MaxQuestionLength = 16 * 1024

// Turn outcomes reported to the Observer
const (
	OutcomeAnswered = "answered"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Collaborator names used for breakers, logs and metrics
const (
	CollaboratorRetriever = "retriever"
	CollaboratorModel     = "model"
)

// Observer records turn outcomes. Implemented by the monitoring package.
type Observer interface {
	ObserveTurn(outcome string, duration time.Duration)
	CollaboratorFailed(collaborator string)
}

type nopObserver struct{}

func (nopObserver) ObserveTurn(string, time.Duration) {}
func (nopObserver) CollaboratorFailed(string)         {}

// Config tunes retrieval and timing
type Config struct {
	// TopK is how many documents are requested and used
	TopK int
	// SnippetChars caps each document, in runes, to bound prompt size
	SnippetChars int
	// Timeout bounds the collaborator calls of one turn. Zero disables it.
	Timeout time.Duration
}

// DefaultConfig returns the stock retrieval settings
func DefaultConfig() Config {
	return Config{
		TopK:         3,
		SnippetChars: 800,
		Timeout:      60 * time.Second,
	}
}

// Result is what a turn hands back to the transport layer
type Result struct {
	SessionID          string
	Created            bool
	Answer             string
	Trace              []string
	MemoryContent      string
	MemoryBufferLength int
}

// Orchestrator drives sessions through the Input -> Retrieve -> Answer
// pipeline. Safe for concurrent use across sessions; concurrent turns on
// the same session id are not supported.
type Orchestrator struct {
	store     *session.Store
	retriever DocumentRetriever
	model     ConversationModel
	cfg       Config

	retrieverBreaker *resilience.Breaker
	modelBreaker     *resilience.Breaker
	cleaner          *Cleaner
	observer         Observer
	logger           *zap.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l.Named("orchestrator") }
}

// WithObserver sets the turn observer
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithBreakers replaces the default circuit breakers
func WithBreakers(retriever, model *resilience.Breaker) Option {
	return func(o *Orchestrator) {
		o.retrieverBreaker = retriever
		o.modelBreaker = model
	}
}

// NewOrchestrator wires a turn pipeline over store
func NewOrchestrator(store *session.Store, retriever DocumentRetriever, model ConversationModel, cfg Config, opts ...Option) *Orchestrator {
	defaults := DefaultConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = defaults.TopK
	}
	if cfg.SnippetChars <= 0 {
		cfg.SnippetChars = defaults.SnippetChars
	}

	o := &Orchestrator{
		store:     store,
		retriever: retriever,
		model:     model,
		cfg:       cfg,
		cleaner:   NewCleaner(),
		observer:  nopObserver{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.retrieverBreaker == nil {
		o.retrieverBreaker = resilience.New(CollaboratorRetriever, resilience.Settings{})
	}
	if o.modelBreaker == nil {
		o.modelBreaker = resilience.New(CollaboratorModel, resilience.Settings{})
	}
	return o
}

// ValidateQuestion trims raw input and rejects empty or oversized text
func ValidateQuestion(raw string) (string, error) {
	q := strings.TrimSpace(raw)
	switch {
	case q == "":
		return "", fmt.Errorf("%w: question is empty", ErrValidation)
	case len(q) > MaxQuestionLength:
		return "", fmt.Errorf("%w: question exceeds %d bytes", ErrValidation, MaxQuestionLength)
	case !utf8.ValidString(q):
		return "", fmt.Errorf("%w: question is not valid UTF-8", ErrValidation)
	}
	return q, nil
}

// Run executes one turn. An unknown or empty sessionID starts a new
// session; the id actually used is in Result.SessionID.
//
// Validation failures return ErrValidation before any session is touched.
// Collaborator failures return ErrCollaboratorUnavailable with
// Result.Answer set to FallbackAnswer and the stored answer left unset.
func (o *Orchestrator) Run(ctx context.Context, sessionID, text string) (Result, error) {
	start := time.Now()

	question, err := ValidateQuestion(text)
	if err != nil {
		o.observer.ObserveTurn(OutcomeRejected, time.Since(start))
		return Result{SessionID: sessionID}, err
	}

	sid, created := o.resolve(sessionID)
	logger := o.logger.With(zap.String("session_id", sid))

	res, err := o.runTurn(ctx, sid, question)
	res.Created = created

	if err != nil {
		o.observer.ObserveTurn(OutcomeFailed, time.Since(start))
		logger.Warn("turn failed", zap.Error(err), zap.Strings("trace", res.Trace))
		return res, err
	}

	o.observer.ObserveTurn(OutcomeAnswered, time.Since(start))
	logger.Debug("turn answered",
		zap.Strings("trace", res.Trace),
		zap.Int("memory_buffer_length", res.MemoryBufferLength),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// resolve returns a live session id, creating one when needed
func (o *Orchestrator) resolve(sessionID string) (string, bool) {
	if sessionID != "" {
		if _, ok := o.store.Get(sessionID); ok {
			return sessionID, false
		}
	}
	return o.store.Create(), true
}

func (o *Orchestrator) runTurn(ctx context.Context, sid, question string) (Result, error) {
	// Input
	if err := o.store.BeginTurn(sid, question); err != nil {
		return o.fail(sid, fmt.Errorf("begin turn: %w", err))
	}

	handle, err := o.store.Memory(sid)
	if err != nil {
		return o.fail(sid, fmt.Errorf("load memory: %w", err))
	}
	memory, err := asMemory(handle)
	if err != nil {
		o.store.Delete(sid)
		o.logger.Error("dropping session with corrupt memory", zap.String("session_id", sid), zap.Error(err))
		return Result{SessionID: sid, Answer: FallbackAnswer}, err
	}

	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	// Retrieve. Collaborators run without the store lock.
	contextText, err := o.retrieve(ctx, question)
	if err != nil {
		return o.fail(sid, err)
	}
	answer, updated, err := o.generate(ctx, contextText, memory, question)
	if err != nil {
		return o.fail(sid, err)
	}

	answer = o.cleaner.Clean(answer)
	if err := o.store.CommitAnswer(sid, answer, updated); err != nil {
		return o.fail(sid, fmt.Errorf("commit answer: %w", err))
	}
	if err := o.store.AppendTrace(sid, session.StageRetrieve); err != nil {
		return o.fail(sid, fmt.Errorf("record retrieve: %w", err))
	}

	// Answer
	if err := o.store.AppendTrace(sid, session.StageAnswer); err != nil {
		return o.fail(sid, fmt.Errorf("record answer: %w", err))
	}

	res := Result{
		SessionID:          sid,
		Answer:             answer,
		MemoryContent:      o.cleaner.Clean(updated.Content()),
		MemoryBufferLength: updated.BufferLength(),
	}
	if rec, ok := o.store.Peek(sid); ok {
		res.Trace = rec.Trace
	}
	return res, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, question string) (string, error) {
	var docs []Document
	err := o.retrieverBreaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		docs, err = o.retriever.Search(ctx, question, o.cfg.TopK)
		return err
	})
	if err != nil {
		o.observer.CollaboratorFailed(CollaboratorRetriever)
		return "", fmt.Errorf("%w: %s: %w", ErrCollaboratorUnavailable, CollaboratorRetriever, err)
	}
	return BuildContext(docs, o.cfg.TopK, o.cfg.SnippetChars), nil
}

func (o *Orchestrator) generate(ctx context.Context, contextText string, memory Memory, question string) (string, Memory, error) {
	var (
		answer  string
		updated Memory
	)
	err := o.modelBreaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		answer, updated, err = o.model.Generate(ctx, contextText, memory, question)
		return err
	})
	if err != nil {
		o.observer.CollaboratorFailed(CollaboratorModel)
		return "", Memory{}, fmt.Errorf("%w: %s: %w", ErrCollaboratorUnavailable, CollaboratorModel, err)
	}
	return answer, updated, nil
}

// fail builds the fallback result from whatever the record holds now
func (o *Orchestrator) fail(sid string, err error) (Result, error) {
	res := Result{SessionID: sid, Answer: FallbackAnswer, MemoryContent: NoMemory}

	rec, ok := o.store.Peek(sid)
	if !ok {
		return res, err
	}
	res.Trace = rec.Trace
	if memory, merr := asMemory(rec.Memory); merr == nil {
		res.MemoryContent = o.cleaner.Clean(memory.Content())
		res.MemoryBufferLength = memory.BufferLength()
	}
	return res, err
}

// asMemory unwraps the session's opaque memory handle. A nil handle means
// the first turn; anything that is not a Memory is corruption.
func asMemory(handle any) (Memory, error) {
	switch m := handle.(type) {
	case nil:
		return Memory{}, nil
	case Memory:
		return m, nil
	default:
		return Memory{}, fmt.Errorf("%w: memory handle has type %T", ErrInconsistent, handle)
	}
}

// IsUserError reports whether err should be shown to the caller as a bad
// request rather than degraded to the fallback answer
func IsUserError(err error) bool {
	return errors.Is(err, ErrValidation)
}
