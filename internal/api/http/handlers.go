package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/echochat/internal/domain/chat"
	"github.com/GriffinCanCode/echochat/internal/domain/session"
	"github.com/GriffinCanCode/echochat/internal/shared/types"
	"github.com/GriffinCanCode/echochat/internal/shared/utils"
)

// Service banner values
const (
	ServiceName = "Echo - UET Science Society Chatbot"
	Version     = "1.0.0"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	orchestrator *chat.Orchestrator
	store        *session.Store
	logger       *zap.Logger
	started      time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(orchestrator *chat.Orchestrator, store *session.Store, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		orchestrator: orchestrator,
		store:        store,
		logger:       logger.Named("http"),
		started:      time.Now(),
	}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": ServiceName,
		"version": Version,
	})
}

// Health reports liveness and the live session count
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{
		Status:         "healthy",
		ActiveSessions: h.store.Count(),
		Uptime:         time.Since(h.started).Truncate(time.Second).String(),
	})
}

// Chat runs one turn
func (h *Handlers) Chat(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, utils.MaxRequestSize)

	var req types.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	resp, err := RunTurn(c.Request.Context(), h.orchestrator, req)
	if err != nil {
		_ = c.Error(err)
		if IsBadRequest(err) {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error(), SessionID: req.SessionID})
			return
		}
		h.logger.Warn("chat degraded to fallback",
			zap.String("session_id", resp.SessionID),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteSession removes a session. Unknown ids report deleted=false.
func (h *Handlers) DeleteSession(c *gin.Context) {
	sid := c.Param("id")

	deleted := false
	if utils.ValidateID(sid, "session_id", true) == nil {
		deleted = h.store.Delete(sid)
	}
	if deleted {
		h.logger.Info("session deleted", zap.String("session_id", sid))
	}

	c.JSON(http.StatusOK, types.DeleteSessionResponse{
		Deleted:   deleted,
		SessionID: sid,
	})
}

// errBadSessionID marks a malformed session id
var errBadSessionID = errors.New("invalid session_id")

// RunTurn validates req, runs it through orchestrator and maps the result
// to the wire shape. On collaborator failure the returned response carries
// the fallback answer alongside the error.
func RunTurn(ctx context.Context, orchestrator *chat.Orchestrator, req types.ChatRequest) (types.ChatResponse, error) {
	if err := utils.ValidateID(req.SessionID, "session_id", false); err != nil {
		return types.ChatResponse{}, errors.Join(errBadSessionID, err)
	}

	res, err := orchestrator.Run(ctx, req.SessionID, req.Question)
	return NewChatResponse(res), err
}

// NewChatResponse maps a turn result to its JSON body
func NewChatResponse(res chat.Result) types.ChatResponse {
	return types.ChatResponse{
		Answer:             res.Answer,
		SessionID:          res.SessionID,
		MemoryBufferLength: res.MemoryBufferLength,
		MemoryContent:      res.MemoryContent,
	}
}

// IsBadRequest reports whether a RunTurn error is the caller's fault
func IsBadRequest(err error) bool {
	return chat.IsUserError(err) || errors.Is(err, errBadSessionID)
}
