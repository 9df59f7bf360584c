package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	httpapi "github.com/GriffinCanCode/echochat/internal/api/http"
	"github.com/GriffinCanCode/echochat/internal/domain/chat"
	"github.com/GriffinCanCode/echochat/internal/shared/types"
	"github.com/GriffinCanCode/echochat/internal/shared/utils"
)

// Message directions reported to the Observer
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced by the CORS middleware
	},
}

// Observer counts connections and frames. Implemented by monitoring.Metrics.
type Observer interface {
	IncWSConnections()
	DecWSConnections()
	RecordWSMessage(direction string)
}

type nopObserver struct{}

func (nopObserver) IncWSConnections()      {}
func (nopObserver) DecWSConnections()      {}
func (nopObserver) RecordWSMessage(string) {}

// Handler manages WebSocket connections
type Handler struct {
	orchestrator *chat.Orchestrator
	observer     Observer
	logger       *zap.Logger
}

// NewHandler creates a new WebSocket handler. observer may be nil.
func NewHandler(orchestrator *chat.Orchestrator, observer Observer, logger *zap.Logger) *Handler {
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		orchestrator: orchestrator,
		observer:     observer,
		logger:       logger.Named("ws"),
	}
}

// HandleConnection upgrades the request and runs one turn per text frame
// until the client goes away
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.observer.IncWSConnections()
	defer h.observer.DecWSConnections()

	conn.SetReadLimit(utils.MaxRequestSize)
	ctx := c.Request.Context()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		h.observer.RecordWSMessage(DirectionIn)

		var req types.ChatRequest
		if err := sonic.Unmarshal(data, &req); err != nil {
			if h.sendError(conn, "invalid frame: "+err.Error()) != nil {
				return
			}
			continue
		}

		if err := h.handleChat(ctx, conn, req); err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
}

func (h *Handler) handleChat(ctx context.Context, conn *websocket.Conn, req types.ChatRequest) error {
	resp, err := httpapi.RunTurn(ctx, h.orchestrator, req)
	if err != nil && httpapi.IsBadRequest(err) {
		return h.sendError(conn, err.Error())
	}
	if err != nil {
		h.logger.Warn("chat degraded to fallback",
			zap.String("session_id", resp.SessionID),
			zap.Error(err),
		)
	}
	return h.send(conn, types.WSMessage{Type: types.WSTypeAnswer, ChatResponse: &resp})
}

func (h *Handler) send(conn *websocket.Conn, msg types.WSMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := conn.WriteJSON(msg); err != nil {
		return err
	}
	h.observer.RecordWSMessage(DirectionOut)
	return nil
}

func (h *Handler) sendError(conn *websocket.Conn, msg string) error {
	return h.send(conn, types.WSMessage{Type: types.WSTypeError, Error: msg})
}
