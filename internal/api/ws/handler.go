package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/framenav/internal/domain/tab"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/framenav/internal/shared/id"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
)

// Message is a control message from the client
type Message struct {
	Type string `json:"type"`
}

// Handler streams tab events over WebSocket connections
type Handler struct {
	tabs     *tab.Manager
	metrics  *monitoring.Metrics
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler
func NewHandler(tabs *tab.Manager, metrics *monitoring.Metrics, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		tabs:    tabs,
		metrics: metrics,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Origins are checked by the CORS middleware.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// TabEvents streams the events of one tab until it closes
func (h *Handler) TabEvents(c *gin.Context) {
	raw := c.Param("id")
	if !id.IsValidPrefixed(raw, id.TabPrefix) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tab id"})
		return
	}
	t, err := h.tabs.Get(id.TabID(raw))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.serve(c, t)
}

// AllEvents streams the events of every tab
func (h *Handler) AllEvents(c *gin.Context) {
	h.serve(c, nil)
}

func (h *Handler) serve(c *gin.Context, t *tab.Tab) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	var tabID id.TabID
	if t != nil {
		tabID = t.ID()
	}
	events, unsubscribe := h.tabs.Subscribe(tabID)
	defer unsubscribe()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}
	log := h.log.With(zap.String("tab_id", tabID.String()))
	log.Debug("websocket connected")

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	defer cancel()

	// Replies to client messages go through the writer loop.
	replies := make(chan any, 8)
	go h.readLoop(ctx, cancel, conn, t, replies)

	if err := h.send(conn, gin.H{"type": "connected", "tab": tabID}); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := h.send(conn, ev); err != nil {
				log.Debug("websocket write failed", zap.Error(err))
				return
			}
			if t != nil && ev.Kind == tab.EventClosed {
				h.close(conn, "tab closed")
				return
			}
		case msg := <-replies:
			if err := h.send(conn, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, t *tab.Tab, replies chan<- any) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", "control")
		}

		var msg Message
		var reply any
		if err := sonic.Unmarshal(data, &msg); err != nil {
			reply = gin.H{"type": "error", "error": "invalid message"}
		} else {
			reply = h.handle(ctx, t, msg)
		}

		select {
		case replies <- reply:
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) handle(ctx context.Context, t *tab.Tab, msg Message) any {
	switch msg.Type {
	case "ping":
		return gin.H{"type": "pong"}
	case "snapshot":
		if t == nil {
			return gin.H{"type": "tabs", "tabs": h.tabs.List()}
		}
		st, err := t.Snapshot(ctx)
		if err != nil {
			return gin.H{"type": "error", "error": err.Error()}
		}
		return gin.H{"type": "snapshot", "state": st}
	default:
		return gin.H{"type": "error", "error": "unknown message type"}
	}
}

func (h *Handler) send(conn *websocket.Conn, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	if h.metrics != nil {
		kind := "event"
		if m, ok := v.(gin.H); ok {
			if s, ok := m["type"].(string); ok {
				kind = s
			}
		}
		h.metrics.RecordWSMessage("out", kind)
	}
	return nil
}

func (h *Handler) close(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
