package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/framenav/internal/domain/session"
	"github.com/GriffinCanCode/framenav/internal/domain/tab"
	"github.com/GriffinCanCode/framenav/internal/shared/id"
)

// Version is reported by the root endpoint
const Version = "0.3.0"

// Scripts performs the document-side operations a page's script would
type Scripts interface {
	PushState(ctx context.Context, t *tab.Tab, frameID int64, url string) (tab.CommitResult, error)
	ReplaceState(ctx context.Context, t *tab.Tab, frameID int64, url string) (tab.CommitResult, error)
	FragmentNavigate(ctx context.Context, t *tab.Tab, frameID int64, fragment string) (tab.CommitResult, error)
	CreateIframe(ctx context.Context, t *tab.Tab, parentID int64, name, src string) (int64, error)
	RemoveIframe(ctx context.Context, t *tab.Tab, frameID int64) error
	NavigateFrame(ctx context.Context, t *tab.Tab, frameID int64, url string) (bool, error)
	Forget(tabID id.TabID)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	tabs     *tab.Manager
	scripts  Scripts
	sessions *session.Manager
	metrics  *HandlerMetrics
	log      *zap.Logger
	started  time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(tabs *tab.Manager, scripts Scripts, sessions *session.Manager, metrics *HandlerMetrics, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{
		tabs:     tabs,
		scripts:  scripts,
		sessions: sessions,
		metrics:  metrics,
		log:      log,
		started:  time.Now(),
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "framenav",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	body := gin.H{
		"status":         "healthy",
		"tabs":           h.tabs.Count(),
		"subscribers":    h.tabs.Hub().Subscribers(),
		"uptime_seconds": time.Since(h.started).Seconds(),
	}
	if h.sessions != nil {
		lastSaved, lastRestored := h.sessions.Stats()
		body["sessions"] = gin.H{
			"last_saved":    lastSaved,
			"last_restored": lastRestored,
		}
	}
	c.JSON(http.StatusOK, body)
}

// ListTabs lists open tabs
func (h *Handlers) ListTabs(c *gin.Context) {
	tabs := h.tabs.List()
	c.JSON(http.StatusOK, gin.H{
		"tabs":  tabs,
		"count": len(tabs),
	})
}

// CreateTab opens a tab, loading url when one is given
func (h *Handlers) CreateTab(c *gin.Context) {
	var req CreateTabRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, badRequest(err))
			return
		}
	}

	done := h.metrics.TrackTabOperation("create")
	var (
		t   *tab.Tab
		err error
	)
	if req.URL != "" {
		if err = validateURL(req.URL); err == nil {
			t, err = h.tabs.Open(c.Request.Context(), req.URL)
		}
	} else {
		t, err = h.tabs.Create()
	}
	done(err)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, t.Info())
}

// GetTab returns a consistent snapshot of a tab
func (h *Handlers) GetTab(c *gin.Context) {
	t, ok := h.tab(c)
	if !ok {
		return
	}
	st, err := t.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// CloseTab closes a tab and drops its renderer state
func (h *Handlers) CloseTab(c *gin.Context) {
	tabID, err := parseTabID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	done := h.metrics.TrackTabOperation("close")
	err = h.tabs.Close(tabID)
	done(err)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.scripts != nil {
		h.scripts.Forget(tabID)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tab_id":  tabID,
	})
}

// Navigate starts a browser-initiated load
func (h *Handlers) Navigate(c *gin.Context) {
	t, ok := h.tab(c)
	if !ok {
		return
	}
	var req NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	params, err := req.Params()
	if err != nil {
		respondError(c, err)
		return
	}

	done := h.metrics.TrackTabOperation("navigate")
	accepted, err := t.LoadURL(c.Request.Context(), params)
	done(err)
	h.respondAccepted(c, t, accepted, err)
}

// Back goes back one entry
func (h *Handlers) Back(c *gin.Context) {
	h.history(c, "back", tab.HistoryBack, 0)
}

// Forward goes forward one entry
func (h *Handlers) Forward(c *gin.Context) {
	h.history(c, "forward", tab.HistoryForward, 0)
}

// Go moves by offset, or to an absolute index when one is given
func (h *Handlers) Go(c *gin.Context) {
	var req GoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	if req.Index != nil {
		h.history(c, "go_to_index", tab.HistoryIndex, *req.Index)
		return
	}
	h.history(c, "go_to_offset", tab.HistoryOffset, req.Offset)
}

func (h *Handlers) history(c *gin.Context, operation string, op tab.HistoryOp, n int) {
	t, ok := h.tab(c)
	if !ok {
		return
	}
	done := h.metrics.TrackTabOperation(operation)
	accepted, err := t.History(c.Request.Context(), op, n)
	done(err)
	h.respondAccepted(c, t, accepted, err)
}

// Reload reloads the current entry
func (h *Handlers) Reload(c *gin.Context) {
	t, ok := h.tab(c)
	if !ok {
		return
	}
	var req ReloadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, badRequest(err))
			return
		}
	}
	kind, err := req.ReloadType()
	if err != nil {
		respondError(c, err)
		return
	}
	check := true
	if req.CheckRepost != nil {
		check = *req.CheckRepost
	}

	done := h.metrics.TrackTabOperation("reload")
	accepted, err := t.Reload(c.Request.Context(), kind, check)
	done(err)
	h.respondAccepted(c, t, accepted, err)
}

// ConfirmRepost answers a reload that is waiting on repost confirmation
func (h *Handlers) ConfirmRepost(c *gin.Context) {
	t, ok := h.tab(c)
	if !ok {
		return
	}
	var req RepostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}

	done := h.metrics.TrackTabOperation("confirm_repost")
	accepted, err := t.ConfirmRepost(c.Request.Context(), req.Proceed)
	done(err)
	h.respondAccepted(c, t, accepted, err)
}

// Stop cancels in-flight loads and discards the pending entry
func (h *Handlers) Stop(c *gin.Context) {
	t, ok := h.tab(c)
	if !ok {
		return
	}
	done := h.metrics.TrackTabOperation("stop")
	err := t.Stop(c.Request.Context())
	done(err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetHistory returns the persistable history of a tab
func (h *Handlers) GetHistory(c *gin.Context) {
	t, ok := h.tab(c)
	if !ok {
		return
	}
	hist, err := t.ExportHistory(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hist)
}

// tab resolves the :id parameter, writing the error response itself
func (h *Handlers) tab(c *gin.Context) (*tab.Tab, bool) {
	tabID, err := parseTabID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	t, err := h.tabs.Get(tabID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return t, true
}

func (h *Handlers) respondAccepted(c *gin.Context, t *tab.Tab, accepted bool, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accepted": accepted,
		"tab":      t.Info(),
	})
}
