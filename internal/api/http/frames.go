package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/framenav/internal/domain/tab"
)

// ListFrames returns the live frame tree of a tab, root first
func (h *Handlers) ListFrames(c *gin.Context) {
	t, ok := h.tab(c)
	if !ok {
		return
	}
	st, err := t.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"frames": st.Frames,
		"count":  len(st.Frames),
	})
}

// CreateFrame inserts an iframe and loads its src
func (h *Handlers) CreateFrame(c *gin.Context) {
	t, ok := h.tab(c)
	if !ok {
		return
	}
	var req CreateFrameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	if req.URL != "" {
		if err := validateURL(req.URL); err != nil {
			respondError(c, err)
			return
		}
	}

	done := h.metrics.TrackFrameOperation("create_iframe")
	frameID, err := h.scripts.CreateIframe(c.Request.Context(), t, req.ParentID, req.Name, req.URL)
	done(err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"frame_id":  frameID,
		"parent_id": req.ParentID,
	})
}

// RemoveFrame detaches an iframe and its descendants
func (h *Handlers) RemoveFrame(c *gin.Context) {
	t, frameID, ok := h.frame(c)
	if !ok {
		return
	}
	done := h.metrics.TrackFrameOperation("remove_iframe")
	err := h.scripts.RemoveIframe(c.Request.Context(), t, frameID)
	done(err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"frame_id": frameID,
	})
}

// NavigateFrame starts a renderer-initiated load in one frame
func (h *Handlers) NavigateFrame(c *gin.Context) {
	t, frameID, ok := h.frame(c)
	if !ok {
		return
	}
	var req FrameNavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	if err := validateURL(req.URL); err != nil {
		respondError(c, err)
		return
	}

	done := h.metrics.TrackFrameOperation("navigate_frame")
	accepted, err := h.scripts.NavigateFrame(c.Request.Context(), t, frameID, req.URL)
	done(err)
	h.respondAccepted(c, t, accepted, err)
}

// PushState adds a same-document entry
func (h *Handlers) PushState(c *gin.Context) {
	h.historyState(c, "push_state", true)
}

// ReplaceState rewrites the current entry without loading
func (h *Handlers) ReplaceState(c *gin.Context) {
	h.historyState(c, "replace_state", false)
}

func (h *Handlers) historyState(c *gin.Context, operation string, push bool) {
	t, ok := h.tab(c)
	if !ok {
		return
	}
	var req HistoryStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	if err := validateURL(req.URL); err != nil {
		respondError(c, err)
		return
	}

	done := h.metrics.TrackFrameOperation(operation)
	var (
		res tab.CommitResult
		err error
	)
	if push {
		res, err = h.scripts.PushState(c.Request.Context(), t, req.FrameID, req.URL)
	} else {
		res, err = h.scripts.ReplaceState(c.Request.Context(), t, req.FrameID, req.URL)
	}
	done(err)
	h.respondCommit(c, res, err)
}

// Fragment performs a same-document fragment navigation
func (h *Handlers) Fragment(c *gin.Context) {
	t, ok := h.tab(c)
	if !ok {
		return
	}
	var req FragmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}

	done := h.metrics.TrackFrameOperation("fragment")
	res, err := h.scripts.FragmentNavigate(c.Request.Context(), t, req.FrameID, req.Fragment)
	done(err)
	h.respondCommit(c, res, err)
}

func (h *Handlers) respondCommit(c *gin.Context, res tab.CommitResult, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// frame resolves the :id and :frame parameters
func (h *Handlers) frame(c *gin.Context) (*tab.Tab, int64, bool) {
	t, ok := h.tab(c)
	if !ok {
		return nil, 0, false
	}
	frameID, err := strconv.ParseInt(c.Param("frame"), 10, 64)
	if err != nil || frameID < 0 {
		respondError(c, badRequest(fmt.Errorf("invalid frame id %q", c.Param("frame"))))
		return nil, 0, false
	}
	return t, frameID, true
}
