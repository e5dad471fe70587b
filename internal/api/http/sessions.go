package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxImportSize bounds uploaded session documents
const MaxImportSize = 4 * 1024 * 1024

// SaveSession captures every open tab into a stored session
func (h *Handlers) SaveSession(c *gin.Context) {
	var req SaveSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, badRequest(err))
			return
		}
	}

	done := h.metrics.TrackSessionOperation("save")
	s, err := h.sessions.Save(c.Request.Context(), req.Name)
	done(err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.ToMetadata(0))
}

// ListSessions lists stored sessions, filtered by an optional ID glob
func (h *Handlers) ListSessions(c *gin.Context) {
	done := h.metrics.TrackSessionOperation("list")
	list, err := h.sessions.List(c.Request.Context(), c.Query("match"))
	done(err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sessions": list,
		"count":    len(list),
	})
}

// GetSession returns a stored session in full
func (h *Handlers) GetSession(c *gin.Context) {
	sessionID, err := parseSessionID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	s, err := h.sessions.Load(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// ExportSession renders a stored session as YAML
func (h *Handlers) ExportSession(c *gin.Context) {
	sessionID, err := parseSessionID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	done := h.metrics.TrackSessionOperation("export")
	data, err := h.sessions.Export(c.Request.Context(), sessionID)
	done(err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+sessionID.String()+`.yaml"`)
	c.Data(http.StatusOK, "application/yaml", data)
}

// ImportSession stores a YAML session document under a new ID
func (h *Handlers) ImportSession(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxImportSize+1))
	if err != nil {
		respondError(c, badRequest(err))
		return
	}
	if len(data) > MaxImportSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "session document too large"})
		return
	}

	done := h.metrics.TrackSessionOperation("import")
	s, err := h.sessions.Import(c.Request.Context(), data)
	done(err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.ToMetadata(int64(len(data))))
}

// RestoreSession opens the tabs of a stored session
func (h *Handlers) RestoreSession(c *gin.Context) {
	sessionID, err := parseSessionID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	var req RestoreSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, badRequest(err))
			return
		}
	}
	if req.Replace && h.scripts != nil {
		for _, info := range h.tabs.List() {
			h.scripts.Forget(info.ID)
		}
	}

	done := h.metrics.TrackSessionOperation("restore")
	tabIDs, err := h.sessions.Restore(c.Request.Context(), sessionID, req.Replace)
	done(err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"tabs":       tabIDs,
	})
}

// DeleteSession removes a stored session
func (h *Handlers) DeleteSession(c *gin.Context) {
	sessionID, err := parseSessionID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	done := h.metrics.TrackSessionOperation("delete")
	err = h.sessions.Delete(c.Request.Context(), sessionID)
	done(err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": sessionID,
	})
}
