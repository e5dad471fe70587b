package http

import (
	"fmt"
	"strings"

	"github.com/GriffinCanCode/framenav/internal/domain/navigation"
	"github.com/GriffinCanCode/framenav/internal/shared/id"
)

// MaxURLLength bounds URLs accepted over the API
const MaxURLLength = 8 * 1024

// CreateTabRequest opens a tab, optionally loading url
type CreateTabRequest struct {
	URL string `json:"url"`
}

// NavigateRequest is a browser-initiated load
type NavigateRequest struct {
	URL          string `json:"url" binding:"required"`
	Transition   string `json:"transition"`
	Referrer     string `json:"referrer"`
	FrameID      int64  `json:"frame_id"`
	FrameName    string `json:"frame_name"`
	PostData     string `json:"post_data"`
	ExtraHeaders string `json:"extra_headers"`
	Replace      bool   `json:"replace"`
	ClearHistory bool   `json:"clear_history"`
	UserAgent    string `json:"user_agent"`
}

// Params converts the request to controller load parameters
func (r NavigateRequest) Params() (navigation.LoadURLParams, error) {
	if err := validateURL(r.URL); err != nil {
		return navigation.LoadURLParams{}, err
	}
	tr := navigation.TransitionTyped.With(navigation.TransitionFromAddressBar)
	if r.Transition != "" {
		parsed, ok := navigation.ParseTransition(r.Transition)
		if !ok {
			return navigation.LoadURLParams{}, badRequest(fmt.Errorf("unknown transition %q", r.Transition))
		}
		tr = parsed
	}
	p := navigation.LoadURLParams{
		URL:                  r.URL,
		Transition:           tr,
		FrameTreeNodeID:      r.FrameID,
		FrameName:            r.FrameName,
		ExtraHeaders:         r.ExtraHeaders,
		ShouldReplaceCurrent: r.Replace,
		ShouldClearHistory:   r.ClearHistory,
	}
	if r.Referrer != "" {
		p.Referrer = navigation.Referrer{URL: r.Referrer}
	}
	if r.PostData != "" {
		p.LoadType = navigation.LoadBrowserInitiatedPost
		p.PostData = []byte(r.PostData)
	}
	if r.UserAgent != "" {
		p.OverrideUserAgent = navigation.UserAgentOverridden
		p.ExtraHeaders = joinHeaders(p.ExtraHeaders, "User-Agent: "+r.UserAgent)
	}
	return p, nil
}

// GoRequest moves through history by offset, or to an index when set
type GoRequest struct {
	Offset int  `json:"offset"`
	Index  *int `json:"index"`
}

// ReloadRequest reloads the current entry
type ReloadRequest struct {
	// Mode is normal, ignoring_cache or original_request_url
	Mode        string `json:"mode"`
	CheckRepost *bool  `json:"check_repost"`
}

// ReloadType maps the mode to the controller's reload type
func (r ReloadRequest) ReloadType() (navigation.ReloadType, error) {
	switch r.Mode {
	case "", "normal":
		return navigation.ReloadNormal, nil
	case "ignoring_cache":
		return navigation.ReloadIgnoringCache, nil
	case "original_request_url":
		return navigation.ReloadOriginalRequestURL, nil
	default:
		return navigation.ReloadNone, badRequest(fmt.Errorf("unknown reload mode %q", r.Mode))
	}
}

// RepostRequest answers a pending repost confirmation
type RepostRequest struct {
	Proceed bool `json:"proceed"`
}

// HistoryStateRequest drives pushState and replaceState
type HistoryStateRequest struct {
	FrameID int64  `json:"frame_id"`
	URL     string `json:"url" binding:"required"`
}

// FragmentRequest scrolls a frame to a fragment
type FragmentRequest struct {
	FrameID  int64  `json:"frame_id"`
	Fragment string `json:"fragment" binding:"required"`
}

// CreateFrameRequest inserts an iframe into a parent frame
type CreateFrameRequest struct {
	ParentID int64  `json:"parent_id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
}

// FrameNavigateRequest navigates a single frame as its document would
type FrameNavigateRequest struct {
	URL string `json:"url" binding:"required"`
}

// SaveSessionRequest captures the open tabs
type SaveSessionRequest struct {
	Name string `json:"name"`
}

// RestoreSessionRequest restores a stored session
type RestoreSessionRequest struct {
	Replace bool `json:"replace"`
}

func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return badRequest(fmt.Errorf("url is required"))
	}
	if len(raw) > MaxURLLength {
		return badRequest(fmt.Errorf("url exceeds %d bytes", MaxURLLength))
	}
	return nil
}

func parseTabID(raw string) (id.TabID, error) {
	if !id.IsValidPrefixed(raw, id.TabPrefix) {
		return "", badRequest(fmt.Errorf("invalid tab id %q", raw))
	}
	return id.TabID(raw), nil
}

func parseSessionID(raw string) (id.SessionID, error) {
	if !id.IsValidPrefixed(raw, id.SessionPrefix) {
		return "", badRequest(fmt.Errorf("invalid session id %q", raw))
	}
	return id.SessionID(raw), nil
}

func joinHeaders(headers, line string) string {
	if headers == "" {
		return line
	}
	return strings.TrimRight(headers, "\r\n") + "\r\n" + line
}
