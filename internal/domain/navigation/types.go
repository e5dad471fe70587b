package navigation

import (
	"encoding/base64"
	"strings"
)

// NavigationType classifies a commit reported by a renderer
type NavigationType int

const (
	// Unknown is never produced by classification; it marks a zero value
	Unknown NavigationType = iota
	// NewPage adds a new entry (or replaces the current one)
	NewPage
	// ExistingPage commits an entry already in the list
	ExistingPage
	// SamePage reloads the current entry in response to a new pending load of the same URL
	SamePage
	// InPage is a same-document navigation of the main frame
	InPage
	// NewSubframe establishes new state for a subframe
	NewSubframe
	// AutoSubframe updates tracked state for a subframe
	AutoSubframe
	// NavIgnore accepts the commit without touching the history list
	NavIgnore
)

var navigationTypeNames = [...]string{
	Unknown:      "unknown",
	NewPage:      "new_page",
	ExistingPage: "existing_page",
	SamePage:     "same_page",
	InPage:       "in_page",
	NewSubframe:  "new_subframe",
	AutoSubframe: "auto_subframe",
	NavIgnore:    "nav_ignore",
}

func (t NavigationType) String() string {
	if t < 0 || int(t) >= len(navigationTypeNames) {
		return "unknown"
	}
	return navigationTypeNames[t]
}

// MarshalText renders the type by name in JSON and YAML payloads
func (t NavigationType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// PageType describes what kind of document an entry shows
type PageType int

const (
	PageNormal PageType = iota
	PageError
	PageInterstitial
)

func (p PageType) String() string {
	switch p {
	case PageError:
		return "error"
	case PageInterstitial:
		return "interstitial"
	default:
		return "normal"
	}
}

// MarshalText renders the page type by name
func (p PageType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a page type name
func (p *PageType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "error":
		*p = PageError
	case "interstitial":
		*p = PageInterstitial
	default:
		*p = PageNormal
	}
	return nil
}

// Transition is a core transition type in the low byte plus qualifier bits
type Transition uint32

const (
	TransitionLink Transition = iota
	TransitionTyped
	TransitionAutoBookmark
	TransitionAutoSubframe
	TransitionManualSubframe
	TransitionGenerated
	TransitionAutoToplevel
	TransitionFormSubmit
	TransitionReload
	TransitionKeyword
	TransitionKeywordGenerated

	transitionLastCore = TransitionKeywordGenerated
)

const (
	TransitionCoreMask Transition = 0xFF

	TransitionForwardBack    Transition = 0x01000000
	TransitionFromAddressBar Transition = 0x02000000
	TransitionHomePage       Transition = 0x04000000
	TransitionClientRedirect Transition = 0x40000000
	TransitionServerRedirect Transition = 0x80000000

	TransitionQualifierMask Transition = 0xFF000000
)

var coreTransitionNames = [...]string{
	TransitionLink:             "link",
	TransitionTyped:            "typed",
	TransitionAutoBookmark:     "auto_bookmark",
	TransitionAutoSubframe:     "auto_subframe",
	TransitionManualSubframe:   "manual_subframe",
	TransitionGenerated:        "generated",
	TransitionAutoToplevel:     "auto_toplevel",
	TransitionFormSubmit:       "form_submit",
	TransitionReload:           "reload",
	TransitionKeyword:          "keyword",
	TransitionKeywordGenerated: "keyword_generated",
}

var qualifierNames = []struct {
	bit  Transition
	name string
}{
	{TransitionForwardBack, "forward_back"},
	{TransitionFromAddressBar, "from_address_bar"},
	{TransitionHomePage, "home_page"},
	{TransitionClientRedirect, "client_redirect"},
	{TransitionServerRedirect, "server_redirect"},
}

// Core strips the qualifier bits
func (t Transition) Core() Transition {
	return t & TransitionCoreMask
}

// CoreIs reports whether the core type equals core
func (t Transition) CoreIs(core Transition) bool {
	return t.Core() == core
}

// Has reports whether every bit of qualifier is set
func (t Transition) Has(qualifier Transition) bool {
	return t&qualifier == qualifier
}

// With returns t with the qualifier bits added
func (t Transition) With(qualifier Transition) Transition {
	return t | (qualifier & TransitionQualifierMask)
}

// IsMainFrame reports whether the transition can only happen in the main frame
func (t Transition) IsMainFrame() bool {
	core := t.Core()
	return core != TransitionAutoSubframe && core != TransitionManualSubframe
}

// IsRedirect reports whether either redirect qualifier is set
func (t Transition) IsRedirect() bool {
	return t&(TransitionClientRedirect|TransitionServerRedirect) != 0
}

func (t Transition) String() string {
	core := t.Core()
	name := "unknown"
	if core <= transitionLastCore {
		name = coreTransitionNames[core]
	}
	var b strings.Builder
	b.WriteString(name)
	for _, q := range qualifierNames {
		if t.Has(q.bit) {
			b.WriteByte('|')
			b.WriteString(q.name)
		}
	}
	return b.String()
}

// MarshalText renders the transition as "core|qualifier|..."
func (t Transition) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses the form produced by MarshalText
func (t *Transition) UnmarshalText(b []byte) error {
	parsed, ok := ParseTransition(string(b))
	if !ok {
		parsed = TransitionLink
	}
	*t = parsed
	return nil
}

// ParseTransition parses "core|qualifier|..." names
func ParseTransition(s string) (Transition, bool) {
	parts := strings.Split(s, "|")
	var out Transition
	found := false
	for i, name := range coreTransitionNames {
		if name == parts[0] {
			out = Transition(i)
			found = true
			break
		}
	}
	if !found {
		return TransitionLink, false
	}
	for _, p := range parts[1:] {
		matched := false
		for _, q := range qualifierNames {
			if q.name == p {
				out |= q.bit
				matched = true
			}
		}
		if !matched {
			return TransitionLink, false
		}
	}
	return out, true
}

// ReloadType selects how a reload revalidates the document
type ReloadType int

const (
	ReloadNone ReloadType = iota
	ReloadNormal
	ReloadIgnoringCache
	ReloadOriginalRequestURL
)

func (r ReloadType) String() string {
	switch r {
	case ReloadNormal:
		return "normal"
	case ReloadIgnoringCache:
		return "ignoring_cache"
	case ReloadOriginalRequestURL:
		return "original_request_url"
	default:
		return "none"
	}
}

// RestoreType records where a restored entry came from
type RestoreType int

const (
	RestoreNone RestoreType = iota
	RestoreLastSession
	RestoreCurrentSession
)

// LoadType selects the request shape for LoadURLWithParams
type LoadType int

const (
	LoadDefault LoadType = iota
	LoadBrowserInitiatedPost
	LoadData
)

// UserAgentOverride controls the user agent of a new load
type UserAgentOverride int

const (
	UserAgentInherit UserAgentOverride = iota
	UserAgentDefault
	UserAgentOverridden
)

// Referrer is the URL and policy sent with a request
type Referrer struct {
	URL    string `json:"url,omitempty" yaml:"url,omitempty"`
	Policy string `json:"policy,omitempty" yaml:"policy,omitempty"`
}

// SSLStatus is a snapshot of the connection security of a committed document
type SSLStatus struct {
	Secure          bool   `json:"secure" yaml:"secure"`
	CertFingerprint string `json:"cert_fingerprint,omitempty" yaml:"cert_fingerprint,omitempty"`
	MixedContent    bool   `json:"mixed_content,omitempty" yaml:"mixed_content,omitempty"`
}

// FaviconStatus is the favicon known for an entry
type FaviconStatus struct {
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
	Valid bool   `json:"valid,omitempty" yaml:"valid,omitempty"`
	Image []byte `json:"image,omitempty" yaml:"image,omitempty"`
}

// PageState is an opaque serialized frame state blob. The controller stores
// and returns it unmodified.
type PageState []byte

// Clone returns an unaliased copy
func (p PageState) Clone() PageState {
	if p == nil {
		return nil
	}
	out := make(PageState, len(p))
	copy(out, p)
	return out
}

// MarshalText encodes the blob as base64 so JSON and YAML carry it alike
func (p PageState) MarshalText() ([]byte, error) {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(p)))
	base64.StdEncoding.Encode(out, p)
	return out, nil
}

// UnmarshalText decodes the form produced by MarshalText
func (p *PageState) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*p = nil
		return nil
	}
	out := make([]byte, base64.StdEncoding.DecodedLen(len(b)))
	n, err := base64.StdEncoding.Decode(out, b)
	if err != nil {
		return err
	}
	*p = out[:n]
	return nil
}

// PageStateFromURL builds the minimal state for a frame that has only a URL
func PageStateFromURL(url string) PageState {
	return PageState("url=" + url)
}
