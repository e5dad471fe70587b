package navigation

import (
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

const (
	schemeHTTP       = "http"
	schemeHTTPS      = "https"
	schemeData       = "data"
	schemeAbout      = "about"
	schemeJavaScript = "javascript"
	schemeViewSource = "view-source"

	// AboutBlankURL is the document every new frame starts with
	AboutBlankURL = "about:blank"
)

var hostProfile = idna.New(
	idna.MapForLookup(),
	idna.Transitional(false),
	idna.BidiRule(),
)

// FixupURL canonicalizes a user or renderer supplied URL. The second result
// is false for anything that cannot be navigated to.
func FixupURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "", false
	}
	u.Scheme = strings.ToLower(u.Scheme)

	switch u.Scheme {
	case schemeHTTP, schemeHTTPS:
		if u.Host == "" {
			return "", false
		}
		host, err := hostProfile.ToASCII(u.Hostname())
		if err != nil || host == "" {
			return "", false
		}
		if port := u.Port(); port != "" {
			host = host + ":" + port
		}
		u.Host = host
		if u.Path == "" {
			u.Path = "/"
		}
		return u.String(), true
	case schemeViewSource:
		inner, ok := FixupURL(u.Opaque)
		if !ok || strings.HasPrefix(inner, schemeViewSource+":") {
			return "", false
		}
		return schemeViewSource + ":" + inner, true
	default:
		return u.String(), true
	}
}

func schemeOf(raw string) string {
	i := strings.IndexByte(raw, ':')
	if i <= 0 {
		return ""
	}
	return strings.ToLower(raw[:i])
}

// HasScheme reports whether raw uses scheme
func HasScheme(raw, scheme string) bool {
	return schemeOf(raw) == scheme
}

// IsJavaScriptURL reports whether raw is a javascript: URL
func IsJavaScriptURL(raw string) bool {
	return HasScheme(raw, schemeJavaScript)
}

func isHTTPLike(raw string) bool {
	s := schemeOf(raw)
	return s == schemeHTTP || s == schemeHTTPS
}

func isAboutBlank(raw string) bool {
	return raw == "" || raw == AboutBlankURL
}

// unwrapViewSource splits a view-source URL into its inner URL
func unwrapViewSource(raw string) (string, bool) {
	inner, ok := strings.CutPrefix(raw, schemeViewSource+":")
	return inner, ok
}

// OriginOf returns scheme://host[:port] for network URLs and "null" for
// opaque origins such as data: and about:blank
func OriginOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "null"
	}
	switch strings.ToLower(u.Scheme) {
	case schemeHTTP, schemeHTTPS:
		return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
	default:
		return "null"
	}
}

// SameOrigin reports whether two URLs share a non-opaque origin
func SameOrigin(a, b string) bool {
	oa := OriginOf(a)
	return oa != "null" && oa == OriginOf(b)
}

// StripFragment removes a trailing #fragment
func StripFragment(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		return raw[:i]
	}
	return raw
}

// urlsInPage decides whether a renderer's same-document claim for next is
// acceptable given the existing document URL. Same-document navigations can
// never cross origins; a blank initial document may become anything.
func urlsInPage(existing, next string, rendererSaysInPage bool) bool {
	if !rendererSaysInPage {
		return false
	}
	if isAboutBlank(existing) {
		return true
	}
	if OriginOf(existing) == "null" {
		return StripFragment(existing) == StripFragment(next)
	}
	return SameOrigin(existing, next)
}
