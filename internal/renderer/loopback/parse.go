package loopback

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/GriffinCanCode/framenav/internal/domain/navigation"
)

// frameRef is an <iframe> found in a document
type frameRef struct {
	Name string
	URL  string
}

// parsedDocument is what the loopback renderer needs from HTML
type parsedDocument struct {
	Title  string
	Frames []frameRef
}

// parseHTML extracts the title and child frames of d, resolving iframe
// sources against the document's base URL
func parseHTML(d *Document) (parsedDocument, error) {
	var out parsedDocument
	if !d.IsHTML() || len(d.Body) == 0 {
		return out, nil
	}

	doc, err := goquery.NewDocumentFromReader(bodyReader(d))
	if err != nil {
		return out, fmt.Errorf("failed to parse HTML: %w", err)
	}

	out.Title = strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")

	base, _ := url.Parse(d.URL)
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok && base != nil {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	doc.Find("iframe").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		src, _ := s.Attr("src")
		out.Frames = append(out.Frames, frameRef{
			Name: strings.TrimSpace(name),
			URL:  resolve(base, src),
		})
	})
	return out, nil
}

// resolve turns src into an absolute URL; empty or unresolvable sources
// load about:blank
func resolve(base *url.URL, src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return navigation.AboutBlankURL
	}
	ref, err := url.Parse(src)
	if err != nil {
		return navigation.AboutBlankURL
	}
	if base == nil || ref.IsAbs() {
		return ref.String()
	}
	// Opaque bases such as data: cannot resolve relative references.
	if base.Opaque != "" {
		return navigation.AboutBlankURL
	}
	return base.ResolveReference(ref).String()
}

// resolveAgainst is resolve for a base given as a string
func resolveAgainst(base, src string) string {
	u, err := url.Parse(base)
	if err != nil || base == "" {
		u = nil
	}
	return resolve(u, src)
}
