package loopback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func htmlDoc(url, body string) *Document {
	return &Document{URL: url, ContentType: "text/html", Body: []byte(body)}
}

func TestParseHTML(t *testing.T) {
	doc := htmlDoc("https://example.com/dir/page.html", `<html><head>
		<title>
			Hello
			World
		</title></head>
		<body>
			<iframe name=" side " src="a.html"></iframe>
			<iframe src="/b"></iframe>
			<iframe></iframe>
			<iframe src="https://other.example/x"></iframe>
		</body></html>`)

	parsed, err := parseHTML(doc)
	require.NoError(t, err)

	assert.Equal(t, "Hello World", parsed.Title)
	assert.Equal(t, []frameRef{
		{Name: "side", URL: "https://example.com/dir/a.html"},
		{URL: "https://example.com/b"},
		{URL: "about:blank"},
		{URL: "https://other.example/x"},
	}, parsed.Frames)
}

func TestParseHTMLBaseHref(t *testing.T) {
	doc := htmlDoc("https://example.com/page", `<head><base href="/assets/"></head><iframe src="f.html"></iframe>`)

	parsed, err := parseHTML(doc)
	require.NoError(t, err)
	require.Len(t, parsed.Frames, 1)
	assert.Equal(t, "https://example.com/assets/f.html", parsed.Frames[0].URL)
}

func TestParseNonHTML(t *testing.T) {
	parsed, err := parseHTML(&Document{URL: "https://example.com/a.txt", ContentType: "text/plain", Body: []byte("<title>no</title>")})
	require.NoError(t, err)
	assert.Empty(t, parsed.Title)
	assert.Empty(t, parsed.Frames)
}

func TestResolveAgainst(t *testing.T) {
	tests := []struct {
		base, src, want string
	}{
		{"https://example.com/a/b", "c", "https://example.com/a/c"},
		{"https://example.com/a/b", "#top", "https://example.com/a/b#top"},
		{"https://example.com/a/b", "?q=1", "https://example.com/a/b?q=1"},
		{"https://example.com/a/b", "", "about:blank"},
		{"data:text/html,x", "relative", "about:blank"},
		{"data:text/html,x", "https://example.com/", "https://example.com/"},
		{"", "https://example.com/", "https://example.com/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveAgainst(tt.base, tt.src), "%s + %s", tt.base, tt.src)
	}
}
