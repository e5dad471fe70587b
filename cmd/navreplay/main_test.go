package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pages = map[string]string{
	"/":      `<title>Home</title><iframe name="side" src="/side"></iframe>`,
	"/side":  `<title>Side</title>`,
	"/next":  `<title>Next</title>`,
	"/other": `<title>Other</title>`,
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

const replay = `
name: basic
base: %s
steps:
  - op: load
    url: /
    expect: {title: Home, entries: 1, frames: 2}
  - op: load
    url: /next
  - op: back
    expect: {index: 0, frames: 2}
  - op: forward
    expect: {index: 1, title: Next}
  - op: push
    url: /next/deeper
    expect: {entries: 3}
  - op: replace
    url: /next/replaced
    expect: {entries: 3}
  - op: fragment
    name: top
    expect: {entries: 4}
  - op: go
    n: -3
    expect: {index: 0}
  - op: navigate
    frame: side
    url: /other
    expect: {entries: 4, index: 0}
  - op: iframe
    name: extra
    url: /side
    expect: {frames: 3}
  - op: remove
    frame: extra
    expect: {frames: 2}
  - op: reload
`

func TestRunScript(t *testing.T) {
	site := newSite(t)
	path := writeScript(t, strings.Replace(replay, "%s", site.URL, 1))

	out, err := execute(t, "run", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "# basic")
	assert.Contains(t, out, "* 0 "+site.URL+"/")
	assert.Contains(t, out, "frame side "+site.URL+"/other")
}

func TestRunFailsOnExpectation(t *testing.T) {
	site := newSite(t)
	path := writeScript(t, `
base: `+site.URL+`
steps:
  - op: load
    url: /
  - op: expect
    expect: {title: Elsewhere}
`)

	out, err := execute(t, "run", "-q", path)
	require.Error(t, err, out)
	assert.Contains(t, err.Error(), "step 2 (expect)")
	assert.Contains(t, err.Error(), `want "Elsewhere"`)
}

func TestCheck(t *testing.T) {
	good := writeScript(t, "steps:\n  - op: load\n    url: https://example.com/\n")
	out, err := execute(t, "check", good)
	require.NoError(t, err)
	assert.Contains(t, out, "1 steps")

	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"no steps", "name: empty\n", "no steps"},
		{"unknown op", "steps:\n  - op: teleport\n", "unknown op"},
		{"load without url", "steps:\n  - op: load\n", "needs a url"},
		{"unknown field", "steps:\n  - op: back\n    speed: 2\n", "speed"},
		{"relative base", "base: /here\nsteps:\n  - op: back\n", "absolute"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "check", writeScript(t, tt.script))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "navreplay "+version+"\n", out)
}
