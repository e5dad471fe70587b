package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestNewBuildsLogger(t *testing.T) {
	for _, cfg := range []Config{DefaultConfig(), DevelopmentConfig(), {Level: "warn"}} {
		l, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, l.Logger)
	}
}

func TestComponentAndTabFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := Wrap(zap.New(core))

	l.Component("tab").ForTab("tab_01").Info("navigated", zap.String("url", "https://example.test/"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "tab", entry.LoggerName)
	assert.Equal(t, "tab_01", entry.ContextMap()["tab_id"])
	assert.Equal(t, "https://example.test/", entry.ContextMap()["url"])
}

func TestWrapNil(t *testing.T) {
	assert.NotPanics(t, func() { Wrap(nil).Info("dropped") })
}
