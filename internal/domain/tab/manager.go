package tab

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/framenav/internal/domain/navigation"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/config"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/framenav/internal/shared/id"
)

// Manager orchestrates tab lifecycle
type Manager struct {
	mu   sync.RWMutex
	tabs map[id.TabID]*Tab // Protected by mu

	cfg      config.NavigationConfig
	renderer Renderer
	hub      *Hub
	ids      navigation.IDSource
	log      *zap.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
}

// NewManager creates a new tab manager. Entry IDs are shared by every tab
// so that entries copied between tabs never collide.
func NewManager(cfg config.NavigationConfig, renderer Renderer, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		tabs:     make(map[id.TabID]*Tab),
		cfg:      cfg,
		renderer: renderer,
		hub:      NewHub(cfg.EventBuffer, log),
		ids:      &navigation.SequenceIDs{},
		log:      log,
	}
}

// WithMetrics adds metrics tracking to the manager
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// WithTracer records a span per navigation
func (m *Manager) WithTracer(tracer *tracing.Tracer) *Manager {
	m.tracer = tracer
	return m
}

// Hub returns the event fan-out shared by every tab
func (m *Manager) Hub() *Hub {
	return m.hub
}

// Create starts a new empty tab
func (m *Manager) Create() (*Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.MaxTabs > 0 && len(m.tabs) >= m.cfg.MaxTabs {
		return nil, fmt.Errorf("%w: %d", ErrTooManyTabs, m.cfg.MaxTabs)
	}

	opts := Options{
		MaxEntryCount:             m.cfg.MaxEntryCount,
		SubframeHistoryNavigation: m.cfg.SubframeHistoryNavigation,
		SubframeEntryTracking:     m.cfg.SubframeEntryTracking,
		QueueSize:                 m.cfg.EventBuffer,
		Renderer:                  m.renderer,
		Logger:                    m.log,
		Tracer:                    m.tracer,
		IDs:                       m.ids,
		Publish:                   m.hub.Publish,
	}
	if m.metrics != nil {
		opts.Metrics = m.metrics.Navigation()
	}

	t := New(opts)
	m.tabs[t.ID()] = t

	if m.metrics != nil {
		m.metrics.IncTabsTotal()
		m.metrics.SetTabsActive(len(m.tabs))
	}
	m.log.Info("tab created", zap.String("tab_id", t.ID().String()))
	return t, nil
}

// Open creates a tab and starts loading url in it
func (m *Manager) Open(ctx context.Context, url string) (*Tab, error) {
	t, err := m.Create()
	if err != nil {
		return nil, err
	}
	if url == "" {
		return t, nil
	}
	if _, err := t.Navigate(ctx, url); err != nil {
		m.Close(t.ID())
		return nil, fmt.Errorf("open %s: %w", url, err)
	}
	return t, nil
}

// Get retrieves a tab by ID
func (m *Manager) Get(tabID id.TabID) (*Tab, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tabs[tabID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", tabID, ErrTabNotFound)
	}
	return t, nil
}

// List returns a summary of every tab, oldest first
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Info, 0, len(m.tabs))
	for _, t := range m.tabs {
		out = append(out, t.Info())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Close stops a tab and forgets it
func (m *Manager) Close(tabID id.TabID) error {
	m.mu.Lock()
	t, ok := m.tabs[tabID]
	if ok {
		delete(m.tabs, tabID)
	}
	count := len(m.tabs)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", tabID, ErrTabNotFound)
	}
	t.Close()

	if m.metrics != nil {
		m.metrics.SetTabsActive(count)
	}
	m.log.Info("tab closed", zap.String("tab_id", tabID.String()))
	return nil
}

// CloseAll stops every tab
func (m *Manager) CloseAll() {
	m.mu.Lock()
	tabs := m.tabs
	m.tabs = make(map[id.TabID]*Tab)
	m.mu.Unlock()

	for _, t := range tabs {
		t.Close()
	}
	if m.metrics != nil {
		m.metrics.SetTabsActive(0)
	}
}

// Count returns the number of open tabs
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tabs)
}

// Subscribe streams events of one tab, or of every tab when tabID is empty
func (m *Manager) Subscribe(tabID id.TabID) (<-chan Event, func()) {
	return m.hub.Subscribe(tabID)
}
