package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/framenav/internal/domain/navigation"
	"github.com/GriffinCanCode/framenav/internal/domain/tab"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/framenav/internal/shared/id"
)

// Tabs is the slice of the tab manager sessions need
type Tabs interface {
	List() []tab.Info
	Get(tabID id.TabID) (*tab.Tab, error)
	Create() (*tab.Tab, error)
	Close(tabID id.TabID) error
}

// Manager handles session persistence
type Manager struct {
	sessions sync.Map // id.SessionID -> *Session
	tabs     Tabs
	store    Store
	codec    *Codec
	log      *zap.Logger
	metrics  *monitoring.Metrics

	mu           sync.RWMutex
	lastSaved    *time.Time
	lastRestored *time.Time
}

// NewManager creates a new session manager
func NewManager(tabs Tabs, store Store, codec *Codec, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		tabs:  tabs,
		store: store,
		codec: codec,
		log:   log,
	}
}

// WithMetrics counts saves and restores
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Capture snapshots every tab that has committed something
func (m *Manager) Capture(ctx context.Context, name string) (*Session, error) {
	s := &Session{
		ID:        id.NewSessionID(),
		Name:      name,
		CreatedAt: time.Now(),
	}
	for _, info := range m.tabs.List() {
		t, err := m.tabs.Get(info.ID)
		if err != nil {
			// Closed since List.
			continue
		}
		h, err := t.ExportHistory(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to export tab %s: %w", info.ID, err)
		}
		if len(h.Entries) == 0 {
			continue
		}
		s.Tabs = append(s.Tabs, TabSnapshot{
			ID:      info.ID,
			URL:     info.URL,
			Title:   info.Title,
			History: h,
		})
	}
	return s, nil
}

// Save captures the open tabs and stores them
func (m *Manager) Save(ctx context.Context, name string) (*Session, error) {
	s, err := m.Capture(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := m.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Put stores a session as given
func (m *Manager) Put(ctx context.Context, s *Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := m.codec.Encode(s)
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, s.ID, data); err != nil {
		return fmt.Errorf("failed to save session %s: %w", s.ID, err)
	}
	m.sessions.Store(s.ID, s)

	now := time.Now()
	m.mu.Lock()
	m.lastSaved = &now
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.IncSessionsSaved()
	}
	m.log.Info("session saved",
		zap.String("session_id", s.ID.String()),
		zap.Int("tabs", len(s.Tabs)),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Load returns a stored session
func (m *Manager) Load(ctx context.Context, sessionID id.SessionID) (*Session, error) {
	if cached, ok := m.sessions.Load(sessionID); ok {
		return cached.(*Session), nil
	}
	data, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s, err := m.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if s.ID != sessionID {
		return nil, errorf("file %s holds session %s", sessionID, s.ID)
	}
	m.sessions.Store(sessionID, s)
	return s, nil
}

// Restore opens one tab per saved tab. With replace set, open tabs are
// closed first. Restored tabs load their selected entry immediately.
func (m *Manager) Restore(ctx context.Context, sessionID id.SessionID, replace bool) ([]id.TabID, error) {
	s, err := m.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if replace {
		for _, info := range m.tabs.List() {
			_ = m.tabs.Close(info.ID)
		}
	}

	restored := make([]id.TabID, 0, len(s.Tabs))
	for _, snap := range s.Tabs {
		t, err := m.tabs.Create()
		if err != nil {
			return restored, fmt.Errorf("failed to restore tab %s: %w", snap.ID, err)
		}
		if err := t.RestoreHistory(ctx, snap.History, navigation.RestoreLastSession); err != nil {
			_ = m.tabs.Close(t.ID())
			return restored, fmt.Errorf("failed to restore tab %s: %w", snap.ID, err)
		}
		restored = append(restored, t.ID())
	}

	now := time.Now()
	m.mu.Lock()
	m.lastRestored = &now
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.IncSessionsRestored()
	}
	m.log.Info("session restored",
		zap.String("session_id", sessionID.String()),
		zap.Int("tabs", len(restored)),
	)
	return restored, nil
}

// List returns stored sessions matching a glob on their ID, newest first
func (m *Manager) List(ctx context.Context, pattern string) ([]Metadata, error) {
	stored, err := m.store.List(ctx, pattern)
	if err != nil {
		return nil, err
	}
	out := make([]Metadata, 0, len(stored))
	for _, st := range stored {
		s, err := m.Load(ctx, st.ID)
		if err != nil {
			m.log.Warn("skipping unreadable session", zap.String("session_id", st.ID.String()), zap.Error(err))
			continue
		}
		out = append(out, s.ToMetadata(st.Size))
	}
	return out, nil
}

// Delete removes a stored session
func (m *Manager) Delete(ctx context.Context, sessionID id.SessionID) error {
	m.sessions.Delete(sessionID)
	return m.store.Delete(ctx, sessionID)
}

// Export renders a stored session as YAML
func (m *Manager) Export(ctx context.Context, sessionID id.SessionID) ([]byte, error) {
	s, err := m.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return ExportYAML(s)
}

// Import stores a YAML session under a new ID
func (m *Manager) Import(ctx context.Context, data []byte) (*Session, error) {
	s, err := ImportYAML(data)
	if err != nil {
		return nil, err
	}
	s.ID = id.NewSessionID()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if err := m.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Stats reports when sessions were last saved and restored
func (m *Manager) Stats() (lastSaved, lastRestored *time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSaved, m.lastRestored
}
