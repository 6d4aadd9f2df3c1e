package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/basekick-labs/linkview/internal/dataset"
	"github.com/basekick-labs/linkview/internal/metrics"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// Manager owns the live workspaces. Idle workspaces expire after the
// configured TTL; every access extends it.
type Manager struct {
	cfg    Config
	cache  *cache.Cache
	store  atomic.Pointer[dataset.Store]
	hub    *Hub
	logger zerolog.Logger

	// createMu makes the MaxSessions check and the insert one step
	createMu sync.Mutex
}

// NewManager creates a manager. hub may be nil when streaming is not used.
func NewManager(cfg Config, hub *Hub, logger zerolog.Logger) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if len(cfg.SummaryColumns) == 0 {
		cfg.SummaryColumns = []string{"price", "area"}
	}

	m := &Manager{
		cfg:    cfg,
		cache:  cache.New(cfg.TTL, cfg.CleanupInterval),
		hub:    hub,
		logger: logger.With().Str("component", "session-manager").Logger(),
	}
	m.cache.OnEvicted(m.evicted)
	return m
}

// evicted runs for expired and deleted entries alike; closed tells them apart.
func (m *Manager) evicted(id string, v interface{}) {
	w, ok := v.(*Workspace)
	if !ok {
		return
	}
	if m.hub != nil {
		m.hub.Drop(id)
	}
	if !w.closed.Swap(true) {
		metrics.Get().IncSessionsExpired()
		m.logger.Info().Str("session", id).Msg("Session expired")
	}
	metrics.Get().SetSessionsActive(int64(m.cache.ItemCount()))
}

// SetStore makes store the dataset of every existing and future workspace.
func (m *Manager) SetStore(store *dataset.Store) {
	m.store.Store(store)
	for _, item := range m.cache.Items() {
		if w, ok := item.Object.(*Workspace); ok {
			w.Rebind(store)
		}
	}
	m.logger.Info().Int("records", store.Len()).Int("sessions", m.cache.ItemCount()).Msg("Dataset bound to sessions")
}

// Store returns the current dataset, nil until one has been loaded.
func (m *Manager) Store() *dataset.Store { return m.store.Load() }

// Ready reports whether a dataset has been loaded.
func (m *Manager) Ready() bool { return m.store.Load() != nil }

// Create starts a new workspace bound to the current dataset.
func (m *Manager) Create() (*Workspace, error) {
	m.createMu.Lock()
	defer m.createMu.Unlock()

	if m.cfg.MaxSessions > 0 && m.cache.ItemCount() >= m.cfg.MaxSessions {
		return nil, ErrTooManySessions
	}

	id := uuid.NewString()
	var pub Publisher
	if m.hub != nil {
		pub = m.hub
	}
	w := NewWorkspace(id, m.cfg, m.store.Load(), pub, m.logger)
	m.cache.SetDefault(id, w)

	met := metrics.Get()
	met.IncSessionsCreated()
	met.SetSessionsActive(int64(m.cache.ItemCount()))
	m.logger.Debug().Str("session", id).Msg("Session created")
	return w, nil
}

// Get returns a live workspace and extends its lifetime.
func (m *Manager) Get(id string) (*Workspace, error) {
	v, ok := m.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	w := v.(*Workspace)
	if w.closed.Load() {
		return nil, ErrNotFound
	}
	// Replace fails when the entry expired or was deleted in the meantime.
	_ = m.cache.Replace(id, w, cache.DefaultExpiration)
	return w, nil
}

// Delete ends a workspace.
func (m *Manager) Delete(id string) error {
	v, ok := m.cache.Get(id)
	if !ok {
		return ErrNotFound
	}
	v.(*Workspace).closed.Store(true)
	m.cache.Delete(id)
	m.logger.Debug().Str("session", id).Msg("Session deleted")
	return nil
}

// Count returns the number of live workspaces.
func (m *Manager) Count() int { return m.cache.ItemCount() }

// Close ends every workspace.
func (m *Manager) Close() error {
	for id, item := range m.cache.Items() {
		if w, ok := item.Object.(*Workspace); ok {
			w.closed.Store(true)
		}
		m.cache.Delete(id)
	}
	metrics.Get().SetSessionsActive(0)
	m.logger.Info().Msg("Session manager closed")
	return nil
}
