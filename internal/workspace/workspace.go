// Package workspace keeps one developer registry and one browse state per
// authenticated session.
package workspace

import (
	"context"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"devconnect/internal/developer/models"
	"devconnect/internal/developer/registry"
	"devconnect/internal/developer/view"
	id "devconnect/pkg/domain"
)

const (
	DefaultTTL             = 24 * time.Hour
	DefaultCleanupInterval = 10 * time.Minute
)

// Workspace is a session's private directory. Operations on it are
// serialized through Do.
type Workspace struct {
	mu     sync.Mutex
	reg    *registry.Registry
	browse *view.State
}

// Do runs fn while holding the workspace lock.
func (w *Workspace) Do(fn func(reg *registry.Registry, browse *view.State) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fn(w.reg, w.browse)
}

// IDGeneratorFactory builds the id generator for a new workspace.
type IDGeneratorFactory func() registry.IDGenerator

// Manager creates workspaces on first use and expires idle ones.
type Manager struct {
	cache    *gocache.Cache
	ttl      time.Duration
	pageSize int
	newIDs   IDGeneratorFactory
	seed     func() []models.Developer
	logger   *slog.Logger
}

type Option func(*Manager)

// WithTTL sets how long an untouched workspace survives.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithPageSize(n int) Option {
	return func(m *Manager) {
		m.pageSize = n
	}
}

func WithIDGenerator(f IDGeneratorFactory) Option {
	return func(m *Manager) {
		if f != nil {
			m.newIDs = f
		}
	}
}

// WithSeed replaces the records new workspaces start with.
func WithSeed(seed func() []models.Developer) Option {
	return func(m *Manager) {
		if seed != nil {
			m.seed = seed
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		ttl:      DefaultTTL,
		pageSize: view.DefaultPageSize,
		newIDs:   func() registry.IDGenerator { return registry.UUIDGenerator{} },
		seed:     registry.SeedDevelopers,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cache = gocache.New(m.ttl, DefaultCleanupInterval)
	m.cache.OnEvicted(func(key string, _ any) {
		m.logger.Debug("workspace evicted", "session_id", key)
	})
	return m
}

// Get returns the session's workspace, creating and seeding it on first use.
// Each call extends the workspace's lifetime by the manager TTL.
func (m *Manager) Get(ctx context.Context, sessionID id.SessionID) (*Workspace, error) {
	key := sessionID.String()
	if ws, ok := m.lookup(key); ok {
		m.cache.Set(key, ws, gocache.DefaultExpiration)
		return ws, nil
	}

	reg, err := registry.NewSeeded(m.newIDs(), m.seed())
	if err != nil {
		return nil, err
	}
	fresh := &Workspace{reg: reg, browse: view.NewState(m.pageSize)}

	// Add fails when another request created the workspace first.
	if err := m.cache.Add(key, fresh, gocache.DefaultExpiration); err != nil {
		if ws, ok := m.lookup(key); ok {
			return ws, nil
		}
		m.cache.Set(key, fresh, gocache.DefaultExpiration)
	}
	m.logger.DebugContext(ctx, "workspace created", "session_id", key, "records", reg.Len())
	return fresh, nil
}

// Drop discards the session's workspace. Unknown sessions are ignored.
func (m *Manager) Drop(ctx context.Context, sessionID id.SessionID) {
	key := sessionID.String()
	if _, ok := m.cache.Get(key); !ok {
		return
	}
	m.cache.Delete(key)
	m.logger.DebugContext(ctx, "workspace dropped", "session_id", key)
}

// Len reports the number of live workspaces.
func (m *Manager) Len() int {
	return m.cache.ItemCount()
}

func (m *Manager) lookup(key string) (*Workspace, bool) {
	v, ok := m.cache.Get(key)
	if !ok {
		return nil, false
	}
	ws, ok := v.(*Workspace)
	return ws, ok
}
