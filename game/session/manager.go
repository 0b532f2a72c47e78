package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lolney/codesiege/game/catalog"
	"github.com/lolney/codesiege/metrics"
	"github.com/lolney/codesiege/store"
	"github.com/lolney/codesiege/transport/socket"
)

var ErrSessionNotFound = errors.New("session not found")

// Manager owns every running instance, keyed by game id.
type Manager struct {
	mu        sync.RWMutex
	instances map[string]*Instance
	store     store.Store
	catalog   *catalog.Config
	log       zerolog.Logger
}

// NewManager creates an empty instance manager.
func NewManager(st store.Store, cat *catalog.Config, log zerolog.Logger) *Manager {
	return &Manager{
		instances: make(map[string]*Instance),
		store:     st,
		catalog:   cat,
		log:       log,
	}
}

// CreateInstance starts a new instance of the given mode and returns
// its id.
func (m *Manager) CreateInstance(mode Mode) *Instance {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	for {
		if _, exists := m.instances[id]; !exists {
			break
		}
		id = uuid.NewString()
	}

	inst := newInstance(id, mode, m.catalog, m.store, m, m.log)
	m.instances[id] = inst
	metrics.ActiveSessions.Inc()
	metrics.MatchesTotal.WithLabelValues(string(mode)).Inc()
	m.log.Info().Str("game", id).Str("mode", string(mode)).Msg("instance created")
	return inst
}

// Instance returns a running instance by id.
func (m *Manager) Instance(id string) (*Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[id]
	return inst, ok
}

// GameExists reports whether a game id refers to a running instance.
func (m *Manager) GameExists(id string) bool {
	_, ok := m.Instance(id)
	return ok
}

// GameIsFull reports whether the instance has no room for a new
// connection. An unknown id counts as full.
func (m *Manager) GameIsFull(id string) bool {
	inst, ok := m.Instance(id)
	if !ok {
		return true
	}
	return inst.Full()
}

// OnPlayerConnected routes a freshly upgraded socket into the instance
// named by its handshake.
func (m *Manager) OnPlayerConnected(ctx context.Context, sock *socket.Socket) (*Instance, int, error) {
	inst, ok := m.Instance(sock.GameID())
	if !ok {
		return nil, 0, ErrSessionNotFound
	}
	seat, err := inst.Connect(ctx, sock)
	if err != nil {
		return nil, 0, err
	}
	return inst, seat, nil
}

// Count returns the number of running instances.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.instances)
}

// remove drops a stopped instance from the table.
func (m *Manager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instances[id]; !ok {
		return
	}
	delete(m.instances, id)
	metrics.ActiveSessions.Dec()
}
