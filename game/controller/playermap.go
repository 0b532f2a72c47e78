package controller

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lolney/codesiege/transport/socket"
)

var (
	// ErrPlayerNotFound is returned when publishing to a player that is
	// not in the map.
	ErrPlayerNotFound = errors.New("player not found")

	// ErrNoOpponent is returned by OtherPlayerID when the player is
	// alone in the session.
	ErrNoOpponent = errors.New("no opponent in session")

	// ErrTooManyPlayers is returned by OtherPlayerID when more than one
	// other player is present, which indicates a seating bug.
	ErrTooManyPlayers = errors.New("more than one other player in session")
)

// PlayerMap tracks the connected players of one instance and routes
// published events to their sockets.
type PlayerMap struct {
	mu      sync.RWMutex
	sockets map[string]*socket.Socket
	log     zerolog.Logger
}

// NewPlayerMap creates an empty player map.
func NewPlayerMap(log zerolog.Logger) *PlayerMap {
	return &PlayerMap{
		sockets: make(map[string]*socket.Socket),
		log:     log,
	}
}

// AddPlayer registers a player's socket, replacing any previous one.
func (p *PlayerMap) AddPlayer(playerID string, sock *socket.Socket) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sockets[playerID] = sock
}

// RemovePlayer drops a player's live socket. The player's store record
// stays untouched so a reconnect resumes the same ledger.
func (p *PlayerMap) RemovePlayer(playerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sockets, playerID)
}

// Has reports whether a player is connected.
func (p *PlayerMap) Has(playerID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.sockets[playerID]
	return ok
}

// Len returns the number of connected players.
func (p *PlayerMap) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sockets)
}

// Socket returns a player's socket.
func (p *PlayerMap) Socket(playerID string) (*socket.Socket, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sock, ok := p.sockets[playerID]
	return sock, ok
}

// Each calls fn for every connected player.
func (p *PlayerMap) Each(fn func(playerID string, sock *socket.Socket)) {
	p.mu.RLock()
	snapshot := make(map[string]*socket.Socket, len(p.sockets))
	for id, sock := range p.sockets {
		snapshot[id] = sock
	}
	p.mu.RUnlock()

	for id, sock := range snapshot {
		fn(id, sock)
	}
}

// Publish emits an event to one player. The target socket must carry an
// authenticated identity.
func (p *PlayerMap) Publish(playerID, event string, data any) error {
	sock, ok := p.Socket(playerID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	if !sock.Authenticated() {
		return socket.ErrNotAuthenticated
	}
	if _, err := sock.Emit(event, data); err != nil {
		return err
	}
	return nil
}

// PublishAll emits the same event to every connected player.
func (p *PlayerMap) PublishAll(event string, data any) {
	p.Each(func(playerID string, sock *socket.Socket) {
		if err := p.Publish(playerID, event, data); err != nil {
			p.log.Warn().Err(err).Str("player", playerID).Str("event", event).Msg("publish failed")
		}
	})
}

// PublishAllFunc emits an event to every connected player with a
// per-player payload produced by fn.
func (p *PlayerMap) PublishAllFunc(event string, fn func(playerID string) any) {
	p.Each(func(playerID string, sock *socket.Socket) {
		if err := p.Publish(playerID, event, fn(playerID)); err != nil {
			p.log.Warn().Err(err).Str("player", playerID).Str("event", event).Msg("publish failed")
		}
	})
}

// OtherPlayerID returns the id of the single other player in the map.
// It fails when the player is alone or when seating is inconsistent.
func (p *PlayerMap) OtherPlayerID(playerID string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var others []string
	for id := range p.sockets {
		if id != playerID {
			others = append(others, id)
		}
	}
	switch len(others) {
	case 0:
		return "", ErrNoOpponent
	case 1:
		return others[0], nil
	default:
		return "", ErrTooManyPlayers
	}
}
