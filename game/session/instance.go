package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lolney/codesiege/game/catalog"
	"github.com/lolney/codesiege/game/controller"
	"github.com/lolney/codesiege/game/engine"
	"github.com/lolney/codesiege/store"
	"github.com/lolney/codesiege/transport/socket"
)

var (
	// ErrGameFull is returned when a new player tries to join an
	// instance with no free seat.
	ErrGameFull = errors.New("game is full")

	// ErrGameStopped is returned when connecting to a stopped instance.
	ErrGameStopped = errors.New("game is stopped")
)

// Mode selects an instance's player capacity.
type Mode string

const (
	ModeVersus   Mode = "vs"
	ModePractice Mode = "practice"
)

// MaxPlayers returns the seat count for the mode.
func (m Mode) MaxPlayers() int {
	if m == ModePractice {
		return 1
	}
	return 2
}

// Instance is one running game: an engine, a controller and the seat
// table of every player who has ever joined. Seats survive disconnects
// so a returning player lands back where they were.
type Instance struct {
	ID   string
	Mode Mode

	engine     *engine.Engine
	controller *controller.Controller
	catalog    *catalog.Config
	store      store.Store
	manager    *Manager
	log        zerolog.Logger

	mu      sync.Mutex
	seats   map[string]int // player id -> seat, kept across disconnects
	stopped bool
}

func newInstance(id string, mode Mode, cat *catalog.Config, st store.Store, m *Manager, log zerolog.Logger) *Instance {
	eng := engine.New()
	return &Instance{
		ID:         id,
		Mode:       mode,
		engine:     eng,
		controller: controller.New(log, eng, cat, st),
		catalog:    cat,
		store:      st,
		manager:    m,
		log:        log,
		seats:      make(map[string]int),
	}
}

// Controller exposes the instance's event controller.
func (inst *Instance) Controller() *controller.Controller {
	return inst.controller
}

// Engine exposes the instance's simulation.
func (inst *Instance) Engine() *engine.Engine {
	return inst.engine
}

// Connect admits a player's socket: returning players get their old
// seat back with their ledger and HP intact, new players take the
// lowest free seat and are seeded from the catalog.
func (inst *Instance) Connect(ctx context.Context, sock *socket.Socket) (int, error) {
	playerID := sock.UserID()

	inst.mu.Lock()
	if inst.stopped {
		inst.mu.Unlock()
		return 0, ErrGameStopped
	}
	seat, returning := inst.seats[playerID]
	if !returning {
		seat = inst.freeSeat()
		if seat == 0 {
			inst.mu.Unlock()
			return 0, ErrGameFull
		}
		inst.seats[playerID] = seat
	}
	inst.mu.Unlock()

	// Only first-time players are seeded; a returning player keeps the
	// balances and HP they left with.
	if !returning {
		if err := inst.store.CreatePlayer(ctx, playerID, inst.catalog.InitialResources, inst.catalog.InitialHP); err != nil {
			return 0, fmt.Errorf("seed player %s: %w", playerID, err)
		}
		inst.engine.SetBaseHP(playerID, inst.catalog.InitialHP)
	}

	sock.SetSeat(seat)
	inst.controller.AddPlayer(playerID, sock)
	inst.log.Info().Str("game", inst.ID).Str("player", playerID).Int("seat", seat).Msg("player connected")
	return seat, nil
}

// Disconnect removes a player's live socket. The seat stays reserved
// for a reconnect; when the last player leaves, the instance stops.
func (inst *Instance) Disconnect(ctx context.Context, playerID string) {
	inst.controller.RemovePlayer(playerID)
	inst.log.Info().Str("game", inst.ID).Str("player", playerID).Msg("player disconnected")

	if inst.controller.Players().Len() == 0 {
		inst.Stop()
	}
}

// ConnectedPlayers returns the number of players with a live socket.
func (inst *Instance) ConnectedPlayers() int {
	return inst.controller.Players().Len()
}

// Full reports whether every seat is held by a connected player.
func (inst *Instance) Full() bool {
	return inst.controller.Players().Len() >= inst.Mode.MaxPlayers()
}

// Stop ends the instance: the simulation finishes, remaining sockets
// are suspended, every seated player's store record is cleared, and
// the instance is dropped from its manager.
func (inst *Instance) Stop() {
	inst.mu.Lock()
	if inst.stopped {
		inst.mu.Unlock()
		return
	}
	inst.stopped = true
	seated := make([]string, 0, len(inst.seats))
	for playerID := range inst.seats {
		seated = append(seated, playerID)
	}
	inst.mu.Unlock()

	inst.engine.Finish()
	inst.controller.Players().Each(func(playerID string, sock *socket.Socket) {
		sock.Suspend()
	})
	for _, playerID := range seated {
		if err := inst.store.DeletePlayer(context.Background(), playerID); err != nil {
			inst.log.Warn().Err(err).Str("player", playerID).Msg("delete player failed")
		}
	}
	if inst.manager != nil {
		inst.manager.remove(inst.ID)
	}
	inst.log.Info().Str("game", inst.ID).Msg("instance stopped")
}

// Stopped reports whether the instance has been torn down.
func (inst *Instance) Stopped() bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.stopped
}

// freeSeat returns the lowest unassigned seat, or 0 when none is left.
// Callers hold inst.mu.
func (inst *Instance) freeSeat() int {
	for seat := 1; seat <= inst.Mode.MaxPlayers(); seat++ {
		taken := false
		for _, s := range inst.seats {
			if s == seat {
				taken = true
				break
			}
		}
		if !taken {
			return seat
		}
	}
	return 0
}
