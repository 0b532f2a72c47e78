package engine

import (
	"errors"
	"fmt"
	"sync"
)

var ErrObjectNotFound = errors.New("game object not found")

// World dimensions, matching the client playfield.
const (
	worldWidth  = 2000.0
	worldHeight = 1200.0
)

// Engine is the simulation state of one instance. All methods are safe
// for concurrent use.
type Engine struct {
	mu      sync.Mutex
	status  Status
	seats   map[int]string // seat -> player id
	objects map[string]*GameObject
	baseHP  map[string]int64 // player id -> hp
	solved  map[string]int   // problem id -> solving seat
	nextID  int

	// pathGeneration is bumped whenever the world changes so bots
	// recompute their routes.
	pathGeneration int
}

// New returns an empty active engine.
func New() *Engine {
	return &Engine{
		status:  StatusActive,
		seats:   make(map[int]string),
		objects: make(map[string]*GameObject),
		baseHP:  make(map[string]int64),
		solved:  make(map[string]int),
	}
}

// RegisterSeat binds a seat number to a player id.
func (e *Engine) RegisterSeat(seat int, playerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seats[seat] = playerID
}

// PlayerBySeat returns the player id bound to seat.
func (e *Engine) PlayerBySeat(seat int) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	playerID, ok := e.seats[seat]
	return playerID, ok
}

// Status returns the simulation lifecycle state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Finish moves the simulation to StatusDone. It returns true only for
// the transition, so game-end logic runs exactly once.
func (e *Engine) Finish() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusDone {
		return false
	}
	e.status = StatusDone
	return true
}

// MakeDefense places a defensive item for seat and returns the new
// object.
func (e *Engine) MakeDefense(itemID string, pos Position, seat int) *GameObject {
	e.mu.Lock()
	defer e.mu.Unlock()
	obj := &GameObject{
		ID:        e.newID(),
		Kind:      KindDefense,
		OwnerSeat: seat,
		Position:  pos,
		ItemID:    itemID,
	}
	e.objects[obj.ID] = obj
	return obj
}

// QueryObject looks up a game object by id.
func (e *Engine) QueryObject(id string) (*GameObject, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	obj, ok := e.objects[id]
	return obj, ok
}

// ObjectsByProblem returns the objects tied to a problem id.
func (e *Engine) ObjectsByProblem(problemID string) []*GameObject {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*GameObject
	for _, obj := range e.objects {
		if obj.ProblemID == problemID {
			out = append(out, obj)
		}
	}
	return out
}

// AttachCounter records an offensive item countering the defense id.
func (e *Engine) AttachCounter(id, counterItemID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	obj, ok := e.objects[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	obj.CounterItemID = counterItemID
	return nil
}

// RemoveObject deletes a game object from the world.
func (e *Engine) RemoveObject(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.objects[id]; !ok {
		return false
	}
	delete(e.objects, id)
	e.pathGeneration++
	return true
}

// AddBot spawns a bot and returns it along with the owner's live count
// of that bot kind.
func (e *Engine) AddBot(config BotConfig) (*GameObject, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	bot := &GameObject{
		ID:             e.newID(),
		Kind:           KindBot,
		OwnerSeat:      config.OwnerSeat,
		Position:       config.Position,
		BotKind:        config.Kind,
		ProblemID:      config.ProblemID,
		TargetPlayerID: config.TargetPlayerID,
	}
	e.objects[bot.ID] = bot
	return bot, e.countBots(config.OwnerSeat, config.Kind)
}

// NBots returns the owner's live count of a bot kind.
func (e *Engine) NBots(seat int, kind BotKind) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.countBots(seat, kind)
}

// ResetBots invalidates bot pathing after the world changed.
func (e *Engine) ResetBots() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pathGeneration++
}

// PathGeneration returns the current pathing epoch; bots recompute
// their route when it advances.
func (e *Engine) PathGeneration() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pathGeneration
}

// SetBaseHP mirrors the persisted base hit points into the simulation.
func (e *Engine) SetBaseHP(playerID string, hp int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.baseHP[playerID] = hp
}

// BaseHP returns the simulation's view of a player's base hit points.
func (e *Engine) BaseHP(playerID string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.baseHP[playerID]
}

// MarkSolved records that seat solved a problem.
func (e *Engine) MarkSolved(problemID string, seat int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.solved[problemID] = seat
}

// SolvedBy returns the seat that solved a problem, if any.
func (e *Engine) SolvedBy(problemID string) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	seat, ok := e.solved[problemID]
	return seat, ok
}

// StartingPosition returns the spawn point in front of a seat's base.
// Seat 1 owns the left edge, seat 2 the right.
func (e *Engine) StartingPosition(seat int) Position {
	if seat == 2 {
		return Position{X: worldWidth - 100, Y: worldHeight / 2}
	}
	return Position{X: 100, Y: worldHeight / 2}
}

func (e *Engine) countBots(seat int, kind BotKind) int {
	n := 0
	for _, obj := range e.objects {
		if obj.Kind == KindBot && obj.OwnerSeat == seat && obj.BotKind == kind {
			n++
		}
	}
	return n
}

func (e *Engine) newID() string {
	e.nextID++
	return fmt.Sprintf("obj-%d", e.nextID)
}
