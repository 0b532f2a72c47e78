package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInsufficientResources is returned by a guarded decrement that
	// would drive a balance negative.
	ErrInsufficientResources = errors.New("insufficient resources")
)

// Resource is a named resource count attached to a player or a
// collectible game object.
type Resource struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Problem is a coding problem referenced by id. Type tags how the
// client-side problem engine renders it.
type Problem struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Original string `json:"original,omitempty"`
}

// Solution is one submitted solution to a problem.
type Solution struct {
	ProblemID string    `json:"problemId"`
	PlayerID  string    `json:"playerId"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}

// SolvedProblem is a solution joined with its problem record.
type SolvedProblem struct {
	Solution
	Problem Problem `json:"problem"`
}

// Store is the persistence interface the session server depends on.
// All calls take a context and may suspend the caller; implementations
// serialize concurrent access themselves.
type Store interface {
	// CreatePlayer registers a player with starting balances and base
	// hit points. Creating an already-registered player is a no-op so
	// reconnects keep their ledger.
	CreatePlayer(ctx context.Context, playerID string, resources map[string]int64, hp int64) error

	// DeletePlayer disassociates a player id at instance teardown.
	DeletePlayer(ctx context.Context, playerID string) error

	// AddSolution persists a submitted solution.
	AddSolution(ctx context.Context, playerID, problemID, code string) error

	// Solutions lists a player's solutions, oldest first.
	Solutions(ctx context.Context, playerID string) ([]Solution, error)

	// SolvedProblem returns the solved record for a problem joined with
	// the problem itself.
	SolvedProblem(ctx context.Context, problemID string) (*SolvedProblem, error)

	// Problem fetches the problem assigned to a player.
	Problem(ctx context.Context, problemID, playerID string) (*Problem, error)

	// PlayerResources returns the player's current balances by name.
	PlayerResources(ctx context.Context, playerID string) (map[string]int64, error)

	// AddToResourceCount applies a delta to one balance. A negative
	// delta that would overdraw fails with ErrInsufficientResources
	// and applies nothing.
	AddToResourceCount(ctx context.Context, playerID, name string, delta int64) error

	// PutObjectResources records the resources a game object yields
	// when collected.
	PutObjectResources(ctx context.Context, gameObjectID string, resources []Resource) error

	// ObjectResources returns the resources attached to a game object.
	// Unknown and already-collected objects report ErrNotFound so a
	// yield cannot be credited twice.
	ObjectResources(ctx context.Context, gameObjectID string) ([]Resource, error)

	// MarkCollected flags a game object as harvested.
	MarkCollected(ctx context.Context, gameObjectID string) error

	// DecrementHP subtracts one from the player's base hit points and
	// returns the remaining value.
	DecrementHP(ctx context.Context, playerID string) (int64, error)
}
