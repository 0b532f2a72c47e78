// Package memory provides a mutex-guarded in-memory Store used by
// tests and by the server's storeless development mode.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/lolney/codesiege/store"
)

type playerRecord struct {
	resources map[string]int64
	hp        int64
}

type objectRecord struct {
	resources []store.Resource
	collected bool
}

// Store keeps every record in process memory.
type Store struct {
	mu        sync.RWMutex
	players   map[string]*playerRecord
	solutions map[string][]store.Solution
	problems  map[string]store.Problem
	objects   map[string]*objectRecord
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		players:   make(map[string]*playerRecord),
		solutions: make(map[string][]store.Solution),
		problems:  make(map[string]store.Problem),
		objects:   make(map[string]*objectRecord),
	}
}

// SeedProblem inserts a problem record, replacing any previous one with
// the same id.
func (s *Store) SeedProblem(p store.Problem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.problems[p.ID] = p
}

func (s *Store) CreatePlayer(ctx context.Context, playerID string, resources map[string]int64, hp int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[playerID]; ok {
		return nil
	}
	balances := make(map[string]int64, len(resources))
	for name, count := range resources {
		balances[name] = count
	}
	s.players[playerID] = &playerRecord{resources: balances, hp: hp}
	return nil
}

func (s *Store) DeletePlayer(ctx context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, playerID)
	return nil
}

func (s *Store) AddSolution(ctx context.Context, playerID, problemID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.solutions[playerID] = append(s.solutions[playerID], store.Solution{
		ProblemID: problemID,
		PlayerID:  playerID,
		Code:      code,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *Store) Solutions(ctx context.Context, playerID string) ([]store.Solution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Solution, len(s.solutions[playerID]))
	copy(out, s.solutions[playerID])
	return out, nil
}

func (s *Store) SolvedProblem(ctx context.Context, problemID string) (*store.SolvedProblem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, solutions := range s.solutions {
		for _, sol := range solutions {
			if sol.ProblemID == problemID {
				problem, ok := s.problems[problemID]
				if !ok {
					return nil, store.ErrNotFound
				}
				return &store.SolvedProblem{Solution: sol, Problem: problem}, nil
			}
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) Problem(ctx context.Context, problemID, playerID string) (*store.Problem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	problem, ok := s.problems[problemID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &problem, nil
}

func (s *Store) PlayerResources(ctx context.Context, playerID string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[playerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := make(map[string]int64, len(player.resources))
	for name, count := range player.resources {
		out[name] = count
	}
	return out, nil
}

func (s *Store) AddToResourceCount(ctx context.Context, playerID, name string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[playerID]
	if !ok {
		return store.ErrNotFound
	}
	if player.resources[name]+delta < 0 {
		return store.ErrInsufficientResources
	}
	player.resources[name] += delta
	return nil
}

func (s *Store) PutObjectResources(ctx context.Context, gameObjectID string, resources []store.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Resource, len(resources))
	copy(out, resources)
	s.objects[gameObjectID] = &objectRecord{resources: out}
	return nil
}

func (s *Store) ObjectResources(ctx context.Context, gameObjectID string) ([]store.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	object, ok := s.objects[gameObjectID]
	if !ok || object.collected {
		return nil, store.ErrNotFound
	}
	out := make([]store.Resource, len(object.resources))
	copy(out, object.resources)
	return out, nil
}

func (s *Store) MarkCollected(ctx context.Context, gameObjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	object, ok := s.objects[gameObjectID]
	if !ok {
		return store.ErrNotFound
	}
	object.collected = true
	return nil
}

func (s *Store) DecrementHP(ctx context.Context, playerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[playerID]
	if !ok {
		return 0, store.ErrNotFound
	}
	player.hp--
	return player.hp, nil
}
