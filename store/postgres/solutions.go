package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lolney/codesiege/store"
)

func (s *Store) AddSolution(ctx context.Context, playerID, problemID, code string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO solutions (player_id, problem_id, code)
		VALUES ($1, $2, $3)
	`, playerID, problemID, code)
	if err != nil {
		return fmt.Errorf("insert solution: %w", err)
	}
	return nil
}

func (s *Store) Solutions(ctx context.Context, playerID string) ([]store.Solution, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT problem_id, player_id, code, created_at
		FROM solutions
		WHERE player_id = $1
		ORDER BY created_at
	`, playerID)
	if err != nil {
		return nil, fmt.Errorf("select solutions: %w", err)
	}
	defer rows.Close()

	var solutions []store.Solution
	for rows.Next() {
		var solution store.Solution
		if err := rows.Scan(&solution.ProblemID, &solution.PlayerID, &solution.Code, &solution.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan solution: %w", err)
		}
		solutions = append(solutions, solution)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate solutions: %w", err)
	}
	return solutions, nil
}

func (s *Store) SolvedProblem(ctx context.Context, problemID string) (*store.SolvedProblem, error) {
	var solved store.SolvedProblem
	err := s.pool.QueryRow(ctx, `
		SELECT s.problem_id, s.player_id, s.code, s.created_at,
		       p.id, p.type, p.title, COALESCE(p.original, '')
		FROM solutions s
		JOIN problems p ON p.id = s.problem_id
		WHERE s.problem_id = $1
		ORDER BY s.created_at
		LIMIT 1
	`, problemID).Scan(
		&solved.ProblemID, &solved.PlayerID, &solved.Code, &solved.CreatedAt,
		&solved.Problem.ID, &solved.Problem.Type, &solved.Problem.Title, &solved.Problem.Original,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select solved problem: %w", err)
	}
	return &solved, nil
}

func (s *Store) Problem(ctx context.Context, problemID, playerID string) (*store.Problem, error) {
	var problem store.Problem
	err := s.pool.QueryRow(ctx, `
		SELECT id, type, title, COALESCE(original, '')
		FROM problems
		WHERE id = $1
	`, problemID).Scan(&problem.ID, &problem.Type, &problem.Title, &problem.Original)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select problem: %w", err)
	}
	return &problem, nil
}
