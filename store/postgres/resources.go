package postgres

import (
	"context"
	"fmt"

	"github.com/lolney/codesiege/store"
)

func (s *Store) PlayerResources(ctx context.Context, playerID string) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, count
		FROM player_resources
		WHERE player_id = $1
	`, playerID)
	if err != nil {
		return nil, fmt.Errorf("select resources: %w", err)
	}
	defer rows.Close()

	balances := make(map[string]int64)
	for rows.Next() {
		var (
			name  string
			count int64
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		balances[name] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resources: %w", err)
	}
	if len(balances) == 0 {
		return nil, store.ErrNotFound
	}
	return balances, nil
}

func (s *Store) AddToResourceCount(ctx context.Context, playerID, name string, delta int64) error {
	if delta >= 0 {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO player_resources (player_id, name, count)
			VALUES ($1, $2, $3)
			ON CONFLICT (player_id, name)
			DO UPDATE SET count = player_resources.count + $3
		`, playerID, name, delta)
		if err != nil {
			return fmt.Errorf("increase resource: %w", err)
		}
		return nil
	}

	// Guarded decrement: the WHERE clause rejects an overdraw atomically.
	tag, err := s.pool.Exec(ctx, `
		UPDATE player_resources
		SET count = count + $3
		WHERE player_id = $1
		  AND name = $2
		  AND count + $3 >= 0
	`, playerID, name, delta)
	if err != nil {
		return fmt.Errorf("decrease resource: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrInsufficientResources
	}
	return nil
}

func (s *Store) PutObjectResources(ctx context.Context, gameObjectID string, resources []store.Resource) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO game_objects (game_object_id)
		VALUES ($1)
		ON CONFLICT (game_object_id) DO NOTHING
	`, gameObjectID)
	if err != nil {
		return fmt.Errorf("insert game object: %w", err)
	}

	for _, resource := range resources {
		_, err = tx.Exec(ctx, `
			INSERT INTO game_object_resources (game_object_id, name, count)
			VALUES ($1, $2, $3)
			ON CONFLICT (game_object_id, name)
			DO UPDATE SET count = $3
		`, gameObjectID, resource.Name, resource.Count)
		if err != nil {
			return fmt.Errorf("insert object resource %q: %w", resource.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) ObjectResources(ctx context.Context, gameObjectID string) ([]store.Resource, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.name, r.count
		FROM game_object_resources r
		JOIN game_objects o ON o.game_object_id = r.game_object_id
		WHERE r.game_object_id = $1
		  AND NOT o.collected
	`, gameObjectID)
	if err != nil {
		return nil, fmt.Errorf("select object resources: %w", err)
	}
	defer rows.Close()

	var resources []store.Resource
	for rows.Next() {
		var resource store.Resource
		if err := rows.Scan(&resource.Name, &resource.Count); err != nil {
			return nil, fmt.Errorf("scan object resource: %w", err)
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate object resources: %w", err)
	}
	if resources == nil {
		return nil, store.ErrNotFound
	}
	return resources, nil
}

func (s *Store) MarkCollected(ctx context.Context, gameObjectID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE game_objects
		SET collected = TRUE
		WHERE game_object_id = $1
	`, gameObjectID)
	if err != nil {
		return fmt.Errorf("mark collected: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
