package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lolney/codesiege/store"
)

func (s *Store) CreatePlayer(ctx context.Context, playerID string, resources map[string]int64, hp int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO players (player_id, hp)
		VALUES ($1, $2)
		ON CONFLICT (player_id) DO NOTHING
	`, playerID, hp)
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}

	// Existing player keeps its ledger.
	if tag.RowsAffected() > 0 {
		for name, count := range resources {
			_, err = tx.Exec(ctx, `
				INSERT INTO player_resources (player_id, name, count)
				VALUES ($1, $2, $3)
			`, playerID, name, count)
			if err != nil {
				return fmt.Errorf("seed resource %q: %w", name, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) DeletePlayer(ctx context.Context, playerID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM players
		WHERE player_id = $1
	`, playerID)
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	return nil
}

func (s *Store) DecrementHP(ctx context.Context, playerID string) (int64, error) {
	var hp int64
	err := s.pool.QueryRow(ctx, `
		UPDATE players
		SET hp = hp - 1
		WHERE player_id = $1
		RETURNING hp
	`, playerID).Scan(&hp)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("decrement hp: %w", err)
	}
	return hp, nil
}
