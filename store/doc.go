// Package store defines the persistence boundary for game state that
// outlives a single socket event: player resource balances, base hit
// points, submitted solutions, problems, and collectible game-object
// resources.
//
// Two implementations exist: store/memory for tests and single-process
// development, and store/postgres backed by pgx. Both enforce the
// resource-ledger invariant that a committed balance never goes
// negative - a guarded decrement that would overdraw fails with
// ErrInsufficientResources and leaves the balance untouched.
package store
