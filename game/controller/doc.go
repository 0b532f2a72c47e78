// Package controller wires a game instance's event surface: the
// per-player socket handlers for building, merging, bot purchases,
// problem solving and resource queries, plus the assault and win flow.
//
// Resource spending is validated against the player's full balance
// before any deduction is applied, and a deduction that fails partway
// restores what was already taken.
package controller
