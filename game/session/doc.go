// Package session manages game instance lifecycle: creation with a
// mode-dependent player capacity, seat assignment on connect with seat
// recall for reconnecting players, and teardown when an instance
// stops.
package session
