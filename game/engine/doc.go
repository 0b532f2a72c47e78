// Package engine holds the server-side simulation state of one game
// instance: the seat table, placed siege items, live bots, base hit
// points, and solved-problem marks.
//
// Every game object carries an explicit Kind tag from a closed enum;
// queries match on tagged fields rather than probing object shapes.
// One Engine belongs to exactly one instance and shares no state with
// any other - the session id is the isolation boundary.
package engine
