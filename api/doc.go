// Package api provides the HTTP surface of the game server.
//
// Endpoints:
//
// Matchmaking:
//   - POST /match?mode=vs - Queue for a versus game. The request
//     blocks until an opponent is paired; aborting it withdraws the
//     caller from the queue. A gameId cookie naming a joinable game
//     short-circuits to a rejoin.
//   - POST /match?mode=practice - Create a solo game immediately.
//
// Gameplay:
//   - GET /ws?gameId=...&userId=... - Upgrade to the game websocket.
//     Both parameters fall back to same-named cookies. Unknown games
//     return 404, missing identity 401.
//
// Operations:
//   - GET /healthz - Liveness check.
//   - GET /metrics - Prometheus scrape endpoint.
//
// Matchmaking responses are JSON {"gameId": "..."} and also set the
// gameId cookie (SameSite=Strict, 24h) so a page reload can rejoin.
package api
