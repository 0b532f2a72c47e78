// Package socket wraps a raw bidirectional event connection with the
// protocol features the game server relies on:
//   - Authentication gating at construction time
//   - An ordered middleware chain that can observe inbound traffic and
//     veto outbound emits
//   - Request/response correlation over plain events via per-call ack
//     tokens, so a caller gets exactly one eventual response
//   - Transaction handlers that answer inbound requests with a
//     SUCCESS/ERROR response envelope
//   - Cooperative suspension: while a socket is suspended, inbound
//     handlers are not invoked and transaction requests are answered
//     with an ERROR envelope instead
//
// Wire Format:
//
// Each websocket message carries one JSON Envelope:
//
//	{"event": "makeDefense", "data": {...}, "ack": 3}
//
// A reply to a request echoes the ack token in replyTo:
//
//	{"event": "makeDefense", "data": {"type": "SUCCESS", ...}, "replyTo": 3}
//
// Concurrency:
//
// A Socket is safe for concurrent use. Dispatch is driven by a single
// read pump per connection; emits may come from any goroutine. No
// timeout is imposed on Request - callers bound the wait with a context.
package socket
