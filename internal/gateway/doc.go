// Package gateway implements the persistent WebSocket session against
// Bonfire, the Revolt event gateway.
//
// A Session is single-use: it is created by Connect, polled until it
// returns a terminal error, and never reused across reconnects. The
// keep-alive monitor runs on its own goroutine and force-closes a stalled
// session; the owning reconnect loop observes that as a closed socket.
package gateway
