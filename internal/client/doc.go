// Package client ties the REST dispatcher and the gateway session together
// behind one Client, supervises the gateway with a reconnect loop, and
// fans decoded events out to registered handlers and waiters.
package client
