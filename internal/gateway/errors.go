package gateway

import (
	"errors"
	"fmt"
)

// ErrReconnect signals that the connection was lost for a recoverable
// reason and the owner should open a fresh session.
var ErrReconnect = errors.New("gateway: reconnect requested")

// ErrSessionClosed is returned by sends on a closed session.
var ErrSessionClosed = errors.New("gateway: session closed")

// ConnectionClosed is the terminal close of a gateway session. It carries
// the WebSocket close code that ended the connection.
type ConnectionClosed struct {
	Code int
}

func (e *ConnectionClosed) Error() string {
	return fmt.Sprintf("gateway: connection closed with code %d", e.Code)
}

// Clean reports whether the close was a normal 1000 closure.
func (e *ConnectionClosed) Clean() bool { return e.Code == 1000 }

// ProtocolError is a malformed or error-bearing frame received mid-stream.
type ProtocolError struct {
	EventType string
	Message   string
}

func (e *ProtocolError) Error() string {
	if e.EventType == "" {
		return fmt.Sprintf("gateway: protocol error: %s", e.Message)
	}
	return fmt.Sprintf("gateway: protocol error in %q frame: %s", e.EventType, e.Message)
}

// Close codes that terminate a session permanently. 1000 is a normal
// closure; 4004 and 4010-4014 are policy-level rejections (bad token,
// kicked, banned, ...). Everything else is worth a reconnect.
var fatalCloseCodes = map[int]struct{}{
	1000: {},
	4004: {},
	4010: {},
	4011: {},
	4012: {},
	4013: {},
	4014: {},
}

func recoverableClose(code int) bool {
	_, fatal := fatalCloseCodes[code]
	return !fatal
}
