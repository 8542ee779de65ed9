package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"

	"github.com/Gael-devv/voltgo/internal/auth"
)

const defaultWriteWait = 10 * time.Second

// closeCodeForceClose is sent when the client itself tears the socket
// down (stall detection); it is not in the fatal set, so the owner
// reconnects.
const closeCodeForceClose = 4000

// Handler is a named event handler invoked for decoded frames of its
// event type.
type Handler func(payload map[string]any)

// DispatchFunc is the fan-out entry point of the owning event bus.
type DispatchFunc func(event string, data ...any)

// SessionConfig wires a Session at construction time.
type SessionConfig struct {
	// URL is the gateway URL from the capability info fetch.
	URL   string
	Token auth.Token

	// Format selects the frame codec ("json" default, "msgpack").
	Format string

	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration

	// SendBudget frames per SendWindow pass the outbound limiter.
	SendBudget int
	SendWindow time.Duration

	// Handlers are named event handlers keyed by lower-cased event type.
	Handlers map[string]Handler
	// Dispatch, when set, receives bus-level notifications.
	Dispatch DispatchFunc

	Logger *slog.Logger
	Clock  clock.Clock
}

// Session owns one gateway socket from handshake to close. It is never
// reused: every reconnect creates a new Session.
type Session struct {
	cfg       SessionConfig
	codec     Codec
	limiter   *sendLimiter
	listeners listenerSet
	logger    *slog.Logger
	clock     clock.Clock

	conn    *websocket.Conn
	writeMu sync.Mutex

	frames  chan []byte
	readErr chan error

	closedOnce sync.Once
	closedCh   chan struct{}

	mu            sync.Mutex
	open          bool
	authenticated bool
	closeCode     int
	keep          *keepAlive
}

// Connect opens the socket, sends the Authenticate frame, and performs one
// blocking poll for the handshake acknowledgment. The returned session is
// authenticated and heartbeating.
func Connect(ctx context.Context, cfg SessionConfig) (*Session, error) {
	codec, err := CodecFor(cfg.Format)
	if err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}

	dialer := websocket.Dialer{HandshakeTimeout: 30 * time.Second}
	conn, _, err := dialer.DialContext(ctx, cfg.URL+"?format="+codec.Name(), nil)
	if err != nil {
		return nil, fmt.Errorf("gateway dial: %w", err)
	}

	s := &Session{
		cfg:      cfg,
		codec:    codec,
		limiter:  newSendLimiter(cfg.SendBudget, cfg.SendWindow),
		logger:   cfg.Logger,
		clock:    cfg.Clock,
		conn:     conn,
		frames:   make(chan []byte, 16),
		readErr:  make(chan error, 1),
		closedCh: make(chan struct{}),
		open:     true,
	}

	go s.readLoop()

	if err := s.authenticate(ctx); err != nil {
		s.Close(websocket.CloseNormalClosure)
		return nil, err
	}

	if err := s.Poll(ctx); err != nil {
		s.Close(websocket.CloseNormalClosure)
		return nil, err
	}
	if !s.Authenticated() {
		s.Close(websocket.CloseNormalClosure)
		return nil, &ProtocolError{Message: "handshake did not yield an Authenticated frame"}
	}

	return s, nil
}

// readLoop pumps raw frames off the socket so Poll can multiplex frames,
// read errors, and the receive timeout.
func (s *Session) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case s.readErr <- err:
			case <-s.closedCh:
			}
			return
		}

		select {
		case s.frames <- data:
		case <-s.closedCh:
			return
		}
	}
}

// Poll receives and processes one frame. A receive timeout equal to the
// heartbeat timeout returns nil so the caller's loop re-polls. Terminal
// returns are ErrReconnect, *ConnectionClosed, *ProtocolError, or a
// transport error.
func (s *Session) Poll(ctx context.Context) error {
	timer := s.clock.Timer(s.cfg.HeartbeatTimeout)
	defer timer.Stop()

	select {
	case data := <-s.frames:
		return s.handleFrame(ctx, data)
	case err := <-s.readErr:
		return s.classifyClosure(err)
	case <-s.closedCh:
		// Locally closed; the recorded close code decides the signal.
		return s.classifyClosure(nil)
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// abort tears the socket down after a terminal protocol failure, so a
// broken stream never leaves a live heartbeating connection behind. The
// peer sees a 1002 close frame; the caller gets err back.
func (s *Session) abort(err error) error {
	s.Close(websocket.CloseProtocolError)
	return err
}

func (s *Session) handleFrame(ctx context.Context, data []byte) error {
	var payload map[string]any
	if err := s.codec.Unmarshal(data, &payload); err != nil {
		return s.abort(&ProtocolError{Message: fmt.Sprintf("undecodable %s frame: %v", s.codec.Name(), err)})
	}

	typ, _ := payload["type"].(string)
	event := strings.ToLower(typ)

	if k := s.keepAliveRef(); k != nil {
		k.tick()
	}

	if event != "" && s.cfg.Dispatch != nil {
		s.cfg.Dispatch("socket_event_type", event)
	}

	switch event {
	case "":
		return s.abort(&ProtocolError{Message: "frame missing type field"})

	case "error":
		// A mid-stream error frame is classified like a socket error.
		return s.abort(&ProtocolError{EventType: "error", Message: fmt.Sprint(payload["error"])})

	case "authenticated":
		s.startKeepAlive()
		if err := s.sendHeartbeat(ctx); err != nil {
			return err
		}
		s.mu.Lock()
		s.authenticated = true
		s.mu.Unlock()
		if s.cfg.Dispatch != nil {
			s.cfg.Dispatch("authenticated")
		}
		return nil
	}

	if h, ok := s.cfg.Handlers[event]; ok {
		h(payload)
	}
	s.listeners.dispatch(event, payload)
	return nil
}

// classifyClosure maps a read error to the session's terminal signal. The
// recorded close code wins over the code carried by the error, matching
// client-initiated closes. The socket is released here on every path, so
// a terminal classification never leaks the connection.
func (s *Session) classifyClosure(err error) error {
	s.stopKeepAlive()

	code := 0
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		code = ce.Code
	}

	s.mu.Lock()
	if s.closeCode != 0 {
		code = s.closeCode
	}
	s.open = false
	s.mu.Unlock()

	s.closedOnce.Do(func() { close(s.closedCh) })
	s.conn.Close()

	if code == 0 {
		if err == nil {
			return ErrSessionClosed
		}
		// Network-level failure; let the owner classify the transport error.
		return err
	}
	if recoverableClose(code) {
		s.logger.Info("gateway closed, reconnect advisable", "code", code)
		return ErrReconnect
	}
	return &ConnectionClosed{Code: code}
}

// Send transmits one frame through the outbound limiter. The limiter
// bounds ordinary traffic; heartbeats use sendHeartbeat instead.
func (s *Session) Send(ctx context.Context, payload map[string]any) error {
	if !s.Open() {
		return ErrSessionClosed
	}
	if err := s.limiter.wait(ctx); err != nil {
		return err
	}
	return s.write(ctx, payload)
}

// sendHeartbeat bypasses the send limiter (heartbeats outrank ordinary
// traffic) but not the closed-socket check.
func (s *Session) sendHeartbeat(ctx context.Context) error {
	if !s.Open() {
		return ErrSessionClosed
	}
	return s.write(ctx, map[string]any{"type": "Ping", "data": 0})
}

func (s *Session) authenticate(ctx context.Context) error {
	payload := map[string]any{"type": "Authenticate"}
	for k, v := range s.cfg.Token.Payload() {
		payload[k] = v
	}
	return s.Send(ctx, payload)
}

// BeginTyping signals a typing indicator in a channel.
func (s *Session) BeginTyping(ctx context.Context, channelID string) error {
	return s.Send(ctx, map[string]any{"type": "BeginTyping", "channel": channelID})
}

// EndTyping clears a typing indicator in a channel.
func (s *Session) EndTyping(ctx context.Context, channelID string) error {
	return s.Send(ctx, map[string]any{"type": "EndTyping", "channel": channelID})
}

func (s *Session) write(ctx context.Context, payload map[string]any) error {
	data, err := s.codec.Marshal(payload)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(defaultWriteWait)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(deadline)
	return s.conn.WriteMessage(s.codec.MessageType(), data)
}

// WaitFor registers a single-fulfillment waiter for an event. The
// predicate filters payloads; the transform shapes the result.
func (s *Session) WaitFor(event string, predicate Predicate, transform Transform) *Waiter {
	return s.listeners.add(strings.ToLower(event), predicate, transform)
}

// Close stops the keep-alive monitor first, records the close code, then
// closes the socket. Idempotent.
func (s *Session) Close(code int) error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil
	}
	s.open = false
	s.closeCode = code
	keep := s.keep
	s.keep = nil
	s.mu.Unlock()

	if keep != nil {
		keep.stop()
	}
	s.closedOnce.Do(func() { close(s.closedCh) })

	s.writeMu.Lock()
	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, ""),
		time.Now().Add(time.Second),
	)
	s.writeMu.Unlock()

	return s.conn.Close()
}

// forceClose is the keep-alive stall path.
func (s *Session) forceClose() {
	s.Close(closeCodeForceClose)
}

func (s *Session) startKeepAlive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keep != nil {
		return
	}
	s.keep = newKeepAlive(s, s.cfg.HeartbeatInterval, s.cfg.HeartbeatTimeout, s.clock, s.logger)
	s.keep.start()
}

func (s *Session) stopKeepAlive() {
	s.mu.Lock()
	keep := s.keep
	s.keep = nil
	s.mu.Unlock()
	if keep != nil {
		keep.stop()
	}
}

func (s *Session) keepAliveRef() *keepAlive {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keep
}

// Open reports whether the socket is usable.
func (s *Session) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Authenticated reports whether the handshake completed.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// CloseCode returns the recorded close code, 0 if none.
func (s *Session) CloseCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCode
}

// IsRateLimited reports whether an ordinary send would block on the
// outbound limiter right now.
func (s *Session) IsRateLimited() bool {
	return s.limiter.limited()
}
