package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"

	"github.com/Gael-devv/voltgo/internal/api"
	"github.com/Gael-devv/voltgo/internal/auth"
	"github.com/Gael-devv/voltgo/internal/cache"
	"github.com/Gael-devv/voltgo/internal/config"
	"github.com/Gael-devv/voltgo/internal/gateway"
)

// A connection that survived this long is considered healthy and resets
// the reconnect backoff to its floor.
const sustainedConnection = 2 * time.Minute

// Client is a single-session Revolt client: one REST dispatcher and at
// most one live gateway session, supervised by Connect.
type Client struct {
	cfg    config.Config
	logger *slog.Logger

	api      *api.Client
	bus      *Bus
	messages *cache.Messages

	mu      sync.RWMutex
	session *gateway.Session
	closed  bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger shared by the client and its REST dispatcher.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client from configuration.
func New(cfg config.Config, opts ...Option) *Client {
	c := &Client{
		cfg:      cfg,
		logger:   slog.Default(),
		bus:      newBus(),
		messages: cache.NewMessages(cfg.MaxMessages),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.api = api.NewClient(cfg.APIURL, api.WithLogger(c.logger))
	return c
}

// API returns the REST dispatcher.
func (c *Client) API() *api.Client { return c.api }

// Messages returns the bounded message cache.
func (c *Client) Messages() *cache.Messages { return c.messages }

// Session returns the live gateway session, or nil between connections.
func (c *Client) Session() *gateway.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// On registers a named event handler on the dispatch bus.
func (c *Client) On(event string, h EventHandler) { c.bus.On(event, h) }

// WaitFor registers a one-shot waiter on the dispatch bus.
func (c *Client) WaitFor(event string, predicate WaitPredicate) *Waiter {
	return c.bus.WaitFor(event, predicate)
}

// Dispatch is the bus fan-out entry point.
func (c *Client) Dispatch(event string, data ...any) { c.bus.Dispatch(event, data...) }

// IsRateLimited reports whether the gateway send limiter would block.
func (c *Client) IsRateLimited() bool {
	s := c.Session()
	return s != nil && s.IsRateLimited()
}

// IsClosed reports whether Close was called.
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Login verifies the credential against the REST API and installs it for
// both the dispatcher and future gateway sessions.
func (c *Client) Login(ctx context.Context, token auth.Token) (*api.User, error) {
	return c.api.StaticLogin(ctx, token)
}

// Close terminates the client permanently. The live session, if any, is
// closed with a normal 1000 code. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	sess := c.session
	c.session = nil
	c.mu.Unlock()

	if sess != nil && sess.Open() {
		return sess.Close(websocket.CloseNormalClosure)
	}
	return nil
}

// Run is Login followed by Connect.
func (c *Client) Run(ctx context.Context, token auth.Token, reconnect bool) error {
	if _, err := c.Login(ctx, token); err != nil {
		return err
	}
	return c.Connect(ctx, reconnect)
}

// Connect owns the supervising loop: it creates gateway sessions, polls
// them to a terminal signal, and classifies the loss.
//
//   - ErrReconnect means the server asked for a fresh connection; retry
//     immediately, no backoff.
//   - A terminal close with code 1000 returns cleanly, any other terminal
//     code closes the client and propagates *ConnectionClosed.
//   - Transport-level failures back off exponentially, except connection
//     resets which retry at once. With reconnect disabled they close the
//     client and surface.
func (c *Client) Connect(ctx context.Context, reconnect bool) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = time.Minute

	for !c.IsClosed() {
		started := time.Now()
		err := c.runSession(ctx)

		if errors.Is(err, gateway.ErrReconnect) {
			c.bus.Dispatch("disconnect")
			if !reconnect {
				c.Close()
				return err
			}
			continue
		}

		if ctx.Err() != nil {
			c.Close()
			return ctx.Err()
		}

		c.bus.Dispatch("disconnect")

		var cc *gateway.ConnectionClosed
		if errors.As(err, &cc) {
			c.Close()
			if cc.Clean() {
				return nil
			}
			return fmt.Errorf("gateway terminated: %w", cc)
		}

		if !reconnect {
			c.Close()
			return err
		}
		if c.IsClosed() {
			return nil
		}

		if errors.Is(err, syscall.ECONNRESET) {
			c.logger.Info("connection reset, reconnecting immediately")
			continue
		}

		if time.Since(started) > sustainedConnection {
			bo.Reset()
		}
		delay := bo.NextBackOff()
		c.logger.Info("reconnecting after backoff", "delay", delay, "error", err)
		if err := sleep(ctx, delay); err != nil {
			c.Close()
			return err
		}
	}

	return nil
}

// runSession connects one session with a bounded handshake and polls it
// until a terminal signal.
func (c *Client) runSession(ctx context.Context) error {
	if c.api.Info() == nil {
		if _, err := c.api.FetchAPIInfo(ctx); err != nil {
			return err
		}
	}

	hctx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	sess, err := gateway.Connect(hctx, c.sessionConfig())
	cancel()
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sess.Close(websocket.CloseNormalClosure)
		return nil
	}
	c.session = sess
	c.mu.Unlock()

	for {
		if err := sess.Poll(ctx); err != nil {
			// A peer-closed session makes this a no-op; it matters when
			// polling stops with the socket still live (protocol failure,
			// context cancellation) so the old connection never outlives
			// its replacement.
			sess.Close(websocket.CloseNormalClosure)
			return err
		}
	}
}

// sessionConfig wires a fresh session explicitly; sessions never learn
// about the client beyond what is passed here.
func (c *Client) sessionConfig() gateway.SessionConfig {
	return gateway.SessionConfig{
		URL:               c.api.Info().WS,
		Token:             c.api.Token(),
		Format:            c.cfg.GatewayFormat,
		HeartbeatInterval: c.cfg.HeartbeatInterval,
		HeartbeatTimeout:  c.cfg.HeartbeatTimeout,
		Handlers: map[string]gateway.Handler{
			"ready":         func(payload map[string]any) { c.bus.Dispatch("ready", payload) },
			"message":       c.handleMessage,
			"messageupdate": c.handleMessageUpdate,
			"messagedelete": c.handleMessageDelete,
		},
		Dispatch: c.bus.Dispatch,
		Logger:   c.logger,
	}
}

func (c *Client) handleMessage(payload map[string]any) {
	msg := messageFromPayload(payload)
	c.messages.Insert(msg)
	c.bus.Dispatch("message", msg)
}

func (c *Client) handleMessageUpdate(payload map[string]any) {
	id, _ := payload["id"].(string)
	if data, ok := payload["data"].(map[string]any); ok {
		if cached, found := c.messages.Get(id); found {
			if content, ok := data["content"].(string); ok {
				cached.Content = content
			}
			c.messages.Insert(cached)
		}
	}
	c.bus.Dispatch("message_update", payload)
}

func (c *Client) handleMessageDelete(payload map[string]any) {
	id, _ := payload["id"].(string)
	c.messages.Remove(id)
	c.bus.Dispatch("message_delete", payload)
}

func messageFromPayload(payload map[string]any) api.Message {
	str := func(key string) string {
		v, _ := payload[key].(string)
		return v
	}
	return api.Message{
		ID:      str("_id"),
		Nonce:   str("nonce"),
		Channel: str("channel"),
		Author:  str("author"),
		Content: str("content"),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
