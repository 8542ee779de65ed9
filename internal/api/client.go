package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/Gael-devv/voltgo/internal/auth"
)

// Version is the library version reported in the User-Agent header.
const Version = "0.1.0"

// DefaultBaseURL is the production Delta endpoint.
const DefaultBaseURL = "https://api.revolt.chat"

const defaultMaxAttempts = 5

// Client sends HTTP requests to the Revolt API with per-bucket
// serialization and retry policy. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string

	maxAttempts int
	backoffUnit time.Duration // scales retry sleeps, 1s in production

	buckets *bucketTable
	global  *cooldownGate

	mu    sync.RWMutex
	token auth.Token
	info  *APIInfo
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a Delta REST client. An empty baseURL selects the
// production endpoint.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:      slog.Default(),
		userAgent:   fmt.Sprintf("voltgo (https://github.com/Gael-devv/voltgo, %s) %s", Version, runtime.Version()),
		maxAttempts: defaultMaxAttempts,
		backoffUnit: time.Second,
		buckets:     newBucketTable(),
		global:      newCooldownGate(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithBackoffUnit scales the retry backoff sleeps. Tests use a small unit;
// production keeps the default of one second.
func WithBackoffUnit(d time.Duration) ClientOption {
	return func(c *Client) {
		c.backoffUnit = d
	}
}

// SetToken installs the credential used for authenticated requests.
func (c *Client) SetToken(token auth.Token) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current credential.
func (c *Client) Token() auth.Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Info returns the capability info from the last FetchAPIInfo call, or nil.
func (c *Client) Info() *APIInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info
}

// IsGloballyRateLimited reports whether the global cooldown gate is closed.
func (c *Client) IsGloballyRateLimited() bool {
	return c.global.isShut()
}
