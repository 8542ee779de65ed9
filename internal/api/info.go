package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/Gael-devv/voltgo/internal/auth"
)

// Feature is one capability entry from the node info.
type Feature struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
}

// APIInfo is the capability info served at GET /. It advertises the
// gateway URL and the feature endpoints (Autumn file storage, January
// proxy, Vortex voice).
type APIInfo struct {
	Revolt   string `json:"revolt"`
	WS       string `json:"ws"`
	App      string `json:"app"`
	Features struct {
		Autumn  Feature `json:"autumn"`
		January Feature `json:"january"`
		Voso    Feature `json:"voso"`
	} `json:"features"`
}

// FetchAPIInfo performs the one-time capability fetch and caches the result
// on the client.
func (c *Client) FetchAPIInfo(ctx context.Context) (*APIInfo, error) {
	var info APIInfo
	if err := c.executeJSON(ctx, NewRoute(http.MethodGet, "/", nil), nil, &info); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.info = &info
	c.mu.Unlock()

	return &info, nil
}

// StaticLogin installs the token, fetches capability info if missing, and
// verifies the credential by fetching the current user. A 401 surfaces as
// *LoginError and restores the previous token.
func (c *Client) StaticLogin(ctx context.Context, token auth.Token) (*User, error) {
	if c.Info() == nil {
		if _, err := c.FetchAPIInfo(ctx); err != nil {
			return nil, err
		}
	}

	old := c.Token()
	c.SetToken(token)

	user, err := c.FetchSelf(ctx)
	if err != nil {
		c.SetToken(old)

		var he *HTTPError
		if errors.As(err, &he) && he.Status == http.StatusUnauthorized {
			return nil, &LoginError{HTTPError{Status: he.Status, Text: "improper token has been passed"}}
		}
		return nil, err
	}

	return user, nil
}
