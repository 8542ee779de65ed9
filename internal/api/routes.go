package api

import (
	"net/url"
	"strings"
)

// Route describes one REST endpoint call: the HTTP method, the path
// template, and the resolved path with parameters substituted. The major
// parameters (channel and server IDs) select the rate-limit bucket.
// A Route is immutable once constructed.
type Route struct {
	Method string
	Path   string // template, e.g. "/channels/{channel_id}/messages"

	resolved  string
	channelID string
	serverID  string
}

// Params maps template placeholders to their values.
type Params map[string]string

// NewRoute resolves a path template against its parameters. Parameter
// values are URI-escaped when substituted.
func NewRoute(method, path string, params Params) Route {
	resolved := path
	for k, v := range params {
		resolved = strings.ReplaceAll(resolved, "{"+k+"}", url.PathEscape(v))
	}

	return Route{
		Method:    method,
		Path:      path,
		resolved:  resolved,
		channelID: params["channel_id"],
		serverID:  params["server_id"],
	}
}

// Bucket returns the rate-limit bucket key: method plus major parameters
// plus the unresolved path template. Two routes with different major
// parameters never share a bucket even when the template is identical.
func (r Route) Bucket() string {
	return r.Method + ":" + r.channelID + ":" + r.serverID + ":" + r.Path
}

// ResolvedPath returns the path with parameters substituted.
func (r Route) ResolvedPath() string { return r.resolved }
