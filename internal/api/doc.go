// Package api implements the client for Delta, the Revolt REST API.
//
// Endpoints:
//   - Production: https://api.revolt.chat
//   - Capability info: GET / (gateway URL, Autumn file server, feature flags)
//
// Requests are serialized per rate-limit bucket (method + major parameters +
// path template) and retried according to the status-code policy in Execute.
package api
