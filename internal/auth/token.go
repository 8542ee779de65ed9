// Package auth provides Revolt API authentication tokens.
//
// Revolt distinguishes two token kinds: bot tokens (issued per bot account)
// and session tokens (issued by a session login). The kind decides which
// request header carries the token.
package auth

import "fmt"

// Kind identifies the token kind.
type Kind string

const (
	KindBot     Kind = "bot"
	KindSession Kind = "session"
)

// Token is an immutable Revolt authentication credential.
type Token struct {
	value string
	kind  Kind
}

// NewBotToken returns a bot-account token.
func NewBotToken(value string) Token {
	return Token{value: value, kind: KindBot}
}

// NewSessionToken returns a user-session token.
func NewSessionToken(value string) Token {
	return Token{value: value, kind: KindSession}
}

// Kind returns the token kind.
func (t Token) Kind() Kind { return t.kind }

// IsZero reports whether the token is unset.
func (t Token) IsZero() bool { return t.value == "" }

// Header returns the HTTP header name and value carrying the token.
func (t Token) Header() (name, value string) {
	return fmt.Sprintf("x-%s-token", t.kind), t.value
}

// Payload returns the token fields merged into a gateway Authenticate frame.
func (t Token) Payload() map[string]any {
	return map[string]any{"token": t.value}
}

// String never exposes the token value.
func (t Token) String() string {
	return fmt.Sprintf("<token kind=%s>", t.kind)
}
