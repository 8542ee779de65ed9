package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// SendMessageOptions carries the optional parts of a message send.
type SendMessageOptions struct {
	Attachments []string `json:"attachments,omitempty"`
	Replies     []string `json:"replies,omitempty"`
}

type sendMessagePayload struct {
	Content string `json:"content"`
	Nonce   string `json:"nonce"`
	SendMessageOptions
}

// SendMessage posts a message to a channel. A fresh nonce makes the send
// idempotent against gateway replays.
func (c *Client) SendMessage(ctx context.Context, channelID, content string, opts *SendMessageOptions) (*Message, error) {
	payload := sendMessagePayload{
		Content: content,
		Nonce:   uuid.NewString(),
	}
	if opts != nil {
		payload.SendMessageOptions = *opts
	}

	route := NewRoute(http.MethodPost, "/channels/{channel_id}/messages", Params{"channel_id": channelID})

	var msg Message
	if err := c.executeJSON(ctx, route, &ExecuteOptions{JSON: payload}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// FetchMessage retrieves a single message.
func (c *Client) FetchMessage(ctx context.Context, channelID, messageID string) (*Message, error) {
	route := NewRoute(http.MethodGet, "/channels/{channel_id}/messages/{message_id}", Params{
		"channel_id": channelID,
		"message_id": messageID,
	})

	var msg Message
	if err := c.executeJSON(ctx, route, nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessage replaces the content of an existing message.
func (c *Client) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	route := NewRoute(http.MethodPatch, "/channels/{channel_id}/messages/{message_id}", Params{
		"channel_id": channelID,
		"message_id": messageID,
	})

	return c.executeJSON(ctx, route, &ExecuteOptions{JSON: map[string]string{"content": content}}, nil)
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	route := NewRoute(http.MethodDelete, "/channels/{channel_id}/messages/{message_id}", Params{
		"channel_id": channelID,
		"message_id": messageID,
	})

	return c.executeJSON(ctx, route, nil, nil)
}

// FetchSelf retrieves the user the current token belongs to.
func (c *Client) FetchSelf(ctx context.Context) (*User, error) {
	var user User
	if err := c.executeJSON(ctx, NewRoute(http.MethodGet, "/users/@me", nil), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
