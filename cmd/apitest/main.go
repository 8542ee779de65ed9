// apitest exercises the REST surface: login, capability info, and message
// round-trip against a channel.
// Usage: go run ./cmd/apitest --channel <channel-id> --content "hello"
//
// Required environment variables:
//
//	VOLT_TOKEN         - Bot or session token
//	VOLT_SESSION_TOKEN - Set to any value to treat VOLT_TOKEN as a session token
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Gael-devv/voltgo/internal/api"
	"github.com/Gael-devv/voltgo/internal/auth"
	"github.com/Gael-devv/voltgo/internal/config"
)

func main() {
	channel := flag.String("channel", "", "channel ID to post into")
	content := flag.String("content", "voltgo api test", "message content")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	tokenValue := os.Getenv("VOLT_TOKEN")
	if tokenValue == "" {
		logger.Error("VOLT_TOKEN is required")
		os.Exit(1)
	}
	token := auth.NewBotToken(tokenValue)
	if os.Getenv("VOLT_SESSION_TOKEN") != "" {
		token = auth.NewSessionToken(tokenValue)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client := api.NewClient(cfg.APIURL, api.WithLogger(logger))

	user, err := client.StaticLogin(ctx, token)
	if err != nil {
		logger.Error("login failed", "error", err)
		os.Exit(1)
	}
	logger.Info("logged in", "user", user.Username, "id", user.ID)

	info := client.Info()
	fmt.Printf("node: %s\ngateway: %s\nautumn: %s (enabled=%v)\n",
		info.Revolt, info.WS, info.Features.Autumn.URL, info.Features.Autumn.Enabled)

	if *channel == "" {
		return
	}

	msg, err := client.SendMessage(ctx, *channel, *content, nil)
	if err != nil {
		logger.Error("send failed", "error", err)
		os.Exit(1)
	}
	logger.Info("sent message", "id", msg.ID)

	fetched, err := client.FetchMessage(ctx, *channel, msg.ID)
	if err != nil {
		logger.Error("fetch failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("round-trip content: %q\n", fetched.Content)

	if err := client.DeleteMessage(ctx, *channel, msg.ID); err != nil {
		logger.Error("delete failed", "error", err)
		os.Exit(1)
	}
	logger.Info("cleaned up test message")
}
