// streamtest connects to the Revolt gateway and streams events to the
// console until interrupted.
// Usage: go run ./cmd/streamtest --verbose
//
// Required environment variables:
//
//	VOLT_TOKEN - Bot token
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Gael-devv/voltgo/internal/api"
	"github.com/Gael-devv/voltgo/internal/auth"
	"github.com/Gael-devv/voltgo/internal/client"
	"github.com/Gael-devv/voltgo/internal/config"
)

func main() {
	verbose := flag.Bool("verbose", false, "print raw event types")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	tokenValue := os.Getenv("VOLT_TOKEN")
	if tokenValue == "" {
		logger.Error("VOLT_TOKEN is required")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	c := client.New(cfg, client.WithLogger(logger))

	c.On("ready", func(data ...any) {
		logger.Info("gateway ready", "cached_messages", c.Messages().Len())
	})
	c.On("message", func(data ...any) {
		if len(data) == 0 {
			return
		}
		if msg, ok := data[0].(api.Message); ok {
			fmt.Printf("[%s] %s: %s\n", msg.Channel, msg.Author, msg.Content)
		}
	})
	c.On("disconnect", func(data ...any) {
		logger.Warn("gateway disconnected")
	})
	if *verbose {
		c.On("socket_event_type", func(data ...any) {
			logger.Debug("frame", "type", fmt.Sprint(data...))
		})
	}

	if err := c.Run(ctx, auth.NewBotToken(tokenValue), true); err != nil {
		if ctx.Err() == nil {
			logger.Error("client terminated", "error", err)
			os.Exit(1)
		}
	}
	logger.Info("closed cleanly")
}
