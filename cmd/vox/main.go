package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"
	log "log/slog"

	"voxchat/internal/bus"
	"voxchat/internal/config"
	"voxchat/internal/ui"
)

// vox renders the daemon's conversation from the websocket bus.
func main() {
	url := cli.StringP("bus", "b", "", "Websocket bus URL")
	to := cli.String("to", "ui", "Only render messages addressed to this name")
	logLevel := cli.StringP("log", "l", "debug", "Log level")
	cli.Parse()

	level, levelErr := config.LogLevel(*logLevel)
	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{Level: level})))
	if levelErr != nil {
		log.Warn("Bad --log value", "err", levelErr)
	}

	wsURL := *url
	if wsURL == "" {
		wsURL = os.Getenv("BUS_URL")
	}
	if wsURL == "" {
		wsURL = "ws://localhost:8092/ws"
	}

	b, err := bus.Dial(wsURL)
	if err != nil {
		log.Error("Failed to connect to bus", "url", wsURL, "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		b.Close()
	}()

	view := ui.NewLog(nil)
	for {
		msg, err := b.Read()
		if errors.Is(err, bus.ErrMalformed) {
			log.Warn("Skipping bus message", "err", err)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("Bus connection lost", "err", err, "closed", bus.IsClosed(err))
			if err := b.Reconnect(ctx, time.Second); err != nil {
				return
			}
			continue
		}
		if msg.To != *to {
			continue
		}

		if err := ui.Replay(view, msg); err != nil {
			log.Warn("Skipping bus message", "from", msg.From, "err", err)
		}
	}
}
