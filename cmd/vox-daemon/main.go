package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	log "log/slog"

	"voxchat/internal/audio"
	"voxchat/internal/bus"
	"voxchat/internal/chat"
	"voxchat/internal/config"
	"voxchat/internal/control"
	"voxchat/internal/credential"
	"voxchat/internal/inference"
	"voxchat/internal/ipc"
	"voxchat/internal/notify"
	"voxchat/internal/proxy"
	"voxchat/internal/session"
	"voxchat/internal/tts"
	"voxchat/internal/ui"
	"voxchat/internal/voice"
	"voxchat/pkg/stt"
)

const (
	welcomeNoKey    = "Welcome! Please configure your OpenRouter API key in settings to get started."
	welcomeNoInput  = "Speech recognition is not supported on this system."
	welcomeNoOutput = "Note: Voice output is not supported on this system."
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	level, levelErr := config.LogLevel(cfg.LogLevel)
	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: level,
	})))
	if levelErr != nil {
		log.Warn("Bad --log value", "err", levelErr)
	}

	log.Info("Booting up")

	creds, err := credential.Open(cfg.CredentialFile)
	if err != nil {
		log.Error("Failed to open credentials", "path", cfg.CredentialFile, "err", err)
		os.Exit(1)
	}
	if creds.Seed(cfg.APIKey) {
		log.Debug("Using API key from environment")
	}

	httpClient, err := proxy.NewHTTPClient(cfg.Proxy)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", cfg.Proxy, "err", err)
		os.Exit(1)
	}

	llm := inference.NewClient(creds, inference.Options{
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		HTTPClient: httpClient,
	})

	log.Debug("Loaded inference client", "base", cfg.BaseURL, "model", cfg.Model)

	in, closeInput := openInput(cfg)
	defer closeInput()

	out := openOutput(cfg)

	presenters := ui.Multi{ui.NewLog(nil), ui.NewDesktop()}
	if cfg.BusURL != "" {
		b, err := bus.Dial(cfg.BusURL)
		if err != nil {
			log.Warn("Bus unavailable, continuing without it", "url", cfg.BusURL, "err", err)
		} else {
			defer b.Close()
			presenters = append(presenters, ui.NewBus(b, "vox", "ui"))
		}
	}

	sess := session.New(in, out, llm, presenters)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx) }()

	d := control.NewDispatcher(sess, creds, presenters)
	srv, err := ipc.StartServer(cfg.Socket, d.Dispatch)
	if err != nil {
		log.Error("Failed ipc server", "socket", cfg.Socket, "err", err)
		os.Exit(1)
	}
	defer srv.Close()

	if creds.Get() == "" {
		presenters.MessageAppended(chat.RoleAssistant, welcomeNoKey)
	}
	if !in.Supported() {
		presenters.ErrorShown(welcomeNoInput)
	}
	if !out.Supported() {
		presenters.MessageAppended(chat.RoleAssistant, welcomeNoOutput)
	}

	log.Info("Boot up - successful", "socket", cfg.Socket)

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Session stopped", "err", err)
	}
	if out.Speaking() {
		log.Debug("Cutting speech short")
		out.Cancel()
	}
	// portaudio must not be terminated under a capture that is still unwinding
	in.Wait()

	log.Info("Shutting down")
}

// openInput builds the capture side. A missing microphone or model leaves the
// adapter unsupported instead of aborting the daemon.
func openInput(cfg config.Config) (*voice.Input, func()) {
	var (
		rec     voice.Recorder
		closers []func()
	)

	if cfg.Input == config.InputMic {
		mic := audio.NewMic()
		if err := mic.Init(); err != nil {
			log.Error("Failed to init audio", "err", err)
		} else {
			rec = mic
			closers = append(closers, mic.Close)
		}
	} else {
		rec = audio.File{Path: cfg.Input}
		log.Info("Replaying audio file on capture", "path", cfg.Input)
	}

	var tr voice.Transcriber
	whisper, err := stt.NewTranscriber(cfg.WhisperModel, stt.Options{
		Language: cfg.Language,
		Threads:  cfg.WhisperThreads,
	})
	if err != nil {
		log.Error("Failed to init whisper", "model", cfg.WhisperModel, "err", err)
	} else {
		tr = whisper
		closers = append(closers, func() { whisper.Close() })
	}

	in := voice.NewInput(rec, tr)
	if cfg.Beep != "" {
		in.OnStart = func() {
			if err := notify.Beep(cfg.Beep); err != nil {
				log.Warn("Beep failed", "path", cfg.Beep, "err", err)
			}
		}
	}

	return in, func() {
		for _, c := range closers {
			c()
		}
	}
}

// openOutput loads espeak-ng right away; if it cannot start, the output is
// unsupported and the welcome notice says so.
func openOutput(cfg config.Config) *voice.Output {
	var duck voice.Ducker
	if cfg.Duck {
		duck = audio.NewDucker([]string{"vox-daemon", "eSpeak", "espeak-ng"}, 10)
	}

	return voice.NewOutput(tts.NewEspeak(cfg.Voice, cfg.Rate), duck)
}
