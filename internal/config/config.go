// Package config assembles daemon settings from flags, an optional env file
// and the environment. A flag given on the command line always wins; an unset
// flag falls back to its environment variable, then to the built-in default.
package config

import (
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"voxchat/internal/inference"
	"voxchat/internal/ipc"
)

// InputMic selects the live microphone. Any other Input value is an audio
// file path replayed on every capture.
const InputMic = "mic"

type Config struct {
	EnvFile  string
	LogLevel string

	BaseURL        string
	Model          string
	Proxy          string
	CredentialFile string
	APIKey         string

	WhisperModel   string
	WhisperThreads int
	Language       string
	Input        string

	Voice string
	Rate  int
	Duck  bool
	Beep  string

	BusURL string
	Socket string
}

// Load parses args (without the program name). The env file is read before
// the environment is consulted; variables already set are not overridden.
func Load(args []string) (Config, error) {
	var c Config

	fs := cli.NewFlagSet("vox-daemon", cli.ContinueOnError)
	fs.StringVarP(&c.EnvFile, "env", "e", ".env", "Env file path")
	fs.StringVarP(&c.LogLevel, "log", "l", "info", "Log level")
	fs.StringVar(&c.BaseURL, "base-url", inference.DefaultBaseURL, "Chat completion endpoint base URL")
	fs.StringVarP(&c.Model, "model", "m", inference.DefaultModel, "Model identifier")
	fs.StringVarP(&c.Proxy, "proxy", "p", "", "Socks proxy address, empty for direct")
	fs.StringVar(&c.CredentialFile, "credentials", defaultCredentialFile(), "Credential file")
	fs.StringVar(&c.WhisperModel, "whisper-model", "third_party/whisper.cpp/models/ggml-medium.bin", "Whisper model path")
	fs.IntVar(&c.WhisperThreads, "whisper-threads", 0, "Whisper decoding threads, 0 for all CPUs")
	fs.StringVar(&c.Language, "lang", "en", "Recognition language, or auto")
	fs.StringVarP(&c.Input, "input", "i", InputMic, "Capture source: mic or an audio file")
	fs.StringVar(&c.Voice, "voice", "en", "espeak-ng voice")
	fs.IntVar(&c.Rate, "rate", 175, "Speech rate in words per minute")
	fs.BoolVar(&c.Duck, "duck", true, "Lower other audio streams while speaking")
	fs.StringVar(&c.Beep, "beep", "", "Sound played when listening starts")
	fs.StringVarP(&c.BusURL, "bus", "b", "", "Websocket bus URL, empty to disable")
	fs.StringVarP(&c.Socket, "socket", "s", ipc.DefaultSocketPath, "Control socket path")

	if err := fs.Parse(args); err != nil {
		return c, err
	}

	if err := godotenv.Load(c.EnvFile); err != nil {
		if fs.Changed("env") {
			return c, fmt.Errorf("load env file: %w", err)
		}
		log.Debug("No env file", "path", c.EnvFile)
	}

	envString(fs, "base-url", "VOX_BASE_URL", &c.BaseURL)
	envString(fs, "model", "VOX_MODEL", &c.Model)
	envString(fs, "proxy", "SOCKS_PROXY", &c.Proxy)
	envString(fs, "credentials", "VOX_CREDENTIALS", &c.CredentialFile)
	envString(fs, "whisper-model", "WHISPER_MODEL", &c.WhisperModel)
	envString(fs, "lang", "VOX_LANGUAGE", &c.Language)
	envString(fs, "input", "VOX_INPUT", &c.Input)
	envString(fs, "voice", "VOX_VOICE", &c.Voice)
	envString(fs, "beep", "VOX_BEEP", &c.Beep)
	envString(fs, "bus", "BUS_URL", &c.BusURL)
	envString(fs, "socket", "VOX_SOCKET", &c.Socket)

	if err := envInt(fs, "rate", "VOX_RATE", &c.Rate); err != nil {
		return c, err
	}
	if err := envInt(fs, "whisper-threads", "WHISPER_THREADS", &c.WhisperThreads); err != nil {
		return c, err
	}

	c.APIKey = os.Getenv("OPENROUTER_API_KEY")

	return c, nil
}

var logLevels = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// LogLevel maps a --log value to a slog level. Unknown names yield info and
// an error the caller should report once logging is set up.
func LogLevel(name string) (log.Level, error) {
	if l, ok := logLevels[strings.ToLower(name)]; ok {
		return l, nil
	}
	return log.LevelInfo, fmt.Errorf("unknown log level %q, using info", name)
}

func envString(fs *cli.FlagSet, flag, env string, dst *string) {
	if fs.Changed(flag) {
		return
	}
	if v, ok := os.LookupEnv(env); ok {
		*dst = v
	}
}

func envInt(fs *cli.FlagSet, flag, env string, dst *int) error {
	v := os.Getenv(env)
	if v == "" || fs.Changed(flag) {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", env, err)
	}
	*dst = n
	return nil
}

func defaultCredentialFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "vox-credentials.yaml"
	}
	return filepath.Join(dir, "vox", "credentials.yaml")
}
