// Package config reads daemon and tool settings from flags and an env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	log "log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"

	"mitravox/internal/lang"
)

const DefaultSocket = "/tmp/vox.sock"

const (
	AnswerLLM    = "llm"
	AnswerStatic = "static"

	NotifyDesktop = "desktop"
	NotifyLog     = "log"
)

type Config struct {
	EnvFile  string
	LogLevel string
	Language lang.Code

	Model   string // whisper ggml model
	Earcon  string
	Answer  string // llm | static
	GPT     string // chat model name
	Proxy   string // socks5 address, empty for direct
	BusURL  string // empty disables the bus
	Metrics string // listen address, empty disables /metrics
	Socket  string
	Notify  string // desktop | log

	APIKey string

	rawLang string
}

var logLevels = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// New binds every setting to a fresh flag set. Callers may add their own
// flags before calling Load.
func New(name string) (*Config, *cli.FlagSet) {
	cfg := &Config{}
	fl := cli.NewFlagSet(name, cli.ContinueOnError)

	fl.StringVarP(&cfg.EnvFile, "env", "e", ".env", "Env file path")
	fl.StringVarP(&cfg.LogLevel, "log", "l", "info", "Log level (debug|info|warn|error)")
	fl.StringVarP(&cfg.rawLang, "lang", "L", "en", "Assistant language (en|hi|te)")
	fl.StringVarP(&cfg.Model, "model", "m", "third_party/whisper.cpp/models/ggml-medium.bin", "Whisper model path")
	fl.StringVar(&cfg.Earcon, "earcon", "", "MP3 played before listening")
	fl.StringVarP(&cfg.Answer, "answer", "a", AnswerLLM, "Answer backend (llm|static)")
	fl.StringVar(&cfg.GPT, "gpt", "gpt-5-nano", "Chat completion model")
	fl.StringVarP(&cfg.Proxy, "proxy", "p", "", "Socks Proxy Address")
	fl.StringVarP(&cfg.BusURL, "url", "u", "", "Url of hub")
	fl.StringVar(&cfg.Metrics, "metrics", "", "Prometheus listen address")
	fl.StringVarP(&cfg.Socket, "socket", "s", DefaultSocket, "Control socket path")
	fl.StringVar(&cfg.Notify, "notify", NotifyDesktop, "Toast backend (desktop|log)")

	return cfg, fl
}

// Load parses args, reads the env file and validates the result. A missing
// env file is not an error.
func (cfg *Config) Load(fl *cli.FlagSet, args []string) error {
	if err := fl.Parse(args); err != nil {
		return err
	}

	if err := godotenv.Load(cfg.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env %s: %w", cfg.EnvFile, err)
	}
	cfg.APIKey = os.Getenv("OPENAI_API_KEY")

	return cfg.validate()
}

func (cfg *Config) validate() error {
	c, err := lang.Parse(cfg.rawLang)
	if err != nil {
		return err
	}
	cfg.Language = c

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if _, ok := logLevels[cfg.LogLevel]; !ok {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}

	switch cfg.Answer {
	case AnswerLLM:
		if cfg.APIKey == "" {
			return errors.New("OPENAI_API_KEY not set")
		}
	case AnswerStatic:
	default:
		return fmt.Errorf("unknown answer backend %q", cfg.Answer)
	}

	switch cfg.Notify {
	case NotifyDesktop, NotifyLog:
	default:
		return fmt.Errorf("unknown notifier %q", cfg.Notify)
	}

	return nil
}

// Logger is the colored console logger used by the binaries.
func (cfg *Config) Logger(w io.Writer) *log.Logger {
	return log.New(tint.NewHandler(w, &tint.Options{
		Level: logLevels[cfg.LogLevel],
	}))
}
