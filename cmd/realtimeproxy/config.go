package main

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	gohttp "github.com/panyam/rtproxy/http"
	"github.com/panyam/rtproxy/upstream"
)

// Config holds the server configuration, read from the environment.
type Config struct {
	// Listener
	Host   string `env:"HOST"    envDefault:"0.0.0.0"`
	Port   int    `env:"PORT"    envDefault:"8000"`
	WSPath string `env:"WS_PATH" envDefault:"/ws"`

	// Upstream. The key is removed from the environment once read.
	APIKey           string        `env:"OPENAI_API_KEY,required,unset"`
	UpstreamURL      string        `env:"UPSTREAM_URL"      envDefault:"wss://api.openai.com/v1/realtime"`
	UpstreamModel    string        `env:"UPSTREAM_MODEL"    envDefault:"gpt-4o-realtime-preview-2024-10-01"`
	HandshakeTimeout time.Duration `env:"HANDSHAKE_TIMEOUT" envDefault:"10s"`

	// Sessions
	ReadLimit       int64         `env:"READ_LIMIT"       envDefault:"0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Observability
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	AccessLog bool   `env:"ACCESS_LOG" envDefault:"false"`
}

// LoadConfig parses the environment described by opts.
func LoadConfig(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT %d", cfg.Port)
	}
	if !strings.HasPrefix(cfg.WSPath, "/") {
		return Config{}, fmt.Errorf("WS_PATH must start with '/', got %q", cfg.WSPath)
	}
	if cfg.ReadLimit < 0 {
		return Config{}, fmt.Errorf("invalid READ_LIMIT %d", cfg.ReadLimit)
	}
	return cfg, nil
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) SessionConfig() *gohttp.SessionConfig {
	sc := gohttp.DefaultSessionConfig()
	sc.ReadLimit = c.ReadLimit
	return sc
}

func (c Config) UpstreamConfig() upstream.Config {
	uc := upstream.DefaultConfig()
	uc.URL = c.UpstreamURL
	uc.Model = c.UpstreamModel
	uc.HandshakeTimeout = c.HandshakeTimeout
	uc.Session = c.SessionConfig()
	return uc
}

func newLogger(level, format string, w io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
