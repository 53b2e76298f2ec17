package infrastructure

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/architeacher/svc-broker-link/internal/config"
	"github.com/architeacher/svc-broker-link/pkg/broker"
	"github.com/rs/zerolog"
)

const (
	formatConsole = "console"
	formatText    = "text"
)

type (
	// Logger is the service-wide structured logger.
	Logger struct {
		zerolog.Logger
	}
)

func New(cfg config.LoggingConfig) Logger {
	return newLogger(os.Stdout, cfg)
}

// NewTestLogger returns a logger that only writes errors, used to keep test output quiet.
func NewTestLogger() Logger {
	return newLogger(io.Discard, config.LoggingConfig{Level: "error", Format: "json"})
}

func newLogger(out io.Writer, cfg config.LoggingConfig) Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	writer := out

	switch strings.ToLower(cfg.Format) {
	case formatConsole, formatText:
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Logger()

	return Logger{Logger: logger}
}

// WithComponent returns a child logger tagged with the component name.
func (l Logger) WithComponent(name string) Logger {
	return Logger{Logger: l.With().Str("component", name).Logger()}
}

// Broker adapts the logger to the broker package logging interface.
func (l Logger) Broker() broker.Logger {
	return broker.NewZerologAdapter(l.Logger)
}
