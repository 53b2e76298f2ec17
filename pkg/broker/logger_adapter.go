package broker

import (
	"time"

	"github.com/rs/zerolog"
)

// NewZerologAdapter adapts a zerolog logger to the broker Logger interface.
func NewZerologAdapter(logger zerolog.Logger) Logger {
	return zerologAdapter{logger: logger}
}

// NopLogger returns a logger that discards everything.
func NopLogger() Logger {
	return zerologAdapter{logger: zerolog.Nop()}
}

type zerologAdapter struct {
	logger zerolog.Logger
}

func (z zerologAdapter) Debug() LogEvent { return zerologEvent{event: z.logger.Debug()} }
func (z zerologAdapter) Info() LogEvent  { return zerologEvent{event: z.logger.Info()} }
func (z zerologAdapter) Warn() LogEvent  { return zerologEvent{event: z.logger.Warn()} }
func (z zerologAdapter) Error() LogEvent { return zerologEvent{event: z.logger.Error()} }

// zerologEvent wraps a possibly nil event; zerolog returns nil for disabled levels and its methods tolerate that.
type zerologEvent struct {
	event *zerolog.Event
}

func (e zerologEvent) Msg(msg string) {
	e.event.Msg(msg)
}

func (e zerologEvent) Err(err error) LogEvent {
	return zerologEvent{event: e.event.Err(err)}
}

func (e zerologEvent) Str(key, value string) LogEvent {
	return zerologEvent{event: e.event.Str(key, value)}
}

func (e zerologEvent) Int(key string, value int) LogEvent {
	return zerologEvent{event: e.event.Int(key, value)}
}

func (e zerologEvent) Dur(key string, value time.Duration) LogEvent {
	return zerologEvent{event: e.event.Dur(key, value)}
}
