package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type AccessLogger struct {
	logger             zerolog.Logger
	includeQueryParams bool
}

func NewAccessLogger(logger zerolog.Logger, includeQueryParams bool) *AccessLogger {
	return &AccessLogger{
		logger:             logger.With().Str("component", "http_access").Logger(),
		includeQueryParams: includeQueryParams,
	}
}

func (a *AccessLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skip, ok := r.Context().Value(skipAccessLogKey).(bool); ok && skip {
			next.ServeHTTP(w, r)

			return
		}

		startTime := time.Now()
		wrapped := NewRecordingResponseWriter(w)

		next.ServeHTTP(wrapped, r)

		duration := time.Since(startTime)

		event := a.eventFor(wrapped.StatusCode()).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Str("user_agent", r.UserAgent()).
			Str("proto", r.Proto).
			Str("host", r.Host).
			Int("status_code", wrapped.StatusCode()).
			Int64("response_size_bytes", wrapped.BytesWritten()).
			Dur("duration", duration).
			Float64("duration_ms", float64(duration.Microseconds())/1000)

		if a.includeQueryParams {
			event.Str("query", r.URL.RawQuery)
		}

		if requestID := requestIDOf(r); requestID != "" {
			event.Str("request_id", requestID)
		}

		if traceID := traceIDOf(r); traceID != "" {
			event.Str("trace_id", traceID)
		}

		if referer := r.Referer(); referer != "" {
			event.Str("referer", referer)
		}

		event.Msg("HTTP request completed")
	})
}

func (a *AccessLogger) eventFor(status int) *zerolog.Event {
	switch {
	case status >= http.StatusInternalServerError:
		return a.logger.Error()
	case status >= http.StatusBadRequest:
		return a.logger.Warn()
	default:
		return a.logger.Info()
	}
}

func requestIDOf(r *http.Request) string {
	if id := chimiddleware.GetReqID(r.Context()); id != "" {
		return id
	}

	return r.Header.Get("X-Request-ID")
}

func traceIDOf(r *http.Request) string {
	if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}

	return r.Header.Get("X-Trace-ID")
}
