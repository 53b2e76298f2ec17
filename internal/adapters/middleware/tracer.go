package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

const tracerOperation = "svc-broker-link.http"

// Tracer starts a server span per request, by default on the global tracer provider.
// The span is renamed to the matched route once routing has run.
func Tracer(opts ...otelhttp.Option) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		named := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			trace.SpanFromContext(r.Context()).SetName(r.Method + " " + routeOf(r))
		})

		handlerOpts := append([]otelhttp.Option{
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method
			}),
		}, opts...)

		return otelhttp.NewHandler(named, tracerOperation, handlerOpts...)
	}
}
