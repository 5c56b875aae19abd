package loggingmw

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Skotchmaster/storefront/internal/logging"
)

// RequestLogger opens the server span of a request, puts a request scoped
// logger carrying the request and trace ids into the context and logs one
// line per request. Handler errors are rendered here so the logged status
// is the one the client saw. Requests to quiet paths are traced but not
// logged on success.
func RequestLogger(base *slog.Logger, quiet ...string) echo.MiddlewareFunc {
	quietPaths := make(map[string]struct{}, len(quiet))
	for _, p := range quiet {
		quietPaths[p] = struct{}{}
	}
	tracer := otel.Tracer("storefront/http")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			route := c.Path()

			ctx, span := tracer.Start(req.Context(), req.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", req.Method),
					attribute.String("http.route", route),
				),
			)
			defer span.End()

			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = c.Response().Header().Get(echo.HeaderXRequestID)
			}

			l := base.With(
				"method", req.Method,
				"path", route,
				"url", req.URL.Path,
				"remote_ip", c.RealIP(),
			)
			if rid != "" {
				l = l.With("request_id", rid)
			}
			if sc := span.SpanContext(); sc.IsValid() {
				l = l.With("trace_id", sc.TraceID().String())
			}
			c.SetRequest(req.WithContext(logging.IntoContext(ctx, l)))

			start := time.Now()
			err := next(c)
			dur := time.Since(start)

			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
				span.RecordError(err)
			}
			status := c.Response().Status
			span.SetAttributes(attribute.Int("http.status_code", status))
			if status >= 500 {
				span.SetStatus(codes.Error, "server error")
			}

			attrs := []any{"status", status, "duration_ms", dur.Milliseconds()}
			switch {
			case status >= 500:
				l.Error("request completed", append(attrs, "error", err)...)
			case status >= 400:
				l.Warn("request completed", append(attrs, "error", err)...)
			default:
				if _, ok := quietPaths[route]; ok {
					return nil
				}
				l.Info("request completed", append(attrs, "bytes", c.Response().Size, "user_agent", req.UserAgent())...)
			}
			return nil
		}
	}
}
