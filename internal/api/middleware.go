package api

import (
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// accessLog returns middleware that logs one line per request once the
// handler has finished.
func accessLog(logger *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()
		next(ctx)

		u := ctx.URL()
		attrs := []slog.Attr{
			slog.String("method", ctx.Method()),
			slog.String("path", u.Path),
			slog.Int("status", ctx.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("remote_addr", ctx.RemoteAddr()),
		}
		if q := redactQuery(u); q != "" {
			attrs = append(attrs, slog.String("query", q))
		}
		if src := ctx.Header("X-Control-Source"); src != "" {
			attrs = append(attrs, slog.String("source", src))
		}
		if ua := ctx.Header("User-Agent"); ua != "" {
			attrs = append(attrs, slog.String("user_agent", ua))
		}
		if strings.HasPrefix(ctx.Header("Accept"), "text/event-stream") {
			attrs = append(attrs, slog.Bool("stream", true))
		}

		logger.LogAttrs(ctx.Context(), requestLevel(ctx.Method(), u.Path, ctx.Status()), "HTTP request completed", attrs...)
	}
}

// requestLevel keeps probes and preflights at debug and raises failures.
func requestLevel(method, path string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case method == "OPTIONS", path == "/api/health":
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// redactQuery hides the auth parameter event stream clients may pass.
func redactQuery(u url.URL) string {
	if u.RawQuery == "" {
		return ""
	}
	q := u.Query()
	if q.Has("auth") {
		q.Set("auth", "REDACTED")
	}
	return q.Encode()
}
