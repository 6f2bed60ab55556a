package log

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry configures the global Sentry client. The returned func flushes
// buffered events and must run before exit. An empty dsn disables Sentry
// and returns a no-op flush.
func InitSentry(dsn, environment, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if environment == "" {
		environment = "production"
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			if event.Request != nil {
				event.Request.Cookies = ""
				delete(event.Request.Headers, "Authorization")
			}
			return event
		},
	})
	if err != nil {
		return func() {}, fmt.Errorf("init sentry: %w", err)
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// SentryHandler forwards records at or above its level to Sentry and passes
// every record on to the wrapped handler.
type SentryHandler struct {
	next  slog.Handler
	hub   *sentry.Hub
	level slog.Level
	attrs []slog.Attr
}

// NewSentryHandler wraps next. A nil hub means the current global hub.
func NewSentryHandler(next slog.Handler, hub *sentry.Hub) *SentryHandler {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return &SentryHandler{next: next, hub: hub, level: slog.LevelError}
}

func (h *SentryHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SentryHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level {
		h.capture(ctx, r)
	}
	return h.next.Handle(ctx, r)
}

func (h *SentryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &SentryHandler{next: h.next.WithAttrs(attrs), hub: h.hub, level: h.level, attrs: merged}
}

func (h *SentryHandler) WithGroup(name string) slog.Handler {
	return &SentryHandler{next: h.next.WithGroup(name), hub: h.hub, level: h.level, attrs: h.attrs}
}

func (h *SentryHandler) capture(ctx context.Context, r slog.Record) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = h.hub
	}
	if hub == nil || hub.Client() == nil {
		return
	}

	extra := sentry.Context{}
	var cause error
	collect := func(a slog.Attr) bool {
		if err, ok := a.Value.Any().(error); ok && cause == nil {
			cause = err
		}
		extra[a.Key] = a.Value.String()
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		scope.SetContext("log", extra)
		for _, key := range []string{FieldComponent, FieldAccount, FieldOperation} {
			if v, ok := extra[key].(string); ok {
				scope.SetTag(key, v)
			}
		}
		if cause != nil {
			hub.CaptureException(fmt.Errorf("%s: %w", r.Message, cause))
			return
		}
		hub.CaptureMessage(r.Message)
	})
}
