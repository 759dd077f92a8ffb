package log

import (
	"context"
	"io"
	"log/slog"
)

type slogKeyT struct{}

var slogKey slogKeyT

// ContextHandler adds attributes stored in a context by ContextAttrs to every
// record handled with that context.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(handler slog.Handler) ContextHandler {
	return ContextHandler{
		Handler: handler,
	}
}

func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if a, ok := ctx.Value(slogKey).([]slog.Attr); ok {
		r.AddAttrs(a...)
	}

	return h.Handler.Handle(ctx, r)
}

func (h ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h ContextHandler) WithGroup(name string) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithGroup(name)}
}

// ContextAttrs returns a copy of ctx carrying attrs on top of the ones already
// stored in it.
func ContextAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	a, _ := ctx.Value(slogKey).([]slog.Attr)
	merged := make([]slog.Attr, 0, len(a)+len(attrs))
	merged = append(merged, a...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, slogKey, merged)
}

// New returns a JSON logger writing to w. Debug records are kept only when
// verbose is set.
func New(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	base := slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: false,
		Level:     level,
	})
	return slog.New(NewContextHandler(base))
}
