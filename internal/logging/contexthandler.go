package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns the live attributes stamped on every record,
// such as the loaded arena and the tick count.
type ContextProvider func() []slog.Attr

// ContextHandler appends the provider's attributes to each record. Empty
// attributes are skipped, as are keys the call site already set.
type ContextHandler struct {
	next     slog.Handler
	provider ContextProvider
}

func NewContextHandler(next slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{next: next, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider == nil {
		return h.next.Handle(ctx, r)
	}
	attrs := h.provider()
	if len(attrs) == 0 {
		return h.next.Handle(ctx, r)
	}

	set := make(map[string]bool, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		set[a.Key] = true
		return true
	})
	for _, a := range attrs {
		if a.Equal(slog.Attr{}) || set[a.Key] {
			continue
		}
		if a.Value.Kind() == slog.KindString && a.Value.String() == "" {
			continue
		}
		r.AddAttrs(a)
	}
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs), provider: h.provider}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{next: h.next.WithGroup(name), provider: h.provider}
}
