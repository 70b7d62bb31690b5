// Package log provides a slog.Handler wrapper that keeps crawl logs
// readable: long attribute values such as full URLs, HTML snippets,
// and error bodies are truncated before reaching the underlying
// handler, so a single hostile page cannot flood the log output.
package log

import (
	"context"
	"log/slog"
)

// DefaultMaxValueLen is the attribute-value length cap applied when no
// explicit limit is given. 500 runes keeps full URLs readable while
// cutting off page bodies.
const DefaultMaxValueLen = 500

// Ellipsis marks a truncated value.
const Ellipsis = "..."

// TruncatingHandler wraps an slog.Handler and caps the length of every
// string attribute value. It implements slog.Handler and works with
// any underlying handler (text, JSON).
type TruncatingHandler struct {
	handler slog.Handler
	maxLen  int
}

// NewTruncatingHandler creates a TruncatingHandler wrapping the given
// handler. If handler is nil, slog.Default().Handler() is used.
// If maxLen is not positive, DefaultMaxValueLen applies.
func NewTruncatingHandler(handler slog.Handler, maxLen int) *TruncatingHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxValueLen
	}
	return &TruncatingHandler{handler: handler, maxLen: maxLen}
}

// Enabled reports whether the underlying handler handles records at
// the given level.
func (h *TruncatingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle truncates oversized attribute values and forwards the record.
func (h *TruncatingHandler) Handle(ctx context.Context, record slog.Record) error {
	out := slog.NewRecord(record.Time, record.Level, h.truncate(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.truncateAttr(a))
		return true
	})
	return h.handler.Handle(ctx, out)
}

// WithAttrs returns a new TruncatingHandler whose underlying handler
// carries the given attributes.
func (h *TruncatingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	truncated := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		truncated[i] = h.truncateAttr(a)
	}
	return &TruncatingHandler{handler: h.handler.WithAttrs(truncated), maxLen: h.maxLen}
}

// WithGroup returns a new TruncatingHandler with the given group name.
func (h *TruncatingHandler) WithGroup(name string) slog.Handler {
	return &TruncatingHandler{handler: h.handler.WithGroup(name), maxLen: h.maxLen}
}

func (h *TruncatingHandler) truncateAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.truncate(a.Value.String()))
	case slog.KindGroup:
		members := a.Value.Group()
		out := make([]any, 0, len(members))
		for _, m := range members {
			out = append(out, h.truncateAttr(m))
		}
		return slog.Group(a.Key, out...)
	default:
		return a
	}
}

func (h *TruncatingHandler) truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= h.maxLen {
		return s
	}
	return string(runes[:h.maxLen]) + Ellipsis
}
