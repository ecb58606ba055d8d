package logging

import (
	"context"
	"log/slog"
)

// mirrorHandler sends every record to a primary handler and a mirror
// handler, typically the terminal and a JSON log file. Errors from the
// mirror are dropped; the primary's error is returned.
type mirrorHandler struct {
	primary slog.Handler
	mirror  slog.Handler
}

func newMirrorHandler(primary, mirror slog.Handler) slog.Handler {
	return &mirrorHandler{primary: primary, mirror: mirror}
}

func (h *mirrorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level) || h.mirror.Enabled(ctx, level)
}

func (h *mirrorHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.mirror.Enabled(ctx, r.Level) {
		_ = h.mirror.Handle(ctx, r.Clone())
	}
	if !h.primary.Enabled(ctx, r.Level) {
		return nil
	}
	return h.primary.Handle(ctx, r)
}

func (h *mirrorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &mirrorHandler{primary: h.primary.WithAttrs(attrs), mirror: h.mirror.WithAttrs(attrs)}
}

func (h *mirrorHandler) WithGroup(name string) slog.Handler {
	return &mirrorHandler{primary: h.primary.WithGroup(name), mirror: h.mirror.WithGroup(name)}
}
