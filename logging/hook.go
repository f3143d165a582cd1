package logging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sarchlab/netsync/hooking"
)

// A Hook writes every hook invocation it sees to a logger.
type Hook struct {
	logger *slog.Logger
	level  slog.Level
}

// NewHook creates a Hook that logs at level.
func NewHook(logger *slog.Logger, level slog.Level) *Hook {
	return &Hook{logger: logger, level: level}
}

// Func logs ctx.
func (h *Hook) Func(ctx hooking.HookCtx) {
	if !h.logger.Enabled(context.Background(), h.level) {
		return
	}

	attrs := []slog.Attr{
		slog.Float64("time", float64(ctx.Now)),
		slog.String("domain", domainName(ctx.Domain)),
	}

	if ctx.Item != nil {
		attrs = append(attrs, slog.String("item", fmt.Sprintf("%T", ctx.Item)))
	}

	if ctx.Detail != nil {
		attrs = append(attrs, slog.Any("detail", ctx.Detail))
	}

	h.logger.LogAttrs(context.Background(), h.level, ctx.Pos.Name, attrs...)
}

func domainName(d hooking.Hookable) string {
	if n, ok := d.(hooking.Named); ok {
		return n.Name()
	}

	return fmt.Sprintf("%T", d)
}
