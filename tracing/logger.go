package tracing

import (
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/mcengine/api"
)

// Logger writes a line when a kernel starts and when it ends.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a Logger. A nil logger means slog.Default().
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}

	return &Logger{logger: logger}
}

// Func implements sim.Hook.
func (l *Logger) Func(ctx sim.HookCtx) {
	cmd, ok := ctx.Item.(*api.Command)
	if !ok {
		return
	}

	s := spanOf(cmd)

	switch ctx.Pos {
	case api.HookPosKernelLaunch:
		l.logger.Info("kernel start",
			"Kernel", s.Kernel,
			"Kind", s.Kind.Name(),
			"Iteration", s.Iteration,
			"Slot", s.Slot,
			"Instance", cmd.Instance,
			"TimeNs", nanoseconds(s.Start),
		)
	case api.HookPosKernelComplete:
		args := []any{
			"Kernel", s.Kernel,
			"Kind", s.Kind.Name(),
			"Iteration", s.Iteration,
			"Slot", s.Slot,
			"TimeNs", nanoseconds(s.End),
			"ExecTimeNs", nanoseconds(s.Duration()),
		}

		if s.Err != "" {
			l.logger.Error("kernel end", append(args, "Err", s.Err)...)
			return
		}

		l.logger.Info("kernel end", args...)
	}
}
