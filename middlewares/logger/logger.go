// Package logger provides a built-in middleware.Middleware that emits a
// structured log line for every invocation's pre- and post-phase, on both
// the actor-call and capability-call paths. It has a config-driven log
// level, registers its factory via blank import, and builds each log line
// from internal/logging.FromContext.
package logger

import (
	"context"
	"log/slog"

	"github.com/ferro-labs/caphost/internal/logging"
	"github.com/ferro-labs/caphost/invocation"
	"github.com/ferro-labs/caphost/middleware"
)

func init() {
	middleware.RegisterFactory("logger", newFromSettings)
}

func newFromSettings(settings map[string]any) (middleware.Middleware, error) {
	level := slog.LevelInfo
	if l, ok := settings["level"].(string); ok {
		switch l {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	return &Logger{level: level}, nil
}

// Logger logs every invocation at each of the four hook points. It never
// transforms the value it is handed and never returns an error, so it can
// never itself trigger the host's non-fatal middleware-failure path.
type Logger struct {
	level slog.Level
}

func (l *Logger) log(msg string, args ...any) {
	logging.FromContext(context.Background()).Log(context.Background(), l.level, msg, args...)
}

func (l *Logger) ActorPreInvoke(inv invocation.Invocation) (invocation.Invocation, error) {
	l.log("actor pre-invoke", "origin", inv.Origin, "target", inv.Target.String(), "operation", inv.Operation)
	return inv, nil
}

func (l *Logger) ActorPostInvoke(resp invocation.InvocationResponse) (invocation.InvocationResponse, error) {
	l.log("actor post-invoke", "invocation_id", resp.InvocationID, "error", resp.Error)
	return resp, nil
}

func (l *Logger) CapabilityPreInvoke(inv invocation.Invocation) (invocation.Invocation, error) {
	l.log("capability pre-invoke", "origin", inv.Origin, "target", inv.Target.String(), "operation", inv.Operation)
	return inv, nil
}

func (l *Logger) CapabilityPostInvoke(resp invocation.InvocationResponse) (invocation.InvocationResponse, error) {
	l.log("capability post-invoke", "invocation_id", resp.InvocationID, "error", resp.Error)
	return resp, nil
}
