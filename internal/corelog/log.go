// Package corelog provides the structured, per-subsystem logging used
// throughout actorcore. It follows the same convention as the host
// application this runtime was extracted from: a package-level logger is
// installed once at process start via UseLogger, every core component tags
// its log lines with a "subsystem" key/value pair, and call sites use the
// ctx-first, key/value structured helpers (DebugS, TraceS, InfoS, WarnS,
// ErrorS) rather than formatted strings.
package corelog

import (
	"context"
	"fmt"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
)

// backend is the process-wide logger backend. It defaults to btclog.Disabled
// so that importing actorcore never produces output unless the host
// application opts in via UseLogger.
var backend btclogv2.Logger = btclog.Disabled

// UseLogger installs l as the backend for every subsystem logger subsequently
// created by SubSystem, and for the package-level DebugS/TraceS/InfoS/WarnS/
// ErrorS helpers.
func UseLogger(l btclogv2.Logger) {
	backend = l
}

// SubSystem returns a tagged logger for the given component name (e.g.
// "MBOX", "SCHD", "SPVR"), mirroring the subsystem-tagging convention used
// throughout the host application's logging setup.
func SubSystem(tag string) btclogv2.Logger {
	return backend.SubSystem(tag)
}

// kv renders a flat key/value argument list as a single attribute string.
// Structured sinks that want real key/value pairs should install a
// btclog.Logger backed by an slog.Handler and ignore this formatting; this
// helper exists for the common case of a plain text/console backend.
func kv(msg string, keyvals ...any) string {
	if len(keyvals) == 0 {
		return msg
	}

	out := msg
	for i := 0; i+1 < len(keyvals); i += 2 {
		out += fmt.Sprintf(" %v=%v", keyvals[i], keyvals[i+1])
	}

	return out
}

// TraceS logs msg at trace level with structured key/value pairs appended.
func TraceS(_ context.Context, msg string, keyvals ...any) {
	backend.Trace(kv(msg, keyvals...))
}

// DebugS logs msg at debug level with structured key/value pairs appended.
func DebugS(_ context.Context, msg string, keyvals ...any) {
	backend.Debug(kv(msg, keyvals...))
}

// InfoS logs msg at info level with structured key/value pairs appended.
func InfoS(_ context.Context, msg string, keyvals ...any) {
	backend.Info(kv(msg, keyvals...))
}

// WarnS logs msg at warn level, folding err into the key/value tail when
// non-nil.
func WarnS(_ context.Context, msg string, err error, keyvals ...any) {
	if err != nil {
		keyvals = append(keyvals, "err", err)
	}
	backend.Warn(kv(msg, keyvals...))
}

// ErrorS logs msg at error level, folding err into the key/value tail when
// non-nil.
func ErrorS(_ context.Context, msg string, err error, keyvals ...any) {
	if err != nil {
		keyvals = append(keyvals, "err", err)
	}
	backend.Error(kv(msg, keyvals...))
}
