package corelog

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
	"github.com/stretchr/testify/require"
)

func installBuffer(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	UseLogger(btclogv2.NewSLogger(btclogv2.NewDefaultHandler(&buf)))
	t.Cleanup(func() { UseLogger(btclog.Disabled) })

	return &buf
}

func TestSubSystemTagsEveryLine(t *testing.T) {
	buf := installBuffer(t)

	SubSystem("TEST").Infof("hello from subsystem")

	require.Contains(t, buf.String(), "hello from subsystem")
}

func TestStructuredHelpersAppendKeyValuePairs(t *testing.T) {
	buf := installBuffer(t)

	DebugS(context.Background(), "debug line", "actor_id", 7)
	InfoS(context.Background(), "info line", "name", "sys")
	TraceS(context.Background(), "trace line", "n", 1)

	out := buf.String()
	require.Contains(t, out, "debug line actor_id=7")
	require.Contains(t, out, "info line name=sys")
}

func TestWarnSAndErrorSFoldErrIntoKeyValues(t *testing.T) {
	buf := installBuffer(t)

	WarnS(context.Background(), "warn line", errors.New("boom"))
	ErrorS(context.Background(), "error line", errors.New("bang"), "retry", 2)

	out := buf.String()
	require.Contains(t, out, "warn line err=boom")
	require.Contains(t, out, "error line retry=2 err=bang")
}

func TestWarnSAndErrorSOmitErrWhenNil(t *testing.T) {
	buf := installBuffer(t)

	WarnS(context.Background(), "clean warn", nil)
	ErrorS(context.Background(), "clean error", nil)

	out := buf.String()
	require.Contains(t, out, "clean warn")
	require.NotContains(t, out, "clean warn err=")
	require.Contains(t, out, "clean error")
	require.NotContains(t, out, "clean error err=")
}
