package corelog

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
	"github.com/stretchr/testify/require"
)

func TestHandlerSetFansOutToEveryHandler(t *testing.T) {
	var bufA, bufB bytes.Buffer

	set := NewHandlerSet(
		btclogv2.NewDefaultHandler(&bufA),
		btclogv2.NewDefaultHandler(&bufB),
	)

	logger := btclogv2.NewSLogger(set)
	logger.Infof("hello %s", "world")

	require.Contains(t, bufA.String(), "hello world")
	require.Contains(t, bufB.String(), "hello world")
}

func TestHandlerSetSetLevelAppliesToEveryHandler(t *testing.T) {
	var buf bytes.Buffer

	set := NewHandlerSet(btclogv2.NewDefaultHandler(&buf))
	set.SetLevel(btclog.LevelError)
	require.Equal(t, btclog.LevelError, set.Level())

	logger := btclogv2.NewSLogger(set)
	logger.Infof("should be suppressed")
	logger.Errorf("should appear")

	require.NotContains(t, buf.String(), "should be suppressed")
	require.Contains(t, buf.String(), "should appear")
}

func TestHandlerSetSubSystemReturnsUsableHandler(t *testing.T) {
	var buf bytes.Buffer

	set := NewHandlerSet(btclogv2.NewDefaultHandler(&buf))
	tagged := set.SubSystem("TEST")

	logger := btclogv2.NewSLogger(tagged)
	logger.Infof("tagged line")

	require.Contains(t, buf.String(), "tagged line")
}

func TestHandlerSetWithPrefixPrependsToMessages(t *testing.T) {
	var buf bytes.Buffer

	set := NewHandlerSet(btclogv2.NewDefaultHandler(&buf))
	prefixed := set.WithPrefix("PFX")

	logger := btclogv2.NewSLogger(prefixed)
	logger.Infof("prefixed line")

	require.Contains(t, buf.String(), "prefixed line")
}
