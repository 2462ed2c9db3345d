package actor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPidStringRoundTripsLocal(t *testing.T) {
	pid := NewLocalPid("local", ActorPath{1, 2, 3})

	s := pid.String()
	require.Equal(t, "actor://local/1/2/3", s)

	parsed, err := ParsePid(s)
	require.NoError(t, err)
	require.Equal(t, pid, parsed)
	require.False(t, parsed.IsRemote())
}

func TestPidStringRoundTripsRemoteWithPort(t *testing.T) {
	pid := NewRemotePid("remote-sys", "10.0.0.5", 4242, ActorPath{7})

	s := pid.String()
	require.Equal(t, "actor://remote-sys@10.0.0.5:4242/7", s)

	parsed, err := ParsePid(s)
	require.NoError(t, err)
	require.Equal(t, pid, parsed)
	require.True(t, parsed.IsRemote())
}

func TestPidStringRoundTripsWithTag(t *testing.T) {
	pid := NewLocalPid("sys", ActorPath{9}).WithTag("worker")

	s := pid.String()
	require.Equal(t, "actor://sys/9#worker", s)

	parsed, err := ParsePid(s)
	require.NoError(t, err)
	require.Equal(t, pid, parsed)
}

func TestPidRemoteWithoutPort(t *testing.T) {
	pid := NewRemotePid("sys", "host.example", 0, ActorPath{1})
	s := pid.String()
	require.Equal(t, "actor://sys@host.example/1", s)

	parsed, err := ParsePid(s)
	require.NoError(t, err)
	require.Equal(t, pid, parsed)
}

func TestParsePidRejectsMissingScheme(t *testing.T) {
	_, err := ParsePid("not-a-pid")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrPidParse)

	var parseErr *PidParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestParsePidRejectsMissingPath(t *testing.T) {
	_, err := ParsePid("actor://sys")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrPidParse)
}

func TestParsePidRejectsNonNumericSegment(t *testing.T) {
	_, err := ParsePid("actor://sys/abc")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidPathSegment)
}

func TestParsePidRejectsBadPort(t *testing.T) {
	_, err := ParsePid("actor://sys@host:notaport/1")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidPort)
}

func TestPidKeyIgnoresTag(t *testing.T) {
	a := NewLocalPid("sys", ActorPath{1}).WithTag("one")
	b := NewLocalPid("sys", ActorPath{1}).WithTag("two")

	require.Equal(t, a.key(), b.key())
}
