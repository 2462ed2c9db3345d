package actor

import (
	"fmt"
	"strconv"
	"strings"
)

// Pid addresses a single actor: actor://<system>[@<host>[:<port>]]/<id1>/.../<idN>[#<tag>]
// (spec §4.9). The system segment names the owning ActorSystem; host/port
// are present only for a Pid that addresses a Remote actor; the path is the
// same slash-joined ActorId sequence as ActorPath; the optional tag is a
// free-form diagnostic label (e.g. a behavior name) carried for display
// only and never consulted by resolution.
type Pid struct {
	System string
	Host    string
	Port    uint16
	HasHost bool
	Path    ActorPath
	Tag     string
	HasTag  bool
}

// NewLocalPid builds a Pid with no host/port component, addressing an actor
// within the local system.
func NewLocalPid(system string, path ActorPath) Pid {
	return Pid{System: system, Path: path}
}

// NewRemotePid builds a Pid addressing an actor hosted by a remote system.
func NewRemotePid(system, host string, port uint16, path ActorPath) Pid {
	return Pid{System: system, Host: host, Port: port, HasHost: true, Path: path}
}

// WithTag returns a copy of p carrying the given diagnostic tag.
func (p Pid) WithTag(tag string) Pid {
	p.Tag = tag
	p.HasTag = true

	return p
}

// IsRemote reports whether p carries a host component.
func (p Pid) IsRemote() bool {
	return p.HasHost
}

// String renders the Pid in its canonical URI form.
func (p Pid) String() string {
	var b strings.Builder

	b.WriteString("actor://")
	b.WriteString(p.System)

	if p.HasHost {
		b.WriteByte('@')
		b.WriteString(p.Host)

		if p.Port != 0 {
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(int(p.Port)))
		}
	}

	b.WriteByte('/')
	b.WriteString(p.Path.String())

	if p.HasTag {
		b.WriteByte('#')
		b.WriteString(p.Tag)
	}

	return b.String()
}

// ParsePid parses s in the actor://<system>[@<host>[:<port>]]/<id1>/.../<idN>[#<tag>]
// grammar. Every path segment must be a valid decimal ActorId.
func ParsePid(s string) (Pid, error) {
	const scheme = "actor://"

	if !strings.HasPrefix(s, scheme) {
		return Pid{}, &PidParseError{Input: s, Cause: ErrPidParse, Segment: s}
	}

	rest := s[len(scheme):]

	var tag string
	var hasTag bool
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		tag = rest[i+1:]
		hasTag = true
		rest = rest[:i]
	}

	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return Pid{}, &PidParseError{
			Input: s, Segment: rest, Cause: ErrPidParse,
		}
	}

	authority := rest[:slash]
	pathPart := rest[slash+1:]

	var (
		system  string
		host    string
		port    uint16
		hasHost bool
	)

	if at := strings.IndexByte(authority, '@'); at >= 0 {
		system = authority[:at]
		hostPort := authority[at+1:]
		hasHost = true

		if colon := strings.IndexByte(hostPort, ':'); colon >= 0 {
			host = hostPort[:colon]
			portStr := hostPort[colon+1:]

			p, err := strconv.ParseUint(portStr, 10, 16)
			if err != nil {
				return Pid{}, &PidParseError{
					Input: s, Segment: portStr, Cause: ErrInvalidPort,
				}
			}
			port = uint16(p)
		} else {
			host = hostPort
		}
	} else {
		system = authority
	}

	var path ActorPath
	if pathPart != "" {
		segs := strings.Split(pathPart, "/")
		path = make(ActorPath, len(segs))

		for i, seg := range segs {
			v, err := strconv.ParseUint(seg, 10, 64)
			if err != nil {
				return Pid{}, &PidParseError{
					Input: s, Segment: seg, Cause: ErrInvalidPathSegment,
				}
			}
			path[i] = ActorId(v)
		}
	}

	return Pid{
		System:  system,
		Host:    host,
		Port:    port,
		HasHost: hasHost,
		Path:    path,
		Tag:     tag,
		HasTag:  hasTag,
	}, nil
}

// key returns a value usable as a map key for registry lookups: the
// authority and path, ignoring the purely-diagnostic tag.
func (p Pid) key() string {
	return fmt.Sprintf("%s@%s:%d/%s", p.System, p.Host, p.Port, p.Path.String())
}
