package teleop

import (
	"errors"
	"fmt"
)

// Kind classifies a teleoperation failure. Every error surfaced by this
// package carries exactly one Kind; callers map kinds to their own error
// representation (the HTTP layer maps them to status codes).
type Kind int

const (
	KindUnknown Kind = iota
	KindConnectFailed
	KindConnectionRejected
	KindAuthFailed
	KindToolLaunchTimeout
	KindControlGrantTimeout
	KindNoActiveSession
	KindInvalidParameter
	KindWriteFailed
	KindCommandFailed
)

func (k Kind) String() string {
	switch k {
	case KindConnectFailed:
		return "connect_failed"
	case KindConnectionRejected:
		return "connection_rejected"
	case KindAuthFailed:
		return "auth_failed"
	case KindToolLaunchTimeout:
		return "tool_launch_timeout"
	case KindControlGrantTimeout:
		return "control_grant_timeout"
	case KindNoActiveSession:
		return "no_active_session"
	case KindInvalidParameter:
		return "invalid_parameter"
	case KindWriteFailed:
		return "write_failed"
	case KindCommandFailed:
		return "command_failed"
	default:
		return "unknown"
	}
}

// Failure is a typed teleoperation error with a human-readable reason.
type Failure struct {
	Kind   Kind
	Reason string
}

func (f *Failure) Error() string {
	return f.Reason
}

// failf builds a Failure with a formatted reason.
func failf(kind Kind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from an error chain. Errors not produced by
// this package report KindUnknown.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}
