package lastpass

import (
	"errors"
	"fmt"
)

// Kind classifies a failure of a LastPass operation. Kind implements error
// so that errors.Is(err, KindTimedOut) works on any wrapped *Error.
type Kind int

const (
	KindUnknown Kind = iota
	// KindUnusableCLI means the lpass binary is missing or was marked bad.
	KindUnusableCLI
	// KindRuntime means lpass exited with a non-zero code.
	KindRuntime
	// KindBadOutput means lpass output did not have the expected shape.
	KindBadOutput
	// KindSyncFailed means a created account never received a remote id.
	KindSyncFailed
	// KindCanceledByUser means the master password prompt was declined.
	KindCanceledByUser
	// KindTimedOut means lpass was killed at its deadline.
	KindTimedOut
	// KindNeedsLogin means lpass asked for "lpass login" to be run first.
	KindNeedsLogin
)

var kindNames = map[Kind]string{
	KindUnknown:        "unknown",
	KindUnusableCLI:    "unusable cli",
	KindRuntime:        "runtime failure",
	KindBadOutput:      "malformed output",
	KindSyncFailed:     "sync failed",
	KindCanceledByUser: "canceled by user",
	KindTimedOut:       "timed out",
	KindNeedsLogin:     "login required",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) Error() string {
	return "lastpass: " + k.String()
}

// Error is a classified failure of one lpass invocation.
type Error struct {
	Kind Kind
	// Op names the operation, such as "list" or "add".
	Op  string
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return "lastpass: " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the Kind of e.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return KindUnknown
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// withOp attaches op to a classified error that has none yet.
func withOp(op string, err error) error {
	var e *Error
	if errors.As(err, &e) && e.Op == "" {
		return &Error{Kind: e.Kind, Op: op, Err: e.Err}
	}
	return err
}
