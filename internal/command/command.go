// Package command runs one external program per invocation. Output is
// delivered to callbacks as it arrives, callbacks may answer on the
// program's input stream, and an optional deadline bounds the run.
package command

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// KilledCode is the exit code reported when the process was killed, either
// because its deadline elapsed or because a handler aborted the run.
const KilledCode = -1

var (
	// ErrLaunch is matched by every *LaunchError.
	ErrLaunch = errors.New("command: launch failed")
	// ErrInputClosed is returned by Write once CloseInput has been called.
	ErrInputClosed = errors.New("command: input closed")
	// ErrNotStarted is returned by Write before the process was launched.
	ErrNotStarted = errors.New("command: not started")
)

// LaunchError reports that the program could not be started at all, as
// opposed to a program that started and exited with a non-zero code.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() []error {
	return []error{ErrLaunch, e.Err}
}

// Output is the immutable record of a finished run.
type Output struct {
	Stdout     []byte
	Stderr     []byte
	ReturnCode int
	TimedOut   bool
}

// Handler receives one chunk of output. Returned bytes are written to the
// process input; a returned error aborts the run and is reported by Run.
type Handler func(data []byte) ([]byte, error)

// Command describes one process invocation. A Command runs once.
type Command struct {
	// Path is the executable to launch.
	Path string
	// Args excludes the program name.
	Args []string
	// Env is the complete environment of the process. A nil map inherits
	// the environment of the current process.
	Env map[string]string

	HandleStdout Handler
	HandleStderr Handler
	// HandleTermination is called exactly once per launched run with the
	// final exit code, or KilledCode.
	HandleTermination func(code int)

	// Deadline kills the process when reached. Zero means no deadline.
	Deadline time.Time

	// DidLaunch runs right after the process started. It is the place to
	// queue a one-shot payload with Write and then CloseInput.
	DidLaunch func(c *Command)

	mu    sync.Mutex
	input *inputWriter
}

// Write queues data for the process input. Writes are performed in order
// by a single goroutine.
func (c *Command) Write(data []byte) error {
	c.mu.Lock()
	in := c.input
	c.mu.Unlock()
	if in == nil {
		return ErrNotStarted
	}
	return in.write(data)
}

// CloseInput closes the process input after every queued write. It is safe
// to call more than once.
func (c *Command) CloseInput() {
	c.mu.Lock()
	in := c.input
	c.mu.Unlock()
	if in != nil {
		in.close()
	}
}

func (c *Command) interactive() bool {
	return c.DidLaunch != nil || c.HandleStdout != nil || c.HandleStderr != nil
}

func (c *Command) environ() []string {
	if c.Env == nil {
		return nil
	}
	env := make([]string, 0, len(c.Env))
	for k, v := range c.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}
