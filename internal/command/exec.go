package command

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// waitDelay bounds how long Run waits for output pipes held open by
// descendants of a process that already exited or was killed.
const waitDelay = 2 * time.Second

// Runner runs a Command to completion.
type Runner interface {
	Run(ctx context.Context, c *Command) (*Output, error)
}

// Executor is the Runner backed by os/exec.
type Executor struct {
	log *zap.Logger
}

// NewExecutor returns an Executor that logs runs at debug level.
func NewExecutor(log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{log: log}
}

// Run launches c and blocks until the process exits, its deadline elapses,
// a handler aborts it or ctx is cancelled.
//
// A deadline kill is not an error: the returned Output has TimedOut set and
// ReturnCode KilledCode. A handler error or cancellation of ctx kills the
// process and is returned with a nil Output. A program that cannot be
// started yields a *LaunchError and HandleTermination is not called.
func (e *Executor) Run(ctx context.Context, c *Command) (*Output, error) {
	log := e.log.With(
		zap.String("run", uuid.NewString()),
		zap.String("path", c.Path),
		zap.Strings("args", c.Args),
	)

	deadlineCtx := ctx
	if !c.Deadline.IsZero() {
		var cancel context.CancelFunc
		deadlineCtx, cancel = context.WithDeadline(ctx, c.Deadline)
		defer cancel()
	}
	runCtx, abort := context.WithCancelCause(deadlineCtx)
	defer abort(nil)

	cmd := exec.CommandContext(runCtx, c.Path, c.Args...) //nolint:gosec // G204: path comes from the locator
	cmd.Env = c.environ()
	cmd.WaitDelay = waitDelay

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &LaunchError{Path: c.Path, Err: err}
	}
	d := newDispatcher(c, abort, log)
	cmd.Stdout = d.writer(streamStdout)
	cmd.Stderr = d.writer(streamStderr)

	started := time.Now()
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		// A context that is already done is not a launch problem.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if ctxErr := deadlineCtx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Debug("launch failed", zap.Error(err))
		return nil, &LaunchError{Path: c.Path, Err: err}
	}

	in := newInputWriter(stdin, log)
	c.mu.Lock()
	c.input = in
	c.mu.Unlock()

	go d.loop()

	if c.DidLaunch != nil {
		c.DidLaunch(c)
	} else if !c.interactive() {
		c.CloseInput()
	}

	waitErr := cmd.Wait()
	d.stop()
	c.CloseInput()
	<-in.done

	code := KilledCode
	if cmd.ProcessState != nil {
		code = cmd.ProcessState.ExitCode()
	}
	timedOut := waitErr != nil && ctx.Err() == nil && d.failure == nil &&
		!c.Deadline.IsZero() && errors.Is(deadlineCtx.Err(), context.DeadlineExceeded)
	if timedOut || d.failure != nil {
		code = KilledCode
	}

	log.Debug("command finished",
		zap.Int("exit_code", code),
		zap.Bool("timed_out", timedOut),
		zap.Duration("elapsed", time.Since(started)),
	)

	if c.HandleTermination != nil {
		c.HandleTermination(code)
	}

	switch {
	case d.failure != nil:
		return nil, d.failure
	case ctx.Err() != nil:
		return nil, ctx.Err()
	}

	return &Output{
		Stdout:     d.stdout.Bytes(),
		Stderr:     d.stderr.Bytes(),
		ReturnCode: code,
		TimedOut:   timedOut,
	}, nil
}
