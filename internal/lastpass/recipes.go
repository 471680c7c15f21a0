package lastpass

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/lpbridge/internal/command"
	"github.com/atinyakov/lpbridge/internal/models"
	"github.com/atinyakov/lpbridge/internal/recipe"
)

// Operation names used in errors and logs.
const (
	OpList        = "list"
	OpPassword    = "password"
	OpSetPassword = "set_password"
	OpDelete      = "delete"
	OpAdd         = "add"
	OpSync        = "sync"
	OpLookup      = "lookup"
	OpStatus      = "status"
)

// invocation is the argument vector of one lpass call plus an optional
// payload written to its input right after launch.
type invocation struct {
	args    []string
	payload []byte
}

// step describes one lpass call. Fixed steps ignore their input, carry a
// timeout and answer the master password challenge; input-derived steps
// compute args and payload from the input and have neither.
type step[In, Out any] struct {
	op      string
	build   func(In) invocation
	timeout time.Duration
	auth    bool
	parse   func(*command.Output) (Out, error)
}

func fixed[In, Out any](op string, args []string, timeout time.Duration, parse func(*command.Output) (Out, error)) step[In, Out] {
	return step[In, Out]{
		op:      op,
		build:   func(In) invocation { return invocation{args: args} },
		timeout: timeout,
		auth:    true,
		parse:   parse,
	}
}

func derived[In, Out any](op string, build func(In) invocation, parse func(*command.Output) (Out, error)) step[In, Out] {
	return step[In, Out]{op: op, build: build, parse: parse}
}

func discard(*command.Output) (recipe.Void, error) {
	return recipe.Void{}, nil
}

func newRecipe[In, Out any](d *DataSource, s step[In, Out]) recipe.Recipe[In, Out] {
	return &recipe.Command[In, Out]{
		Runner: d.runner,
		Build: func(in In) (*command.Command, error) {
			return d.command(s.op, s.build(in), s.timeout, s.auth)
		},
		Recover: func(err error) (Out, error) {
			var zero Out
			return zero, d.recoverRun(s.op, err)
		},
		Parse: func(out *command.Output) (Out, error) {
			var zero Out
			if out.TimedOut {
				return zero, newError(KindTimedOut, s.op, nil)
			}
			if out.ReturnCode != 0 {
				return zero, newError(KindRuntime, s.op, fmt.Errorf("exit status %d", out.ReturnCode))
			}
			v, err := s.parse(out)
			if err != nil {
				return zero, withOp(s.op, err)
			}
			return v, nil
		},
	}
}

func (d *DataSource) command(op string, inv invocation, timeout time.Duration, auth bool) (*command.Command, error) {
	path, err := d.locator.Path()
	if err != nil {
		return nil, withOp(op, err)
	}
	c := &command.Command{
		Path: path,
		Args: inv.args,
		Env:  d.environment(),
	}
	if timeout > 0 {
		c.Deadline = time.Now().Add(timeout)
	}
	if auth {
		c.HandleStderr = newAuthPrompter(d.prompter).handle
	}
	if inv.payload != nil {
		payload := inv.payload
		c.DidLaunch = func(c *command.Command) {
			if err := c.Write(payload); err != nil {
				d.log.Debug("payload not written", zap.String("op", op), zap.Error(err))
			}
			c.CloseInput()
		}
	}
	return c, nil
}

// recoverRun classifies errors raised while running, before any output
// exists. A binary that cannot be launched is remembered as unusable.
func (d *DataSource) recoverRun(op string, err error) error {
	switch {
	case KindOf(err) != KindUnknown:
		return withOp(op, err)
	case errors.Is(err, context.Canceled):
		return newError(KindCanceledByUser, op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return newError(KindTimedOut, op, err)
	case errors.Is(err, command.ErrLaunch):
		d.locator.MarkUnusable()
		return newError(KindUnusableCLI, op, err)
	}
	return newError(KindRuntime, op, err)
}

func (d *DataSource) configuration() Configuration {
	ns := d.cfg.Namespace
	timeout := d.cfg.Timeout

	list := newRecipe(d, fixed[recipe.Void](OpList,
		[]string{"ls", listFormat, ns}, timeout, parseAccounts))

	password := newRecipe(d, derived(OpPassword,
		func(id models.AccountIdentifier) invocation {
			return invocation{args: []string{"show", "--password", id.String()}}
		}, parsePassword))

	setPassword := newRecipe(d, derived(OpSetPassword,
		func(r models.SetPasswordRequest) invocation {
			return invocation{
				args:    []string{"edit", "--non-interactive", "--password", r.AccountID.String()},
				payload: []byte(r.NewPassword + "\n"),
			}
		}, discard))

	del := newRecipe(d, derived(OpDelete,
		func(id models.AccountIdentifier) invocation {
			return invocation{args: []string{"rm", id.String()}}
		}, discard))

	create := newRecipe(d, derived(OpAdd,
		func(r models.AddRequest) invocation {
			return invocation{
				args:    []string{"add", ns + "/" + r.AccountName, "--non-interactive"},
				payload: []byte("Username: " + r.UserName + "\nPassword: " + r.Password),
			}
		}, discard))

	syncNow := newRecipe(d, fixed[recipe.Pair[models.AddRequest, recipe.Void]](OpSync,
		[]string{"sync", "now"}, timeout, discard))

	lookup := newRecipe(d, derived(OpLookup,
		func(p recipe.Pair[models.AddRequest, recipe.Void]) invocation {
			return invocation{args: []string{"show", "--id", ns + "/" + p.First.AccountName}}
		}, parseIdentifier))

	add := recipe.Sequence(recipe.Sequence(create, syncNow), lookup)

	return Configuration{
		ListAccounts: wrap(d, msgList, list),
		GetPassword:  wrap(d, msgPassword, password),
		SetPassword:  wrap(d, msgSetPassword, setPassword),
		Delete:       wrap(d, msgDelete, del),
		AddAccount:   wrap(d, msgAdd, add),
	}
}
