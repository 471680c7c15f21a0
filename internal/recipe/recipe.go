// Package recipe composes typed transformations backed by external
// processes. A Recipe turns an input into an output; Sequence chains two
// recipes and Catch turns a failing recipe into a handled, empty result.
package recipe

import (
	"context"
	"errors"

	"github.com/atinyakov/lpbridge/internal/command"
)

// Void is the output of recipes run only for their side effects.
type Void = struct{}

// Recipe transforms an input into an output. Every call yields either an
// output or an error.
type Recipe[In, Out any] interface {
	Transform(ctx context.Context, in In) (Out, error)
}

// Func adapts a function to Recipe.
type Func[In, Out any] func(ctx context.Context, in In) (Out, error)

// Transform calls f.
func (f Func[In, Out]) Transform(ctx context.Context, in In) (Out, error) {
	return f(ctx, in)
}

// Command is a Recipe backed by one process invocation.
type Command[In, Out any] struct {
	// Runner executes the command built for each call.
	Runner command.Runner
	// Build derives the command from the input.
	Build func(in In) (*command.Command, error)
	// Recover, if set, sees every error returned by the runner. It may
	// produce an output or return a (possibly reclassified) error.
	Recover func(err error) (Out, error)
	// Parse turns the finished run into the output.
	Parse func(out *command.Output) (Out, error)
}

// Transform builds the command, runs it and parses its output.
func (r *Command[In, Out]) Transform(ctx context.Context, in In) (Out, error) {
	var zero Out
	if r.Build == nil || r.Parse == nil || r.Runner == nil {
		return zero, errors.New("recipe: incomplete command recipe")
	}
	c, err := r.Build(in)
	if err != nil {
		return zero, err
	}
	out, err := r.Runner.Run(ctx, c)
	if err != nil {
		if r.Recover != nil {
			return r.Recover(err)
		}
		return zero, err
	}
	return r.Parse(out)
}

// Pair carries the original input alongside the output of a previous step.
type Pair[A, B any] struct {
	First  A
	Second B
}

type sequence[In, A, B any] struct {
	first  Recipe[In, A]
	second Recipe[Pair[In, A], B]
}

// Sequence runs first and then second with the pair (input, first output).
// An error from either step is returned as is; nothing done by the first
// step is undone when the second fails.
func Sequence[In, A, B any](first Recipe[In, A], second Recipe[Pair[In, A], B]) Recipe[In, B] {
	return &sequence[In, A, B]{first: first, second: second}
}

func (s *sequence[In, A, B]) Transform(ctx context.Context, in In) (B, error) {
	a, err := s.first.Transform(ctx, in)
	if err != nil {
		var zero B
		return zero, err
	}
	return s.second.Transform(ctx, Pair[In, A]{First: in, Second: a})
}

// Maybe is an output that may be absent.
type Maybe[T any] struct {
	Value T
	Valid bool
}

// Some returns a present value.
func Some[T any](v T) Maybe[T] {
	return Maybe[T]{Value: v, Valid: true}
}

type catch[In, Out any] struct {
	inner  Recipe[In, Out]
	handle func(error)
}

// Catch runs r and hands any error to handle instead of returning it. The
// wrapped recipe never fails: errors become an absent result.
func Catch[In, Out any](r Recipe[In, Out], handle func(err error)) Recipe[In, Maybe[Out]] {
	return &catch[In, Out]{inner: r, handle: handle}
}

func (c *catch[In, Out]) Transform(ctx context.Context, in In) (Maybe[Out], error) {
	out, err := c.inner.Transform(ctx, in)
	if err != nil {
		if c.handle != nil {
			c.handle(err)
		}
		return Maybe[Out]{}, nil
	}
	return Some(out), nil
}
