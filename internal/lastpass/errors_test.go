package lastpass

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("list accounts: %w", newError(KindTimedOut, OpList, nil))

	assert.ErrorIs(t, err, KindTimedOut)
	assert.NotErrorIs(t, err, KindRuntime)
	assert.Equal(t, KindTimedOut, KindOf(err))
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"kind only", newError(KindSyncFailed, "", nil), "lastpass: sync failed"},
		{"with op", newError(KindRuntime, OpDelete, nil), "lastpass: delete: runtime failure"},
		{"with cause", newError(KindRuntime, OpList, errors.New("exit status 1")), "lastpass: list: runtime failure: exit status 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindNeedsLogin, KindOf(fmt.Errorf("wrapped: %w", KindNeedsLogin)))
	assert.Equal(t, "kind(99)", Kind(99).String())
}

func TestWithOp(t *testing.T) {
	cause := errors.New("cause")
	err := withOp(OpAdd, newError(KindBadOutput, "", cause))

	var e *Error
	assert.ErrorAs(t, err, &e)
	assert.Equal(t, OpAdd, e.Op)
	assert.ErrorIs(t, err, cause)

	// An op already set is kept.
	err = withOp(OpSync, err)
	assert.ErrorAs(t, err, &e)
	assert.Equal(t, OpAdd, e.Op)

	plain := errors.New("plain")
	assert.Same(t, plain, withOp(OpAdd, plain))
}
