package lastpass

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atinyakov/lpbridge/internal/command"
	"github.com/atinyakov/lpbridge/internal/models"
)

const testLpass = "/usr/local/bin/lpass"

func newTestSource(runner command.Runner, prompter SecretPrompter) (*DataSource, *mockLocator, *recordingNotifier) {
	loc := &mockLocator{path: testLpass}
	n := &recordingNotifier{}
	cfg := Config{Namespace: "ns", Home: "/home/me", AskpassPath: "/usr/libexec/askpass"}
	return NewDataSource(cfg, loc, runner, prompter, n, zap.NewNop()), loc, n
}

func TestDataSource_Accounts(t *testing.T) {
	runner := scripted(map[string]*command.Output{
		"ls": {Stdout: []byte("123\tMyBank\tuser1\n0\tBadRow\tuser2\n")},
	})
	d, _, n := newTestSource(runner, nil)

	accounts, ok := d.Accounts(context.Background())
	require.True(t, ok)
	assert.Equal(t, []models.Account{{ID: "123", AccountName: "MyBank", UserName: "user1"}}, accounts)
	assert.Empty(t, n.failures)

	require.Len(t, runner.calls, 1)
	c := runner.calls[0]
	assert.Equal(t, testLpass, c.Path)
	assert.Equal(t, []string{"ls", "--format=%ai\t%an\t%au", "ns"}, c.Args)
	assert.Equal(t, map[string]string{"HOME": "/home/me", "LPASS_ASKPASS": "/usr/libexec/askpass"}, c.Env)
	assert.False(t, c.Deadline.IsZero(), "listing is bounded by the default timeout")
	assert.WithinDuration(t, time.Now().Add(DefaultTimeout), c.Deadline, time.Second)
	assert.NotNil(t, c.HandleStderr, "listing answers the master password challenge")
}

func TestDataSource_EnvironmentIsStable(t *testing.T) {
	runner := scripted(nil)
	d, _, _ := newTestSource(runner, nil)

	d.Accounts(context.Background())
	d.Delete(context.Background(), "7")
	require.Len(t, runner.calls, 2)
	assert.Equal(t, runner.calls[0].Env, runner.calls[1].Env)
}

func TestDataSource_PasswordRuntimeFailure(t *testing.T) {
	runner := scripted(map[string]*command.Output{
		"show": {Stdout: []byte("not a password"), ReturnCode: 1},
	})
	d, _, n := newTestSource(runner, nil)

	pw, ok := d.Password(context.Background(), "42")
	assert.False(t, ok)
	assert.Empty(t, pw)
	assert.Equal(t, [][]string{{"show", "--password", "42"}}, runner.args())
	require.Len(t, n.errs, 1)
	assert.ErrorIs(t, n.errs[0], KindRuntime)
	assert.Equal(t, []string{"The password could not be fetched."}, n.failures)
}

func TestDataSource_Password(t *testing.T) {
	runner := scripted(map[string]*command.Output{"show": {Stdout: []byte("hunter2\n")}})
	d, _, _ := newTestSource(runner, nil)

	pw, ok := d.Password(context.Background(), "42")
	require.True(t, ok)
	assert.Equal(t, "hunter2", pw)
	assert.True(t, runner.calls[0].Deadline.IsZero(), "input-derived calls have no deadline")
	assert.Nil(t, runner.calls[0].HandleStderr)
}

func TestDataSource_SetPasswordQueuesPayload(t *testing.T) {
	runner := scripted(nil)
	d, _, _ := newTestSource(runner, nil)

	ok := d.SetPassword(context.Background(), models.SetPasswordRequest{AccountID: "9", NewPassword: "new"})
	require.True(t, ok)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"edit", "--non-interactive", "--password", "9"}, runner.calls[0].Args)
	assert.NotNil(t, runner.calls[0].DidLaunch)
}

func TestDataSource_Delete(t *testing.T) {
	runner := scripted(map[string]*command.Output{"rm": {ReturnCode: 1}})
	d, _, n := newTestSource(runner, nil)

	assert.False(t, d.Delete(context.Background(), "9"))
	assert.Equal(t, [][]string{{"rm", "9"}}, runner.args())
	assert.Equal(t, []string{"The account could not be deleted."}, n.failures)
}

func TestDataSource_AddRunsThreeSteps(t *testing.T) {
	runner := scripted(map[string]*command.Output{
		"show": {Stdout: []byte("Syncing...\n4242\n")},
	})
	d, _, n := newTestSource(runner, nil)

	acc, ok := d.Add(context.Background(), models.AddRequest{UserName: "me", AccountName: "Bank", Password: "pw"})
	require.True(t, ok)
	assert.Equal(t, models.Account{ID: "4242", UserName: "me", AccountName: "Bank"}, acc)
	assert.Equal(t, [][]string{
		{"add", "ns/Bank", "--non-interactive"},
		{"sync", "now"},
		{"show", "--id", "ns/Bank"},
	}, runner.args())
	assert.Empty(t, n.failures)
}

func TestDataSource_AddSyncFailed(t *testing.T) {
	runner := scripted(map[string]*command.Output{
		"show": {Stdout: []byte("Syncing...\n0\n")},
	})
	d, _, n := newTestSource(runner, nil)

	acc, ok := d.Add(context.Background(), models.AddRequest{AccountName: "Bank"})
	assert.False(t, ok)
	assert.Empty(t, acc.ID)
	require.Len(t, n.errs, 1)
	assert.ErrorIs(t, n.errs[0], KindSyncFailed)
	assert.Equal(t, []string{"The account could not be added."}, n.failures)
}

func TestDataSource_AddStopsAfterFailedStep(t *testing.T) {
	runner := scripted(map[string]*command.Output{"sync": {ReturnCode: 2}})
	d, _, n := newTestSource(runner, nil)

	_, ok := d.Add(context.Background(), models.AddRequest{AccountName: "Bank"})
	assert.False(t, ok)
	assert.Equal(t, [][]string{
		{"add", "ns/Bank", "--non-interactive"},
		{"sync", "now"},
	}, runner.args(), "the created record is not rolled back and lookup never runs")
	require.Len(t, n.errs, 1)
	var e *Error
	require.ErrorAs(t, n.errs[0], &e)
	assert.Equal(t, OpSync, e.Op)
	assert.Equal(t, KindRuntime, e.Kind)
}

func TestDataSource_TimeoutIsPresentedWithContext(t *testing.T) {
	runner := scripted(map[string]*command.Output{
		"ls": {ReturnCode: command.KilledCode, TimedOut: true},
	})
	d, _, n := newTestSource(runner, nil)

	_, ok := d.Accounts(context.Background())
	assert.False(t, ok)
	assert.Equal(t, []string{"The LastPass service took too long to respond. The account list could not be fetched."}, n.timeouts)
	assert.Empty(t, n.failures)
}

func TestDataSource_LoginRequired(t *testing.T) {
	runner := &mockRunner{RunFunc: func(_ context.Context, c *command.Command) (*command.Output, error) {
		_, err := c.HandleStderr([]byte("Error: Could not find decryption key. Perhaps you need to login with `lpass login`."))
		return nil, err
	}}
	d, _, n := newTestSource(runner, nil)

	_, ok := d.Accounts(context.Background())
	assert.False(t, ok)
	assert.Equal(t, 1, n.logins)
	assert.Empty(t, n.failures)
}

func TestDataSource_PromptAnsweredOncePerInvocation(t *testing.T) {
	var prompts int
	prompter := PrompterFunc(func(string) (string, bool) {
		prompts++
		return "master", true
	})
	var replies []string
	runner := &mockRunner{RunFunc: func(_ context.Context, c *command.Command) (*command.Output, error) {
		for range 3 {
			reply, err := c.HandleStderr([]byte("Master Password: "))
			if err != nil {
				return nil, err
			}
			replies = append(replies, string(reply))
		}
		return &command.Output{Stdout: []byte("1\tA\ta\n")}, nil
	}}
	d, _, _ := newTestSource(runner, prompter)

	_, ok := d.Accounts(context.Background())
	require.True(t, ok)
	_, ok = d.Accounts(context.Background())
	require.True(t, ok)

	assert.Equal(t, 2, prompts, "each invocation gets its own prompt state")
	assert.Equal(t, []string{"master\n", "", "", "master\n", "", ""}, replies)
}

func TestDataSource_CanceledPromptIsSilent(t *testing.T) {
	runner := &mockRunner{RunFunc: func(_ context.Context, c *command.Command) (*command.Output, error) {
		_, err := c.HandleStderr([]byte("Master Password: "))
		return nil, err
	}}
	d, _, n := newTestSource(runner, PrompterFunc(func(string) (string, bool) { return "", false }))

	_, ok := d.Accounts(context.Background())
	assert.False(t, ok)
	assert.Empty(t, n.failures)
	assert.Empty(t, n.timeouts)
	assert.Zero(t, n.logins)
}

func TestDataSource_LaunchFailureMarksUnusable(t *testing.T) {
	runner := &mockRunner{RunFunc: func(_ context.Context, c *command.Command) (*command.Output, error) {
		return nil, &command.LaunchError{Path: c.Path, Err: errors.New("no such file or directory")}
	}}
	d, loc, n := newTestSource(runner, nil)

	assert.False(t, d.Delete(context.Background(), "1"))
	assert.Equal(t, 1, loc.unusable)
	require.Len(t, n.errs, 1)
	assert.ErrorIs(t, n.errs[0], KindUnusableCLI)
	assert.ErrorIs(t, n.errs[0], command.ErrLaunch)
}

func TestDataSource_UnusableLocatorSkipsLaunch(t *testing.T) {
	runner := scripted(nil)
	d, loc, n := newTestSource(runner, nil)
	loc.err = newError(KindUnusableCLI, "", nil)

	_, ok := d.Password(context.Background(), "1")
	assert.False(t, ok)
	assert.Empty(t, runner.calls)
	require.Len(t, n.errs, 1)
	assert.ErrorIs(t, n.errs[0], KindUnusableCLI)
}

func TestDataSource_CheckAvailability(t *testing.T) {
	tests := []struct {
		name       string
		out        *command.Output
		err        error
		want       bool
		wantLogins int
		wantMarked int
	}{
		{name: "logged in", out: &command.Output{Stdout: []byte("Logged in as me@example.com.\n")}, want: true},
		{name: "not logged in", out: &command.Output{Stdout: []byte("Not logged in.\n"), ReturnCode: 1}, wantLogins: 1},
		{name: "other failure", out: &command.Output{Stdout: []byte("boom\n"), ReturnCode: 1}},
		{name: "launch failure", err: &command.LaunchError{Path: testLpass, Err: errors.New("exec format error")}, wantMarked: 1},
		{name: "timed out", out: &command.Output{TimedOut: true, ReturnCode: command.KilledCode}},
		{name: "caller gone", err: context.Canceled},
		{name: "caller gone before launch", err: &command.LaunchError{Path: testLpass, Err: context.DeadlineExceeded}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockRunner{RunFunc: func(context.Context, *command.Command) (*command.Output, error) {
				return tt.out, tt.err
			}}
			d, loc, n := newTestSource(runner, nil)

			assert.Equal(t, tt.want, d.CheckAvailability(context.Background()))
			assert.Equal(t, tt.wantLogins, n.logins)
			assert.Equal(t, tt.wantMarked, loc.unusable)
			assert.Equal(t, [][]string{{"status", "--color=never"}}, runner.args())
		})
	}
}

func TestDataSource_CheckAvailabilityWithoutBinary(t *testing.T) {
	runner := scripted(nil)
	d, loc, n := newTestSource(runner, nil)
	loc.err = newError(KindUnusableCLI, "", errNotFound)

	assert.False(t, d.CheckAvailability(context.Background()))
	assert.Empty(t, runner.calls)
	assert.Equal(t, []string{"The LastPass CLI could not be found."}, n.failures)
}

func TestDataSource_ResetErrors(t *testing.T) {
	d, loc, _ := newTestSource(scripted(nil), nil)
	d.ResetErrors()
	assert.Equal(t, 1, loc.resets)
	assert.False(t, d.AutogeneratedPasswordsOnly())
}

func TestDataSource_ContextCanceledIsSilent(t *testing.T) {
	runner := &mockRunner{RunFunc: func(ctx context.Context, _ *command.Command) (*command.Output, error) {
		return nil, context.Canceled
	}}
	d, _, n := newTestSource(runner, nil)

	_, ok := d.Accounts(context.Background())
	assert.False(t, ok)
	assert.Empty(t, n.failures)
}

func TestDataSource_DoneContextKeepsBinaryUsable(t *testing.T) {
	for _, cause := range []error{context.Canceled, context.DeadlineExceeded} {
		t.Run(cause.Error(), func(t *testing.T) {
			runner := &mockRunner{RunFunc: func(_ context.Context, c *command.Command) (*command.Output, error) {
				return nil, &command.LaunchError{Path: c.Path, Err: cause}
			}}
			d, loc, n := newTestSource(runner, nil)

			_, ok := d.Accounts(context.Background())
			assert.False(t, ok)
			assert.Zero(t, loc.unusable)
			assert.Empty(t, n.failures)
		})
	}
}

func TestDataSource_CheckAvailabilityLogsKind(t *testing.T) {
	tests := []struct {
		name string
		out  *command.Output
		err  error
		want string
	}{
		{name: "timed out", out: &command.Output{TimedOut: true, ReturnCode: command.KilledCode}, want: `"kind":"timed out"`},
		{name: "launch failure", err: &command.LaunchError{Path: testLpass, Err: errors.New("exec format error")}, want: `"kind":"unusable cli"`},
		{name: "caller gone", err: context.Canceled, want: `"kind":"canceled by user"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			core := zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(&buf),
				zapcore.DebugLevel,
			)
			runner := &mockRunner{RunFunc: func(context.Context, *command.Command) (*command.Output, error) {
				return tt.out, tt.err
			}}
			cfg := Config{Namespace: "ns", Home: "/home/me", Timeout: time.Second}
			d := NewDataSource(cfg, &mockLocator{path: testLpass}, runner, nil, &recordingNotifier{}, zap.New(core))

			assert.False(t, d.CheckAvailability(context.Background()))
			assert.Contains(t, buf.String(), "lpass status failed")
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}
