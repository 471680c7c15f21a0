package lastpass

import (
	"context"
	"sync"

	"github.com/atinyakov/lpbridge/internal/command"
)

type mockRunner struct {
	mu      sync.Mutex
	calls   []*command.Command
	RunFunc func(ctx context.Context, c *command.Command) (*command.Output, error)
}

func (m *mockRunner) Run(ctx context.Context, c *command.Command) (*command.Output, error) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	m.mu.Unlock()
	return m.RunFunc(ctx, c)
}

func (m *mockRunner) args() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, 0, len(m.calls))
	for _, c := range m.calls {
		out = append(out, c.Args)
	}
	return out
}

// scripted answers by the first argument of the command.
func scripted(outputs map[string]*command.Output) *mockRunner {
	return &mockRunner{RunFunc: func(_ context.Context, c *command.Command) (*command.Output, error) {
		if out, ok := outputs[c.Args[0]]; ok {
			return out, nil
		}
		return &command.Output{}, nil
	}}
}

type mockLocator struct {
	path     string
	err      error
	unusable int
	resets   int
}

func (m *mockLocator) Path() (string, error) { return m.path, m.err }
func (m *mockLocator) MarkUnusable()         { m.unusable++ }
func (m *mockLocator) ResetUsability()       { m.resets++ }

type recordingNotifier struct {
	timeouts []string
	logins   int
	failures []string
	errs     []error
}

func (n *recordingNotifier) NotifyTimeout(message string) { n.timeouts = append(n.timeouts, message) }
func (n *recordingNotifier) NotifyLoginRequired()         { n.logins++ }
func (n *recordingNotifier) NotifyFailure(message string, err error) {
	n.failures = append(n.failures, message)
	n.errs = append(n.errs, err)
}
