package lastpass

import (
	"bytes"
)

const (
	loginMarker          = "lpass login"
	masterPasswordPrompt = "Enter your LastPass master password:"
)

// authPrompter answers the master password challenge lpass writes to stderr.
// It asks at most once; one instance serves exactly one invocation.
type authPrompter struct {
	prompter SecretPrompter
	asked    bool
}

func newAuthPrompter(p SecretPrompter) *authPrompter {
	return &authPrompter{prompter: p}
}

// handle is a command.Handler for stderr.
func (a *authPrompter) handle(data []byte) ([]byte, error) {
	if bytes.Contains(data, []byte(loginMarker)) {
		return nil, newError(KindNeedsLogin, "", nil)
	}
	if a.asked {
		return nil, nil
	}
	a.asked = true
	if a.prompter == nil {
		return nil, newError(KindCanceledByUser, "", nil)
	}
	secret, ok := a.prompter.PromptForSecret(masterPasswordPrompt)
	if !ok {
		return nil, newError(KindCanceledByUser, "", nil)
	}
	return []byte(secret + "\n"), nil
}
