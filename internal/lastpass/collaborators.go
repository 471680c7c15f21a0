package lastpass

import (
	"go.uber.org/zap"
)

// SecretPrompter asks the user for a secret. A false result means the user
// declined. It is called from the stderr handler of a running lpass and
// must not start processes of its own.
type SecretPrompter interface {
	PromptForSecret(message string) (string, bool)
}

// PrompterFunc adapts a function to SecretPrompter.
type PrompterFunc func(message string) (string, bool)

func (f PrompterFunc) PromptForSecret(message string) (string, bool) {
	return f(message)
}

// Notifier presents failures to the user. Calls are informational only.
type Notifier interface {
	NotifyTimeout(message string)
	NotifyLoginRequired()
	NotifyFailure(message string, err error)
}

// PathResolver supplies the lpass executable and remembers whether it is
// usable. *Locator is the standard implementation.
type PathResolver interface {
	Path() (string, error)
	MarkUnusable()
	ResetUsability()
}

// LogNotifier reports through a zap logger. It is used when no interactive
// surface exists.
type LogNotifier struct {
	Log *zap.Logger
}

func (n LogNotifier) NotifyTimeout(message string) {
	n.Log.Warn("lastpass timeout", zap.String("message", message))
}

func (n LogNotifier) NotifyLoginRequired() {
	n.Log.Warn("lastpass login required", zap.String("hint", LoginHint))
}

func (n LogNotifier) NotifyFailure(message string, err error) {
	n.Log.Error(message, zap.Error(err))
}

// LoginHint tells the user how to log in.
const LoginHint = "Open a terminal window and run `lpass login your@email.address`."
