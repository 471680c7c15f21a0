// Package lastpass drives the lpass command-line client. Every operation is
// a recipe of one or more lpass invocations wrapped so that failures are
// reported to a Notifier instead of being returned.
package lastpass

import (
	"cmp"
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/lpbridge/internal/command"
	"github.com/atinyakov/lpbridge/internal/models"
	"github.com/atinyakov/lpbridge/internal/recipe"
)

const (
	// DefaultNamespace is the lpass folder holding managed accounts.
	DefaultNamespace = "lpbridge"
	// DefaultTimeout bounds the fixed, read-only lpass calls.
	DefaultTimeout = 5 * time.Second

	notLoggedInPrefix = "Not logged in"
	timeoutPrefix     = "The LastPass service took too long to respond. "

	msgList        = "The account list could not be fetched."
	msgPassword    = "The password could not be fetched."
	msgSetPassword = "The password could not be set."
	msgDelete      = "The account could not be deleted."
	msgAdd         = "The account could not be added."
	msgMissingCLI  = "The LastPass CLI could not be found."
)

// Config holds the fixed parameters of every lpass invocation.
type Config struct {
	Namespace string
	// Home becomes HOME of the lpass process.
	Home string
	// AskpassPath becomes LPASS_ASKPASS when set.
	AskpassPath string
	// Timeout bounds listing and syncing.
	Timeout time.Duration
}

// Configuration holds the wrapped recipe of every account operation. The
// recipes never return errors; an absent result means the failure has
// already been presented.
type Configuration struct {
	ListAccounts recipe.Recipe[recipe.Void, recipe.Maybe[[]models.Account]]
	GetPassword  recipe.Recipe[models.AccountIdentifier, recipe.Maybe[string]]
	SetPassword  recipe.Recipe[models.SetPasswordRequest, recipe.Maybe[recipe.Void]]
	Delete       recipe.Recipe[models.AccountIdentifier, recipe.Maybe[recipe.Void]]
	AddAccount   recipe.Recipe[models.AddRequest, recipe.Maybe[models.AccountIdentifier]]
}

// DataSource exposes LastPass accounts. It is safe for concurrent use:
// every call builds its own process and prompt state.
type DataSource struct {
	cfg      Config
	locator  PathResolver
	runner   command.Runner
	prompter SecretPrompter
	notifier Notifier
	log      *zap.Logger
	conf     Configuration
}

// NewDataSource wires a DataSource. A nil notifier reports through log; a
// nil prompter declines every master password challenge.
func NewDataSource(cfg Config, locator PathResolver, runner command.Runner, prompter SecretPrompter, notifier Notifier, log *zap.Logger) *DataSource {
	if log == nil {
		log = zap.NewNop()
	}
	if notifier == nil {
		notifier = LogNotifier{Log: log}
	}
	cfg.Namespace = cmp.Or(cfg.Namespace, DefaultNamespace)
	cfg.Timeout = cmp.Or(cfg.Timeout, DefaultTimeout)

	d := &DataSource{
		cfg:      cfg,
		locator:  locator,
		runner:   runner,
		prompter: prompter,
		notifier: notifier,
		log:      log,
	}
	d.conf = d.configuration()
	return d
}

// Configuration returns the wrapped operation recipes.
func (d *DataSource) Configuration() Configuration {
	return d.conf
}

func (d *DataSource) environment() map[string]string {
	env := map[string]string{"HOME": d.cfg.Home}
	if d.cfg.AskpassPath != "" {
		env["LPASS_ASKPASS"] = d.cfg.AskpassPath
	}
	return env
}

func run[In, Out any](ctx context.Context, r recipe.Recipe[In, recipe.Maybe[Out]], in In) (Out, bool) {
	res, err := r.Transform(ctx, in)
	if err != nil {
		var zero Out
		return zero, false
	}
	return res.Value, res.Valid
}

// Accounts lists the synced accounts of the namespace.
func (d *DataSource) Accounts(ctx context.Context) ([]models.Account, bool) {
	return run(ctx, d.conf.ListAccounts, recipe.Void{})
}

// Password fetches the password of id.
func (d *DataSource) Password(ctx context.Context, id models.AccountIdentifier) (string, bool) {
	return run(ctx, d.conf.GetPassword, id)
}

// SetPassword replaces the password of an account.
func (d *DataSource) SetPassword(ctx context.Context, req models.SetPasswordRequest) bool {
	_, ok := run(ctx, d.conf.SetPassword, req)
	return ok
}

// Delete removes an account.
func (d *DataSource) Delete(ctx context.Context, id models.AccountIdentifier) bool {
	_, ok := run(ctx, d.conf.Delete, id)
	return ok
}

// Add creates an account, syncs it and looks up its remote identifier. A
// failure after creation leaves the created record in place.
func (d *DataSource) Add(ctx context.Context, req models.AddRequest) (models.Account, bool) {
	id, ok := run(ctx, d.conf.AddAccount, req)
	if !ok {
		return models.Account{}, false
	}
	return models.Account{ID: id, UserName: req.UserName, AccountName: req.AccountName}, true
}

// CheckAvailability runs "lpass status" and reports whether lpass is
// installed and logged in.
func (d *DataSource) CheckAvailability(ctx context.Context) bool {
	path, err := d.locator.Path()
	if err != nil {
		d.present(msgMissingCLI, withOp(OpStatus, err))
		return false
	}
	out, err := d.runner.Run(ctx, &command.Command{
		Path:     path,
		Args:     []string{"status", "--color=never"},
		Env:      d.environment(),
		Deadline: time.Now().Add(d.cfg.Timeout),
	})
	if err != nil {
		err = d.recoverRun(OpStatus, err)
		d.log.Warn("lpass status failed",
			zap.Stringer("kind", KindOf(err)),
			zap.Error(err),
		)
		return false
	}
	if out.TimedOut {
		d.log.Warn("lpass status failed",
			zap.Stringer("kind", KindTimedOut),
			zap.Duration("timeout", d.cfg.Timeout),
		)
		return false
	}
	if out.ReturnCode == 0 {
		return true
	}
	if strings.HasPrefix(string(out.Stdout), notLoggedInPrefix) {
		d.notifier.NotifyLoginRequired()
	}
	return false
}

// ResetErrors lets a previously unusable lpass be probed again.
func (d *DataSource) ResetErrors() {
	d.locator.ResetUsability()
}

// AutogeneratedPasswordsOnly reports whether new accounts must use
// generated passwords. LastPass accepts caller supplied passwords.
func (d *DataSource) AutogeneratedPasswordsOnly() bool {
	return false
}

func wrap[In, Out any](d *DataSource, message string, r recipe.Recipe[In, Out]) recipe.Recipe[In, recipe.Maybe[Out]] {
	return recipe.Catch(r, func(err error) {
		d.present(message, err)
	})
}

// present is the single place where failures reach the user.
func (d *DataSource) present(message string, err error) {
	kind := KindOf(err)
	switch kind {
	case KindCanceledByUser:
		d.log.Debug("lastpass operation canceled", zap.String("message", message), zap.Error(err))
	case KindTimedOut:
		d.log.Warn("lastpass operation timed out", zap.String("message", message), zap.Error(err))
		d.notifier.NotifyTimeout(timeoutPrefix + message)
	case KindNeedsLogin:
		d.log.Warn("lastpass login required", zap.String("message", message))
		d.notifier.NotifyLoginRequired()
	default:
		d.log.Error("lastpass operation failed",
			zap.String("message", message),
			zap.Stringer("kind", kind),
			zap.Error(err),
		)
		d.notifier.NotifyFailure(message, err)
	}
}
