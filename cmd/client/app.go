package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/atinyakov/lpbridge/internal/command"
	"github.com/atinyakov/lpbridge/internal/config"
	"github.com/atinyakov/lpbridge/internal/lastpass"
	"github.com/atinyakov/lpbridge/internal/logger"
	"github.com/atinyakov/lpbridge/internal/models"
	"github.com/atinyakov/lpbridge/internal/prompt"
	"github.com/atinyakov/lpbridge/internal/service"
)

// errCanceled is returned when the user declines to enter a password.
var errCanceled = errors.New("canceled")

// accountService is the part of *service.AccountService the client uses.
type accountService interface {
	List(ctx context.Context, filter string) ([]models.Account, error)
	Password(ctx context.Context, id models.AccountIdentifier) (string, error)
	SetPassword(ctx context.Context, req models.SetPasswordRequest) error
	Delete(ctx context.Context, id models.AccountIdentifier) error
	Add(ctx context.Context, req models.AddRequest) (models.Account, error)
	Status(ctx context.Context) service.Status
	ResetErrors()
}

// app holds the collaborators shared by all commands. svc, secrets and in
// are set up lazily from the loaded options unless already present.
type app struct {
	svc     accountService
	secrets lastpass.SecretPrompter
	in      io.Reader
	out     io.Writer
}

// setup builds the service from the configuration.
func (a *app) setup(options *config.Options) error {
	if a.svc != nil {
		return nil
	}

	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	term := prompt.NewTerminal()
	a.secrets = term
	a.in = term.In

	locator := lastpass.NewLocator(lastpass.LocatorConfig{
		Path:       options.LpassPath,
		Candidates: options.Candidates,
		SearchPATH: true,
		Find: func() (string, bool) {
			path, err := term.Ask("lpass was not found. Path to the lpass executable:")
			return path, err == nil && path != ""
		},
	})
	source := lastpass.NewDataSource(
		lastpass.Config{
			Namespace:   options.Namespace,
			Home:        options.Home,
			AskpassPath: options.AskpassPath,
			Timeout:     options.Timeout,
		},
		locator,
		command.NewExecutor(log.Log),
		term,
		prompt.Printer{Out: os.Stderr},
		log.Log,
	)
	a.svc = service.NewAccountService(source, nil, log.Log)
	log.Log.Debug("client ready",
		zap.String("namespace", options.Namespace),
		zap.String("config", options.Config),
	)
	return nil
}

func (a *app) list(ctx context.Context, filter string) error {
	accounts, err := a.svc.List(ctx, filter)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tUSER")
	for _, acc := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", acc.ID, acc.AccountName, acc.UserName)
	}
	return tw.Flush()
}

func (a *app) show(ctx context.Context, id string) error {
	pw, err := a.svc.Password(ctx, models.AccountIdentifier(id))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, pw)
	return nil
}

func (a *app) setPassword(ctx context.Context, id string) error {
	pw, ok := a.secrets.PromptForSecret("New password:")
	if !ok {
		return errCanceled
	}
	req := models.SetPasswordRequest{AccountID: models.AccountIdentifier(id), NewPassword: pw}
	if err := a.svc.SetPassword(ctx, req); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password updated")
	return nil
}

func (a *app) remove(ctx context.Context, id string) error {
	if err := a.svc.Delete(ctx, models.AccountIdentifier(id)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Account deleted")
	return nil
}

func (a *app) add(ctx context.Context, name, user string) error {
	pw, ok := a.secrets.PromptForSecret("Password for " + name + ":")
	if !ok {
		return errCanceled
	}
	acc, err := a.svc.Add(ctx, models.AddRequest{AccountName: name, UserName: user, Password: pw})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s with id %s\n", acc.DisplayString(), acc.ID)
	return nil
}

func (a *app) status(ctx context.Context) error {
	if a.svc.Status(ctx).Available {
		fmt.Fprintln(a.out, "lpass is available")
		return nil
	}
	fmt.Fprintln(a.out, "lpass is not available")
	return fmt.Errorf("status: %w", service.ErrOperationFailed)
}

func (a *app) reset() error {
	a.svc.ResetErrors()
	fmt.Fprintln(a.out, "Errors reset")
	return nil
}
