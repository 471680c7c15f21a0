// Package service provides the account operations offered by the front ends,
// delegating to the LastPass data source and recording an audit log.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/lpbridge/internal/lastpass"
	"github.com/atinyakov/lpbridge/internal/models"
)

var (
	// ErrOperationFailed means the data source reported the failure to its
	// notifier and produced no result.
	ErrOperationFailed = errors.New("operation failed")
	// ErrAuditDisabled is returned by Operations when no repository is set.
	ErrAuditDisabled = errors.New("audit log disabled")
)

const (
	defaultOperationsLimit = 50
	maxOperationsLimit     = 500
)

// AccountSource is the account store behind the service. *lastpass.DataSource
// implements it. A false result means the failure was already presented.
type AccountSource interface {
	Accounts(ctx context.Context) ([]models.Account, bool)
	Password(ctx context.Context, id models.AccountIdentifier) (string, bool)
	SetPassword(ctx context.Context, req models.SetPasswordRequest) bool
	Delete(ctx context.Context, id models.AccountIdentifier) bool
	Add(ctx context.Context, req models.AddRequest) (models.Account, bool)
	CheckAvailability(ctx context.Context) bool
	ResetErrors()
	AutogeneratedPasswordsOnly() bool
}

// OperationRepository defines the persistence of the audit log.
type OperationRepository interface {
	// Record stores one audit record.
	Record(ctx context.Context, op models.Operation) error
	// Recent returns up to limit records, newest first, optionally only
	// those whose name is in names.
	Recent(ctx context.Context, limit int, names []string) ([]models.Operation, error)
}

// Status describes the availability of the account store.
type Status struct {
	Available                  bool `json:"available"`
	AutogeneratedPasswordsOnly bool `json:"autogenerated_passwords_only"`
}

// AccountService implements the account operations.
type AccountService struct {
	source AccountSource
	// repo is nil when the audit log is disabled.
	repo OperationRepository
	log  *zap.Logger
	now  func() time.Time
}

// NewAccountService constructs an AccountService. repo may be nil.
func NewAccountService(source AccountSource, repo OperationRepository, log *zap.Logger) *AccountService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{source: source, repo: repo, log: log, now: time.Now}
}

// List returns the accounts matching filter; an empty filter matches all.
func (s *AccountService) List(ctx context.Context, filter string) ([]models.Account, error) {
	start := s.now()
	accounts, ok := s.source.Accounts(ctx)
	s.record(ctx, lastpass.OpList, "", start, ok)
	if !ok {
		return nil, fmt.Errorf("%s: %w", lastpass.OpList, ErrOperationFailed)
	}
	matched := make([]models.Account, 0, len(accounts))
	for _, a := range accounts {
		if a.Matches(filter) {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

// Password fetches the password of id.
func (s *AccountService) Password(ctx context.Context, id models.AccountIdentifier) (string, error) {
	if !id.Synced() {
		return "", fmt.Errorf("%w: account identifier %q", models.ErrInvalidRequest, id)
	}
	start := s.now()
	pw, ok := s.source.Password(ctx, id)
	s.record(ctx, lastpass.OpPassword, id.String(), start, ok)
	if !ok {
		return "", fmt.Errorf("%s: %w", lastpass.OpPassword, ErrOperationFailed)
	}
	return pw, nil
}

// SetPassword replaces the password of an account.
func (s *AccountService) SetPassword(ctx context.Context, req models.SetPasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	start := s.now()
	ok := s.source.SetPassword(ctx, req)
	s.record(ctx, lastpass.OpSetPassword, req.AccountID.String(), start, ok)
	if !ok {
		return fmt.Errorf("%s: %w", lastpass.OpSetPassword, ErrOperationFailed)
	}
	return nil
}

// Delete removes an account.
func (s *AccountService) Delete(ctx context.Context, id models.AccountIdentifier) error {
	if !id.Synced() {
		return fmt.Errorf("%w: account identifier %q", models.ErrInvalidRequest, id)
	}
	start := s.now()
	ok := s.source.Delete(ctx, id)
	s.record(ctx, lastpass.OpDelete, id.String(), start, ok)
	if !ok {
		return fmt.Errorf("%s: %w", lastpass.OpDelete, ErrOperationFailed)
	}
	return nil
}

// Add creates an account and returns it with its remote identifier.
func (s *AccountService) Add(ctx context.Context, req models.AddRequest) (models.Account, error) {
	if err := req.Validate(); err != nil {
		return models.Account{}, err
	}
	start := s.now()
	acc, ok := s.source.Add(ctx, req)
	s.record(ctx, lastpass.OpAdd, acc.ID.String(), start, ok)
	if !ok {
		return models.Account{}, fmt.Errorf("%s: %w", lastpass.OpAdd, ErrOperationFailed)
	}
	return acc, nil
}

// Status checks whether lpass is installed and logged in.
func (s *AccountService) Status(ctx context.Context) Status {
	return Status{
		Available:                  s.source.CheckAvailability(ctx),
		AutogeneratedPasswordsOnly: s.source.AutogeneratedPasswordsOnly(),
	}
}

// ResetErrors allows a previously unusable lpass to be retried.
func (s *AccountService) ResetErrors() {
	s.source.ResetErrors()
}

// Operations returns recent audit records. limit is clamped to a sane range
// and defaults to 50 when not positive.
func (s *AccountService) Operations(ctx context.Context, limit int, names []string) ([]models.Operation, error) {
	if s.repo == nil {
		return nil, ErrAuditDisabled
	}
	switch {
	case limit <= 0:
		limit = defaultOperationsLimit
	case limit > maxOperationsLimit:
		limit = maxOperationsLimit
	}
	return s.repo.Recent(ctx, limit, names)
}

// record stores an audit record. Failures are logged, not returned.
func (s *AccountService) record(ctx context.Context, name, accountID string, start time.Time, ok bool) {
	if s.repo == nil {
		return
	}
	outcome := models.OutcomeOK
	if !ok {
		outcome = models.OutcomeFailed
	}
	op := models.Operation{
		ID:        uuid.NewString(),
		Name:      name,
		AccountID: accountID,
		Outcome:   outcome,
		Duration:  s.now().Sub(start),
		CreatedAt: start,
	}
	if err := s.repo.Record(context.WithoutCancel(ctx), op); err != nil {
		s.log.Warn("failed to record operation",
			zap.String("operation", name),
			zap.Error(err),
		)
	}
}
