// Package models defines the core data structures for accounts, requests
// and audit records.
package models

import (
	"errors"
	"strings"
	"time"
)

// UnsyncedIdentifier is the identifier lpass reports for records that have
// not reached the remote store yet. Such records cannot be addressed safely.
const UnsyncedIdentifier AccountIdentifier = "0"

// AccountIdentifier uniquely names a stored secret record.
type AccountIdentifier string

// String returns the raw identifier.
func (id AccountIdentifier) String() string { return string(id) }

// Synced reports whether the identifier can be used to address a record.
func (id AccountIdentifier) Synced() bool {
	return id != "" && id != UnsyncedIdentifier
}

// Account is a snapshot of one stored secret record as produced by a
// listing. It is not kept in sync with the backing store.
type Account struct {
	// ID is the record identifier assigned by the remote store.
	ID AccountIdentifier `json:"id"`
	// UserName is the login stored in the record.
	UserName string `json:"user_name"`
	// AccountName is the display name of the record.
	AccountName string `json:"account_name"`
}

// DisplayString returns a human readable label for the account.
func (a Account) DisplayString() string {
	if a.UserName == "" {
		return a.AccountName
	}
	return a.AccountName + " (" + a.UserName + ")"
}

// Matches reports whether filter occurs, ignoring case, in the account name
// or the user name. An empty filter matches every account.
func (a Account) Matches(filter string) bool {
	if filter == "" {
		return true
	}
	filter = strings.ToLower(filter)
	for _, field := range []string{a.AccountName, a.UserName} {
		if strings.Contains(strings.ToLower(field), filter) {
			return true
		}
	}
	return false
}

// ErrInvalidRequest is returned by request validation.
var ErrInvalidRequest = errors.New("invalid request")

// AddRequest describes a record to create.
type AddRequest struct {
	UserName    string `json:"user_name"`
	AccountName string `json:"account_name"`
	Password    string `json:"password"`
}

// Validate checks that the request can be streamed to lpass unambiguously.
func (r AddRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.AccountName) == "":
		return errors.Join(ErrInvalidRequest, errors.New("account name is required"))
	case strings.ContainsAny(r.AccountName, "\r\n"), strings.ContainsAny(r.UserName, "\r\n"):
		return errors.Join(ErrInvalidRequest, errors.New("names must be a single line"))
	case strings.ContainsAny(r.Password, "\r\n"):
		return errors.Join(ErrInvalidRequest, errors.New("password must be a single line"))
	}
	return nil
}

// SetPasswordRequest replaces the password of an existing record.
type SetPasswordRequest struct {
	AccountID   AccountIdentifier `json:"account_id"`
	NewPassword string            `json:"password"`
}

// Validate checks the identifier and the password.
func (r SetPasswordRequest) Validate() error {
	if !r.AccountID.Synced() {
		return errors.Join(ErrInvalidRequest, errors.New("account identifier is required"))
	}
	if strings.ContainsAny(r.NewPassword, "\r\n") {
		return errors.Join(ErrInvalidRequest, errors.New("password must be a single line"))
	}
	return nil
}

// Outcome values stored in Operation.Outcome.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Operation is an audit record of one account operation. It never carries
// secret material.
type Operation struct {
	// ID is a random UUID.
	ID string `json:"id"`
	// Name is the operation name ("list", "password", "set_password", ...).
	Name string `json:"name"`
	// AccountID is the addressed record, empty for listings.
	AccountID string `json:"account_id,omitempty"`
	// Outcome is OutcomeOK or OutcomeFailed.
	Outcome string `json:"outcome"`
	// Duration is the wall time the operation took.
	Duration time.Duration `json:"duration"`
	// CreatedAt is when the operation started.
	CreatedAt time.Time `json:"created_at"`
}
