package lastpass

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/atinyakov/lpbridge/internal/command"
	"github.com/atinyakov/lpbridge/internal/models"
)

// listFormat makes lpass print "id<TAB>name<TAB>username" per account.
const listFormat = "--format=%ai\t%an\t%au"

var (
	errNotUTF8      = errors.New("stdout is not valid UTF-8")
	errNoIdentifier = errors.New("no identifier in output")
)

func stdoutText(out *command.Output) (string, error) {
	if !utf8.Valid(out.Stdout) {
		return "", newError(KindBadOutput, "", errNotUTF8)
	}
	return string(out.Stdout), nil
}

// parseAccounts keeps lines with exactly three fields and a synced id.
func parseAccounts(out *command.Output) ([]models.Account, error) {
	text, err := stdoutText(out)
	if err != nil {
		return nil, err
	}
	accounts := make([]models.Account, 0)
	for _, line := range strings.Split(text, "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) != 3 {
			continue
		}
		id := models.AccountIdentifier(parts[0])
		if !id.Synced() {
			continue
		}
		accounts = append(accounts, models.Account{
			ID:          id,
			AccountName: parts[1],
			UserName:    parts[2],
		})
	}
	return accounts, nil
}

func parsePassword(out *command.Output) (string, error) {
	text, err := stdoutText(out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// parseIdentifier takes the last line of output. lpass may print progress
// lines before the id.
func parseIdentifier(out *command.Output) (models.AccountIdentifier, error) {
	text, err := stdoutText(out)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", newError(KindBadOutput, "", errNoIdentifier)
	}
	lines := strings.Split(text, "\n")
	id := models.AccountIdentifier(strings.TrimSpace(lines[len(lines)-1]))
	if !id.Synced() {
		return "", newError(KindSyncFailed, "", nil)
	}
	return id, nil
}
