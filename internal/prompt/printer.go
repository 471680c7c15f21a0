package prompt

import (
	"fmt"
	"io"

	"github.com/atinyakov/lpbridge/internal/lastpass"
)

var _ lastpass.Notifier = Printer{}

// Printer writes failure notices to Out, one per line.
type Printer struct {
	Out io.Writer
}

func (p Printer) NotifyTimeout(message string) {
	fmt.Fprintf(p.Out, "Timeout: %s\n", message)
}

func (p Printer) NotifyLoginRequired() {
	fmt.Fprintf(p.Out, "Login needed: %s\n", lastpass.LoginHint)
}

func (p Printer) NotifyFailure(message string, err error) {
	if err == nil {
		fmt.Fprintln(p.Out, message)
		return
	}
	fmt.Fprintf(p.Out, "%s (%s)\n", message, lastpass.KindOf(err).String())
}
