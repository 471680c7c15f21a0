// Package main is the lpbridge command line client. It manages the
// accounts of one lpass folder through the lpass CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/atinyakov/lpbridge/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd(&app{out: os.Stdout}).ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	// Failed operations were already reported by the notifier.
	if !errors.Is(err, service.ErrOperationFailed) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(1)
}
