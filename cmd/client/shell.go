package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/lpbridge/internal/prompt"
	"github.com/atinyakov/lpbridge/internal/service"
)

// repl runs the interactive shell loop until "exit" or end of input.
func (a *app) repl(ctx context.Context) {
	for {
		fmt.Fprint(a.out, "lpbridge> ")
		line, err := prompt.ReadLine(a.in)
		if err != nil {
			fmt.Fprintln(a.out)
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}

		var cmdErr error
		switch args[0] {
		case "help":
			fmt.Fprintln(a.out, "Available commands: help, ls [filter], show <id>, set <id>, rm <id>, add <name> [user], status, reset, exit")
		case "ls":
			cmdErr = a.list(ctx, strings.Join(args[1:], " "))
		case "show", "set", "rm":
			if len(args) != 2 {
				fmt.Fprintf(a.out, "Usage: %s <id>\n", args[0])
				continue
			}
			switch args[0] {
			case "show":
				cmdErr = a.show(ctx, args[1])
			case "set":
				cmdErr = a.setPassword(ctx, args[1])
			case "rm":
				cmdErr = a.remove(ctx, args[1])
			}
		case "add":
			if len(args) < 2 || len(args) > 3 {
				fmt.Fprintln(a.out, "Usage: add <name> [user]")
				continue
			}
			var user string
			if len(args) == 3 {
				user = args[2]
			}
			cmdErr = a.add(ctx, args[1], user)
		case "status":
			cmdErr = a.status(ctx)
		case "reset":
			cmdErr = a.reset()
		case "exit":
			fmt.Fprintln(a.out, "Bye")
			return
		default:
			fmt.Fprintln(a.out, "Unknown command. Type 'help' for a list of commands.")
		}
		// Failed operations were already reported by the notifier.
		if cmdErr != nil && !errors.Is(cmdErr, service.ErrOperationFailed) {
			fmt.Fprintln(a.out, "Error:", cmdErr)
		}
	}
}
