// Package main is the askpass helper named by LPASS_ASKPASS. lpass runs it
// with the prompt as its argument and reads the answer from its stdout.
// The helper inherits lpass' stdin and stderr, so the challenge is relayed
// to whoever drives lpass: it writes the prompt to stderr and answers with
// the first line read from stdin.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/atinyakov/lpbridge/internal/prompt"
)

const defaultPrompt = "Master Password:"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	msg := defaultPrompt
	if len(args) > 0 && args[0] != "" {
		msg = args[0]
	}
	fmt.Fprint(stderr, msg+" ")

	answer, err := prompt.ReadLine(stdin)
	if err != nil {
		fmt.Fprintln(stderr)
		return 1
	}
	fmt.Fprintln(stdout, answer)
	return 0
}
