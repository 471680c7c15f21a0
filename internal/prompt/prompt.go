// Package prompt implements the interactive collaborators of the lastpass
// package for terminals and headless processes.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/atinyakov/lpbridge/internal/lastpass"
)

var (
	_ lastpass.SecretPrompter = (*Terminal)(nil)
	_ lastpass.SecretPrompter = File{}
	_ lastpass.SecretPrompter = Decline{}
)

// ErrEmpty is returned by ReadLine when the input ended before any byte.
var ErrEmpty = errors.New("prompt: no input")

// ReadLine reads one line from r without the line terminator. It reads a
// byte at a time so that nothing past the newline is consumed.
func ReadLine(r io.Reader) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n == 1 {
			if buf[0] == '\n' {
				break
			}
			sb.WriteByte(buf[0])
		}
		if err == io.EOF {
			if sb.Len() == 0 {
				return "", ErrEmpty
			}
			break
		}
		if err != nil {
			return "", err
		}
	}
	return strings.TrimSuffix(sb.String(), "\r"), nil
}

// Terminal prompts on Out and reads answers from In. Secrets are read with
// echo disabled when In is a terminal.
type Terminal struct {
	In  *os.File
	Out io.Writer

	mu sync.Mutex
}

// NewTerminal prompts on stderr and reads stdin.
func NewTerminal() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stderr}
}

// PromptForSecret asks for a secret. An empty answer or closed input
// declines.
func (t *Terminal) PromptForSecret(message string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprint(t.Out, message+" ")
	var secret string
	if fd := int(t.In.Fd()); term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(t.Out)
		if err != nil {
			return "", false
		}
		secret = string(b)
	} else {
		line, err := ReadLine(t.In)
		if err != nil {
			return "", false
		}
		secret = line
	}
	if secret == "" {
		return "", false
	}
	return secret, true
}

// Ask reads a visible answer.
func (t *Terminal) Ask(message string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprint(t.Out, message+" ")
	return ReadLine(t.In)
}

// File answers every prompt with the first line of a file. It suits
// headless processes such as the HTTP bridge.
type File struct {
	Path string
}

func (f File) PromptForSecret(string) (string, bool) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return "", false
	}
	defer fh.Close()
	line, err := ReadLine(fh)
	if err != nil || line == "" {
		return "", false
	}
	return line, true
}

// Decline refuses every prompt.
type Decline struct{}

func (Decline) PromptForSecret(string) (string, bool) { return "", false }
