package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// isTerminal reports whether r is an interactive terminal.
var isTerminal = func(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// prompter reads answers from the command's input.
type prompter struct {
	in  io.Reader
	r   *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, r: bufio.NewReader(in), out: out}
}

// text prints prompt and reads one trimmed line. A last line without newline is accepted.
func (p *prompter) text(prompt string) (string, error) {
	if _, err := fmt.Fprint(p.out, prompt+": "); err != nil {
		return "", err
	}
	line, err := p.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// password reads a secret without echo on terminals, or as a plain line otherwise.
func (p *prompter) password(prompt string) (string, error) {
	f, ok := p.in.(*os.File)
	if !ok || !isTerminal(p.in) {
		return p.text(prompt)
	}
	if _, err := fmt.Fprint(p.out, prompt+": "); err != nil {
		return "", err
	}
	pw, err := readPassword(int(f.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// orAsk returns value, or asks for it when empty.
func (p *prompter) orAsk(value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	return p.text(prompt)
}

// orAskSecret returns value, or asks for it without echo when empty.
func (p *prompter) orAskSecret(value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	return p.password(prompt)
}
