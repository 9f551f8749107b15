// Package credential supplies provider API keys. A Secret never prints its value.
package credential

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"ragchat/internal/domain"
)

const redacted = "****"

// Secret holds an opaque credential. Formatting, logging and JSON encoding all
// see a redacted placeholder; only Reveal returns the value.
type Secret struct {
	value string
}

func NewSecret(value string) Secret { return Secret{value: value} }

func (s Secret) Reveal() string { return s.value }

func (s Secret) IsZero() bool { return s.value == "" }

func (s Secret) String() string {
	if s.value == "" {
		return ""
	}
	return redacted
}

func (s Secret) GoString() string { return "credential.Secret{" + s.String() + "}" }

func (s Secret) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Prompter asks the user for a secret value.
type Prompter interface {
	ReadSecret(label string) (string, error)
}

// TerminalPrompter reads without echo when In is a terminal and falls back to a
// plain line read otherwise.
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

func (p TerminalPrompter) ReadSecret(label string) (string, error) {
	in, out := p.In, p.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprint(out, label)
	defer fmt.Fprintln(out)

	if term.IsTerminal(int(in.Fd())) {
		b, err := term.ReadPassword(int(in.Fd()))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Resolve reads the credential from envVar, asking prompter when the variable is
// unset. A nil prompter makes a missing variable a configuration error.
func Resolve(envVar string, prompter Prompter) (Secret, error) {
	if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
		return NewSecret(v), nil
	}
	if prompter == nil {
		return Secret{}, domain.Configf("%s is not set", envVar)
	}
	v, err := prompter.ReadSecret(fmt.Sprintf("%s is not set. Enter it: ", envVar))
	if err != nil {
		return Secret{}, fmt.Errorf("reading %s: %w", envVar, err)
	}
	if v == "" {
		return Secret{}, domain.Configf("%s: empty credential", envVar)
	}
	return NewSecret(v), nil
}
