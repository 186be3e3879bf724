package cli

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/awnumar/memguard"
	"golang.org/x/term"
)

// prompter reads interactive input. Hidden reads go through the
// terminal when stdin is one and fall back to plain line reads so piped
// input and tests behave the same way.
type prompter struct {
	tty    *os.File
	lines  *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

func newPrompter(in io.Reader, out, errOut io.Writer) *prompter {
	p := &prompter{
		lines:  bufio.NewReader(in),
		out:    out,
		errOut: errOut,
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.tty = f
	}
	return p
}

// Secret reads one line without echo. The prompt label goes to stderr
// so redirected stdout stays clean.
func (p *prompter) Secret(prompt string) ([]byte, error) {
	fmt.Fprint(p.errOut, prompt+" ")
	if p.tty != nil {
		value, err := term.ReadPassword(int(p.tty.Fd()))
		fmt.Fprintln(p.errOut)
		if err != nil {
			return nil, fmt.Errorf("read hidden input: %w", err)
		}
		return value, nil
	}
	line, err := p.readLine()
	if err != nil {
		return nil, err
	}
	return []byte(line), nil
}

// Line prints prompt to stdout and reads one visible line.
func (p *prompter) Line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt+" ")
	return p.readLine()
}

func (p *prompter) readLine() (string, error) {
	line, err := p.lines.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) || line == "" {
			return "", fmt.Errorf("read input: %w", err)
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptNewPassword asks for a password twice and repeats until both
// entries match, like pass insert does.
func promptNewPassword(deps commandDeps, name string) ([]byte, error) {
	for {
		password, err := deps.prompt.Secret(fmt.Sprintf("Enter password for %s:", name))
		if err != nil {
			return nil, err
		}
		confirm, err := deps.prompt.Secret(fmt.Sprintf("Retype password for %s:", name))
		if err != nil {
			memguard.WipeBytes(password)
			return nil, err
		}
		if bytes.Equal(password, confirm) {
			memguard.WipeBytes(confirm)
			return password, nil
		}
		memguard.WipeBytes(password)
		memguard.WipeBytes(confirm)
		fmt.Fprint(deps.errOut, "Error: the entered passwords do not match.\n")
	}
}

// confirmOverwrite asks the overwrite question and defaults to no.
func confirmOverwrite(deps commandDeps, name string) (bool, error) {
	answer, err := deps.prompt.Line(fmt.Sprintf("An entry already exists for %s. Overwrite it? [y/N]", name))
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(answer), "y"), nil
}
