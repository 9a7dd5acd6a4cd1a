package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/arclightning/arclight/config"
	"github.com/arclightning/arclight/password"
)

var (
	errEmptyPassword    = errors.New("password must not be empty")
	errPasswordMismatch = errors.New("passwords do not match")
)

// passwordPrompter reads a password without echo when in is a terminal and
// line by line otherwise, so set-password also works from a pipe.
type passwordPrompter struct {
	in    io.Reader
	out   io.Writer
	lines *bufio.Reader
}

func newPasswordPrompter(in io.Reader, out io.Writer) *passwordPrompter {
	return &passwordPrompter{in: in, out: out, lines: bufio.NewReader(in)}
}

func (p *passwordPrompter) prompt(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := p.lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// setPassword asks for the new password twice and stores its bcrypt hash in
// the config file. The rest of the file is kept as written.
func setPassword(cfg config.Config, in io.Reader, out io.Writer) error {
	p := newPasswordPrompter(in, out)
	first, err := p.prompt("New password: ")
	if err != nil {
		return err
	}
	if first == "" {
		return errEmptyPassword
	}
	second, err := p.prompt("Repeat password: ")
	if err != nil {
		return err
	}
	if first != second {
		return errPasswordMismatch
	}

	file, err := config.DecodeFile(cfg.ConfigFile)
	if err != nil {
		return err
	}
	hash, err := password.Hash(first, cfg.BcryptCost)
	if err != nil {
		return err
	}
	file.Password = hash
	if err := file.Save(cfg.ConfigFile); err != nil {
		return err
	}
	fmt.Fprintf(out, "Password updated in %s\n", cfg.ConfigFile)
	return nil
}
