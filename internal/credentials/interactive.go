package credentials

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Authenticator exchanges a username and password for a token.
// *portal.Client satisfies it.
type Authenticator interface {
	Login(username, password string) (string, error)
}

// Interactive is a Provider that prompts on the terminal for credentials,
// logs in against the portal and persists the resulting token so the user
// only has to authenticate once.
type Interactive struct {
	Store *Store
	Auth  Authenticator

	// In and Out default to stdin/stdout; tests can redirect them.
	In  io.Reader
	Out io.Writer

	// ReadPassword reads a password without echo. Defaults to term.ReadPassword
	// on stdin; tests can substitute a plain reader.
	ReadPassword func() (string, error)
}

// Credentials returns stored credentials when present, otherwise runs the
// interactive login flow and persists the result.
func (p *Interactive) Credentials() (Credentials, error) {
	creds, ok, err := p.Store.Lookup()
	if err != nil {
		return Credentials{}, err
	}
	if ok {
		return creds, nil
	}

	in := p.In
	if in == nil {
		in = os.Stdin
	}
	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	readPassword := p.ReadPassword
	if readPassword == nil {
		readPassword = func() (string, error) {
			data, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(out)
			return string(data), err
		}
	}

	fmt.Fprintln(out, "You need a portal account to download mods.")
	fmt.Fprintln(out, "Your username and token (NOT your password) will be stored so that")
	fmt.Fprintln(out, "you only have to enter them once.")
	fmt.Fprintln(out)

	reader := bufio.NewReader(in)
	username := creds.Username

	for {
		if username != "" {
			fmt.Fprintf(out, "Username [%s]: ", username)
		} else {
			fmt.Fprint(out, "Username: ")
		}
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return Credentials{}, fmt.Errorf("reading username: %w", err)
		}
		if input := strings.TrimSpace(line); input != "" {
			username = input
		}
		if username == "" {
			continue
		}

		fmt.Fprint(out, "Password (not shown): ")
		password, err := readPassword()
		if err != nil {
			return Credentials{}, fmt.Errorf("reading password: %w", err)
		}
		if password == "" {
			continue
		}

		token, err := p.Auth.Login(username, password)
		if err != nil {
			fmt.Fprintf(out, "Login failed: %v\n\n", err)
			continue
		}

		fmt.Fprintln(out, "Logged in successfully.")
		creds = Credentials{Username: username, Token: token}
		if err := p.Store.Save(creds); err != nil {
			return Credentials{}, err
		}
		return creds, nil
	}
}
