// Package authcli is a terminal front end for the session facade. The
// session cookie is kept in a file so consecutive runs share one login.
package authcli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"agency-portal/internal/sessionauth"
)

type App struct {
	client     *sessionauth.Client
	cookieFile string
	reader     *bufio.Reader
	out        io.Writer
}

func NewApp(client *sessionauth.Client, cookieFile string, in io.Reader, out io.Writer) *App {
	return &App{
		client:     client,
		cookieFile: cookieFile,
		reader:     bufio.NewReader(in),
		out:        out,
	}
}

// Run restores the saved session, executes command and saves the session
// again.
func (a *App) Run(ctx context.Context, command string, args []string) error {
	if a.cookieFile != "" {
		if _, err := a.client.API().LoadCookies(a.cookieFile); err != nil {
			return err
		}
	}

	var err error
	switch command {
	case "whoami":
		err = a.whoami(ctx)
	case "login":
		err = a.login(ctx, args)
	case "register":
		err = a.register(ctx, args)
	case "logout":
		err = a.logout(ctx)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		return err
	}

	if a.cookieFile != "" {
		return a.client.API().SaveCookies(a.cookieFile)
	}
	return nil
}

func (a *App) whoami(ctx context.Context) error {
	u, err := a.client.CurrentUser(ctx)
	if err != nil {
		return err
	}

	st := a.client.State()
	switch {
	case u != nil:
		fmt.Fprintf(a.out, "Logged in as %s (%s)\n", u.Email(), u.ID())
	case st.IdentityCheckFailed:
		fmt.Fprintln(a.out, "Not logged in (the server could not be reached)")
	default:
		fmt.Fprintln(a.out, "Not logged in")
	}
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	email, err := a.emailArg(args)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	u, err := a.client.Login(ctx, email, password)
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", u.Email())
	return nil
}

func (a *App) register(ctx context.Context, args []string) error {
	email, err := a.emailArg(args)
	if err != nil {
		return err
	}
	in := sessionauth.RegisterInput{Email: email}
	if in.FirstName, err = getText(a.reader, "First name", a.out); err != nil {
		return err
	}
	if in.LastName, err = getText(a.reader, "Last name", a.out); err != nil {
		return err
	}
	if in.Phone, err = getText(a.reader, "Phone", a.out); err != nil {
		return err
	}
	if in.Password, err = getPassword(a.out); err != nil {
		return err
	}

	u, err := a.client.Register(ctx, in)
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(a.out, "Account created, logged in as %s\n", u.Email())
	return nil
}

func (a *App) logout(ctx context.Context) error {
	if err := a.client.Logout(ctx); err != nil {
		return describe(err)
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) emailArg(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	return getText(a.reader, "Email", a.out)
}

// describe keeps server-supplied messages as they are and marks anything
// else as a connection problem.
func describe(err error) error {
	if sessionauth.IsAuthenticationError(err) || errors.Is(err, sessionauth.ErrClosed) {
		return err
	}
	return fmt.Errorf("could not reach the server: %w", err)
}
