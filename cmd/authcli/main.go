package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"agency-portal/internal/authcli"
	"agency-portal/internal/logging"
	"agency-portal/internal/sessionauth"

	"go.uber.org/zap"
)

const usage = `usage: authcli [-api URL] [-cookies PATH] [-v] <command> [email]

commands:
  whoami     show the logged-in account
  login      log in (prompts for the password)
  register   create an account and log in
  logout     end the session
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("authcli", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	apiURL := fs.String("api", envOr("AGENCY_API_URL", "http://localhost:3000"), "backend base URL")
	cookieFile := fs.String("cookies", envOr("AGENCY_COOKIE_FILE", defaultCookieFile()), "session cookie file")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := logging.New(logging.Config{Level: "debug", Dev: true})
		if err == nil {
			logger = l
			defer logger.Sync()
		}
	}

	client, err := sessionauth.New(sessionauth.Options{BaseURL: *apiURL, Logger: logger})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := authcli.NewApp(client, *cookieFile, os.Stdin, os.Stdout)
	if err := app.Run(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultCookieFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "agency-portal", "cookies.json")
}
