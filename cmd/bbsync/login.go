package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/Clav3rbot/BlackBoardSync/internal/auth"
)

func runLogin(args []string) int {
	fs := flag.NewFlagSet("login", flag.ExitOnError)

	configPath := fs.String("config", "", "Config file path")
	baseURL := fs.String("url", "", "Learn instance base URL (overrides config)")
	username := fs.String("username", "", "Username (prompted when omitted)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: bbsync login [options]

Sign in through the institution's single sign-on and save the credentials
so later commands can log in unattended.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	if *baseURL != "" {
		os.Setenv("BBSYNC_BASE_URL", *baseURL)
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	a, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	user := *username
	if user == "" {
		user, err = promptLine("Username: ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitGeneralError
		}
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	who, err := a.Login(context.Background(), user, password)
	if err != nil {
		var credErr *auth.CredentialsError
		if errors.As(err, &credErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", credErr)
			return ExitAuthError
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	fmt.Fprintf(os.Stderr, "[bbsync] Logged in as %s %s (%s)\n", who.Name.Given, who.Name.Family, who.UserName)
	return ExitSuccess
}

func runLogout(args []string) int {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: bbsync logout

Discard the session and clear the saved credentials.`)
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	a, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}
	if err := a.Logout(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	fmt.Fprintln(os.Stderr, "[bbsync] Logged out")
	return ExitSuccess
}

func promptLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads without echo when stdin is a terminal, and falls back
// to a plain line read when input is piped.
func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptLine(prompt)
	}

	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
