package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/Clav3rbot/BlackBoardSync/internal/store"
)

func runCourses(args []string) int {
	fs := flag.NewFlagSet("courses", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: bbsync courses [options]

List enrolled courses with their term and instructor.

Options:`)
		fs.PrintDefaults()
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

	ctx := context.Background()
	if _, err := a.AutoLogin(ctx); err != nil {
		if errors.Is(err, store.ErrNoCredentials) {
			fmt.Fprintln(os.Stderr, "Error: not logged in, run 'bbsync login' first")
			return ExitAuthError
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitAuthError
	}

	courses, err := a.Courses(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOURSE\tTERM\tINSTRUCTOR")
	for _, c := range courses {
		term := ""
		if c.Term != nil {
			term = c.Term.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Name, term, c.Instructor)
	}
	w.Flush()

	return ExitSuccess
}
