package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Clav3rbot/BlackBoardSync/internal/app"
	"github.com/Clav3rbot/BlackBoardSync/internal/store"
	"github.com/Clav3rbot/BlackBoardSync/internal/syncer"
)

func runSync(args []string) int {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)

	configPath := fs.String("config", "", "Config file path")
	watch := fs.Bool("watch", false, "Keep running and sync on an interval")
	interval := fs.Duration("interval", 0, "Watch interval (default from config)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: bbsync sync [options]

Mirror course files into the sync directory. Files already present are
skipped; only new files are downloaded. With -watch the command keeps
running and repeats the pass on an interval.

Interrupt once to stop after in-flight downloads finish, twice to quit.

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
	if *interval > 0 {
		cfg.AutoSyncInterval = *interval
	}

	a, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n[bbsync] Interrupted, finishing in-flight downloads...")
		a.Abort()
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n[bbsync] Quitting")
		cancel()
	}()

	if _, err := a.AutoLogin(ctx); err != nil {
		if errors.Is(err, store.ErrNoCredentials) {
			fmt.Fprintln(os.Stderr, "Error: not logged in, run 'bbsync login' first")
			return ExitAuthError
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitAuthError
	}

	if code := syncOnce(ctx, a); code != ExitSuccess || !*watch {
		return code
	}

	fmt.Fprintf(os.Stderr, "[bbsync] Watching, next pass in %s\n", cfg.AutoSyncInterval)
	ticker := time.NewTicker(cfg.AutoSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ExitSuccess
		case <-ticker.C:
			if code := syncOnce(ctx, a); code != ExitSuccess {
				return code
			}
			fmt.Fprintf(os.Stderr, "[bbsync] Next pass in %s\n", cfg.AutoSyncInterval)
		}
	}
}

func syncOnce(ctx context.Context, a *app.App) int {
	result, err := a.Sync(ctx, printProgress)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitSyncError
	}

	if result.TotalDownloaded == 0 {
		fmt.Fprintf(os.Stderr, "[bbsync] Up to date: %d files checked\n", result.TotalScanned)
		return ExitSuccess
	}

	fmt.Fprintf(os.Stderr, "[bbsync] Downloaded %d of %d files in %s\n",
		result.TotalDownloaded, result.TotalScanned, result.Duration.Round(time.Millisecond))
	for _, course := range result.Courses {
		fmt.Fprintf(os.Stderr, "[bbsync]   %s: %d new\n", course.CourseName, len(course.Files))
	}
	return ExitSuccess
}

func printProgress(p syncer.Progress) {
	switch p.Phase {
	case syncer.PhaseScanning:
		fmt.Fprintf(os.Stderr, "\r[bbsync] Scanning course %d/%d", p.Current, p.Total)
	case syncer.PhaseDownloading:
		fmt.Fprintf(os.Stderr, "\r[bbsync] Downloading %d/%d: %s", p.Current, p.Total, p.CurrentFile)
	}
}
