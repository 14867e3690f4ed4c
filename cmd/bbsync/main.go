package main

import (
	"fmt"
	"os"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/Clav3rbot/BlackBoardSync/internal/app"
	"github.com/Clav3rbot/BlackBoardSync/internal/config"
	"github.com/Clav3rbot/BlackBoardSync/internal/logging"
	"github.com/Clav3rbot/BlackBoardSync/internal/store"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitInvalidArgs  = 2
	ExitAuthError    = 3
	ExitSyncError    = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	logging.Init(logging.Config{
		Level:      os.Getenv("BBSYNC_LOG_LEVEL"),
		Format:     "console",
		OutputPath: "stderr",
	})
	defer logging.Sync()

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "login":
		return runLogin(cmdArgs)
	case "logout":
		return runLogout(cmdArgs)
	case "courses":
		return runCourses(cmdArgs)
	case "sync":
		return runSync(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: bbsync <command> [options]

Commands:
  login    Sign in to the Learn instance and save credentials
  logout   Discard the session and saved credentials
  courses  List enrolled courses
  sync     Mirror course files into the sync directory
  help     Show this message

Run 'bbsync <command> -h' for command-specific help.`)
}

// loadConfig resolves the effective configuration: file (explicit path or
// the default location), then environment overrides.
func loadConfig(path string) (config.Config, error) {
	explicit := path != ""
	if path == "" {
		path = config.DefaultPath()
	}

	var cfg config.Config
	if _, err := os.Stat(path); err == nil {
		cfg, err = config.LoadFromFile(path)
		if err != nil {
			return config.Config{}, err
		}
	} else if explicit {
		return config.Config{}, fmt.Errorf("config file %s: %w", path, err)
	} else {
		cfg = config.Default()
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newApp(cfg config.Config) (*app.App, error) {
	st, err := store.New(store.DefaultDir())
	if err != nil {
		return nil, err
	}
	return app.New(cfg, st), nil
}
