package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/vk/cellgrid/internal/app"
	"github.com/vk/cellgrid/internal/notebookdir"
)

// Environment variables that provide defaults for the matching flags.
const (
	EnvLogLevel     = "CELLGRID_LOG_LEVEL"
	EnvLogFormat    = "CELLGRID_LOG_FORMAT"
	EnvBroadcastURL = "CELLGRID_BROADCAST_URL"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Variables from the env file fill in unset environment variables first.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("cellgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
cellgrid - A reactive notebook runner.

Usage:
  cellgrid [options] NOTEBOOK_DIR

Arguments:
  NOTEBOOK_DIR
    Directory of cells: *.hcl files are code cells, *.md files are prose.

Options:
`)
		flagSet.PrintDefaults()
	}

	envFile := envFileArg(args)
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("failed to load env file %s: %v", envFile, err)}
	}

	flagSet.String("env-file", ".env", "File with KEY=VALUE lines loaded into the environment.")
	notebookFlag := flagSet.String("notebook", "", "Path to the notebook directory.")
	nFlag := flagSet.String("n", "", "Path to the notebook directory (shorthand).")
	watchFlag := flagSet.Bool("watch", false, "Keep running and re-run cells when files change.")
	debounceFlag := flagSet.Duration("debounce", notebookdir.DefaultDebounce, "Quiet period after a file change before reloading.")
	broadcastURLFlag := flagSet.String("broadcast-url", os.Getenv(EnvBroadcastURL), "Socket.IO server receiving cell events. Empty disables broadcasting.")
	broadcastNSFlag := flagSet.String("broadcast-namespace", "/", "Socket.IO namespace for cell events.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server in watch mode. 0 is disabled.")
	cacheSizeFlag := flagSet.Int("analysis-cache-size", 0, "Maximum number of cached cell analyses. 0 uses the default.")
	logFormatFlag := flagSet.String("log-format", envOr(EnvLogFormat, "text"), "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", envOr(EnvLogLevel, "info"), "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *notebookFlag != "" {
		path = *notebookFlag
	} else if *nFlag != "" {
		path = *nFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Notebook path determined.", "path", path)

	if path == "" {
		slog.Debug("No notebook path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		NotebookPath:       path,
		Watch:              *watchFlag,
		Debounce:           *debounceFlag,
		BroadcastURL:       *broadcastURLFlag,
		BroadcastNamespace: *broadcastNSFlag,
		AnalysisCacheSize:  *cacheSizeFlag,
		HealthcheckPort:    *healthPortFlag,
		LogFormat:          logFormat,
		LogLevel:           logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// envFileArg finds --env-file ahead of flag parsing, since the file feeds
// the defaults of other flags.
func envFileArg(args []string) string {
	for i, arg := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || name != "env-file" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ".env"
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
