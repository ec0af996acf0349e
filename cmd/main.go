package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/0xlemi/guitartuner/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

// logger is the package-wide structured logger, replaced by initLogger
var logger = slog.Default()

var (
	configPath string
	logLevel   string
	logFile    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "guitartuner",
	Short: "Terminal instrument tuner",
	Long: `guitartuner listens to the default input device, detects the pitch
of the note being played and shows how far it is from the target string.

Examples:
  guitartuner
  guitartuner listen --tuning "Drop D"
  guitartuner listen --chromatic
  guitartuner listen --simulate 110 --headless
  guitartuner tunings --instrument bass
  guitartuner note 329.63`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runListen,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")

	addListenFlags(rootCmd)
	addListenFlags(listenCmd)

	rootCmd.AddCommand(listenCmd, tuningsCmd, noteCmd)
}

// initLogger configures the shared slog logger and makes it the default.
// Output goes to w; debug level adds source locations.
func initLogger(level slog.Level, w io.Writer) {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

// loadConfig reads --config if given, then applies --log-level
func loadConfig() (config.Config, error) {
	cfg := config.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return cfg, err
		}
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// logOutput opens the log destination. When the terminal UI owns the
// screen and no file is given, logs are dropped.
func logOutput(tui bool) (io.Writer, func() error, error) {
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		return f, f.Close, nil
	}
	if tui {
		return io.Discard, func() error { return nil }, nil
	}
	return os.Stderr, func() error { return nil }, nil
}
