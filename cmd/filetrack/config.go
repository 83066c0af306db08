package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"filetrack/internal/diff"
	"filetrack/internal/store"
)

// Config holds every CLI setting. Defaults are set in newRootCmd.
type Config struct {
	workDir  string
	diff     bool
	context  int
	color    string
	debounce time.Duration
	verbose  bool
}

// logEnv overrides the log level: debug, info, warn or error.
const logEnv = "FILETRACK_LOG"

// quiet is above every level the core logs at.
const quiet = slog.LevelError + 4

// archiveDir is where snapshots for cfg.workDir live.
func archiveDir(cfg Config) string {
	return filepath.Join(cfg.workDir, store.DirName)
}

// resolvePath makes a relative file argument relative to the work dir.
func resolvePath(cfg Config, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(cfg.workDir, p)
}

// buildOptions validates the rendering flags.
func buildOptions(cfg Config) (diff.Options, error) {
	// diff.Options treats zero as "use the default", so 0 cannot be passed on.
	if cfg.context < 1 {
		return diff.Options{}, fmt.Errorf("--context must be >= 1, got %d", cfg.context)
	}
	opt := diff.Options{Context: cfg.context}
	switch cfg.color {
	case "auto", "":
		opt.Color = true
	case "never":
	default:
		return diff.Options{}, fmt.Errorf("--color must be auto or never, got %q", cfg.color)
	}
	return opt, nil
}

// logLevel picks the level from --verbose, then FILETRACK_LOG, else quiet.
func logLevel(cfg Config, env string) (slog.Level, error) {
	if cfg.verbose {
		return slog.LevelDebug, nil
	}
	if env == "" {
		return quiet, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(env))); err != nil {
		return 0, fmt.Errorf("%s: %w", logEnv, err)
	}
	return lvl, nil
}

func newLogger(cfg Config, w io.Writer) (*slog.Logger, error) {
	lvl, err := logLevel(cfg, os.Getenv(logEnv))
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
