// Package main provides the filetrack CLI: it keeps numbered copies of a file
// in a hidden .track directory and diffs the file against its latest copy.
//
// Usage:
//   - commit : filetrack <file>           (or: filetrack commit <file>)
//   - diff   : filetrack -d <file>        (or: filetrack diff <file>)
//   - log    : filetrack log <file>
//   - watch  : filetrack watch <file>     (commit on every settled change)
//
// Exit status is 0 on success, 1 when the operation fails and 2 on usage
// errors.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"filetrack/internal/track"
	"filetrack/internal/watch"
)

// usageError marks errors that should exit with status 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI with args and returns the exit status.
func execute(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintln(stderr, "filetrack:", err)
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintln(stderr, "Run 'filetrack --help' for usage.")
		return 2
	}
	return 1
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var cfg Config

	root := &cobra.Command{
		Use:   "filetrack [-d] <file>",
		Short: "Keep numbered copies of a file and diff against the latest one",
		Long: `filetrack copies <file> into .track/<file>.NNN (001..999) in the work
directory. With -d it prints a unified diff from the latest copy to the
current file instead.`,
		Args:          exactFile,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.diff {
				return runDiff(cfg, args[0], stdout, stderr)
			}
			return runCommit(cfg, args[0], stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&cfg.workDir, "dir", "C", ".", "work directory holding .track; relative files resolve against it")
	pf.IntVar(&cfg.context, "context", 3, "context lines in unified diffs")
	pf.StringVar(&cfg.color, "color", "auto", "colour diff output: auto or never")
	pf.BoolVarP(&cfg.verbose, "verbose", "v", false, "debug logging to stderr (see also "+logEnv+")")
	root.Flags().BoolVarP(&cfg.diff, "diff", "d", false, "diff <file> against its latest snapshot")

	root.AddCommand(
		&cobra.Command{
			Use:   "commit <file>",
			Short: "Store a new snapshot of <file>",
			Args:  exactFile,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCommit(cfg, args[0], stdout, stderr)
			},
		},
		&cobra.Command{
			Use:   "diff <file>",
			Short: "Show changes since the latest snapshot of <file>",
			Args:  exactFile,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDiff(cfg, args[0], stdout, stderr)
			},
		},
		&cobra.Command{
			Use:   "log <file>",
			Short: "List stored snapshots of <file>",
			Args:  exactFile,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runLog(cfg, args[0], stdout, stderr)
			},
		},
		newWatchCmd(&cfg, stdout, stderr),
	)
	return root
}

func newWatchCmd(cfg *Config, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Commit <file> each time it changes, until interrupted",
		Args:  exactFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, *cfg, args[0], stdout, stderr)
		},
	}
	cmd.Flags().DurationVar(&cfg.debounce, "debounce", watch.DefaultDebounce, "quiet period before a change is committed")
	return cmd
}

func exactFile(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return usageError{err}
	}
	return nil
}

func newTracker(cfg Config, stdout, stderr io.Writer) (*track.Tracker, error) {
	opt, err := buildOptions(cfg)
	if err != nil {
		return nil, usageError{err}
	}
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return nil, usageError{err}
	}
	return track.New(archiveDir(cfg),
		track.WithOutput(stdout),
		track.WithLogger(logger),
		track.WithDiffOptions(opt),
	), nil
}

func runCommit(cfg Config, file string, stdout, stderr io.Writer) error {
	t, err := newTracker(cfg, stdout, stderr)
	if err != nil {
		return err
	}
	res, err := t.Handle(track.Commit(resolvePath(cfg, file)))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s -> %s\n", file, res.Snapshot.FileName())
	return nil
}

func runDiff(cfg Config, file string, stdout, stderr io.Writer) error {
	t, err := newTracker(cfg, stdout, stderr)
	if err != nil {
		return err
	}
	res, err := t.Handle(track.Diff(resolvePath(cfg, file)))
	if err != nil {
		return err
	}
	if len(res.Script) == 0 {
		fmt.Fprintf(stderr, "%s: no changes since %s\n", file, res.Snapshot.FileName())
	}
	return nil
}

func runLog(cfg Config, file string, stdout, stderr io.Writer) error {
	t, err := newTracker(cfg, stdout, stderr)
	if err != nil {
		return err
	}
	entries, err := t.Log(resolvePath(cfg, file))
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(stdout, "%s  %s  %8d  %s\n", e.Snapshot.FileName(), e.ModTime.UTC().Format(time.RFC3339), e.Size, e.Digest)
	}
	return nil
}

func runWatch(ctx context.Context, cfg Config, file string, stdout, stderr io.Writer) error {
	t, err := newTracker(cfg, stdout, stderr)
	if err != nil {
		return err
	}
	path := resolvePath(cfg, file)
	w, err := watch.New(path, cfg.debounce, func(p string) {
		snap, err := t.Commit(p)
		if err != nil {
			// Commit errors are reported and the watch goes on.
			fmt.Fprintln(stderr, "filetrack:", err)
			return
		}
		fmt.Fprintf(stdout, "%s -> %s\n", file, snap.FileName())
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stderr, "watching %s (debounce %s)\n", file, cfg.debounce.Round(time.Millisecond))

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		reportErrors(ctx, w.Errors, stderr)
	}()
	err = w.Run(ctx)
	cancel()
	<-done
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// reportErrors prints watcher errors to w until ctx is done.
func reportErrors(ctx context.Context, errs <-chan error, w io.Writer) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errs:
			fmt.Fprintln(w, "filetrack: watch:", err)
		}
	}
}
