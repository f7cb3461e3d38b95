package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/handiism/album-dl/internal/config"
	"github.com/handiism/album-dl/internal/download"
	"github.com/handiism/album-dl/internal/logging"
	"github.com/handiism/album-dl/internal/model"
)

// Exit codes.
const (
	exitOK          = 0
	exitSetup       = 1
	exitInterrupted = 130
)

var (
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#95E1A3"))
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFE66D"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C757D"))
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(os.Stdout, os.Stderr)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(ctx, err))
}

func exitCode(ctx context.Context, err error) int {
	if ctx.Err() != nil {
		return exitInterrupted
	}
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitSetup
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	v := config.New()

	var (
		configPath string
		verbose    bool
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "album-dl <album-url>",
		Short: "Download every track of an album listing, resuming where the last run stopped",
		Long: "album-dl fetches an album listing page, resolves each track's metadata and\n" +
			"downloads the media files into <output>/<album title>. Interrupted or failed\n" +
			"downloads are resumed by running the same command again.\n\n" +
			"For interactive mode, use: album-tui",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(v, configPath)
			if err != nil {
				return &exitError{code: exitSetup, err: err}
			}
			if verbose {
				settings.LogLevel = "debug"
			}
			return run(cmd.Context(), settings, args[0], dryRun, stdout, stderr)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "Path to config file (default: album-dl.yaml in the user config dir or working dir)")
	flags.String("naming", string(model.NamingDefault), "File naming policy: default or track (prefix with track ID)")
	flags.StringP("extension", "e", string(model.ExtensionM4A), "Target extension: m4a or mp3")
	flags.IntP("concurrency", "c", download.DefaultConcurrency, "Maximum items processed at once")
	flags.StringP("output", "o", "", "Output root directory (overrides config)")
	flags.String("cache-dir", "", "Cache directory (overrides config)")
	flags.Bool("playlist", false, "Create playlist file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")
	flags.BoolVar(&dryRun, "dry-run", false, "Resolve the listing without downloading")

	// A flag only overrides the config when it was set on the command line.
	for key, name := range map[string]string{
		"naming":          "naming",
		"extension":       "extension",
		"concurrency":     "concurrency",
		"output_root":     "output",
		"cache_dir":       "cache-dir",
		"create_playlist": "playlist",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	cmd.AddCommand(newInitConfigCmd(stdout))
	return cmd
}

func newInitConfigCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write the default settings to a config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigPath()
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return &exitError{code: exitSetup, err: fmt.Errorf("%s already exists", path)}
			}
			if err := config.DefaultSettings().Save(path); err != nil {
				return &exitError{code: exitSetup, err: err}
			}
			fmt.Fprintf(stdout, "Wrote %s\n", path)
			return nil
		},
	}
}

func run(ctx context.Context, settings *config.Settings, albumURL string, dryRun bool, stdout, stderr io.Writer) error {
	level, _ := logging.ParseLevel(settings.LogLevel)
	logger := logging.New(stderr, level)

	opts := settings.PipelineOptions()
	manager, err := download.NewManager(opts, progressLogger(logger))
	if err != nil {
		return &exitError{code: exitSetup, err: err}
	}

	if opts.Extension != model.ExtensionM4A && !manager.CanConvert() {
		logger.Warn("ffmpeg not found, items that need conversion will fail", "ffmpeg_path", settings.FFmpegPath)
	}

	job, err := manager.Resolve(ctx, albumURL)
	if err != nil {
		logger.Error("could not resolve album", "url", albumURL, "kind", model.Kind(err), "err", err)
		return &exitError{code: exitSetup, err: err}
	}

	if dryRun {
		printJob(stdout, job)
		return nil
	}

	result := manager.Run(ctx, job, settings.Concurrency)
	received, _, _, _ := manager.GetProgress()
	printSummary(stdout, job, result, received)

	return nil
}

// progressLogger maps download events onto logger levels.
func progressLogger(logger *log.Logger) func(download.ProgressEvent) {
	var (
		mu     sync.Mutex
		runID  string
		runLog = logger
	)
	forRun := func(id string) *log.Logger {
		if id == "" {
			return logger
		}
		mu.Lock()
		defer mu.Unlock()
		if id != runID {
			runID, runLog = id, logging.WithRun(logger, id)
		}
		return runLog
	}

	return func(event download.ProgressEvent) {
		l := forRun(event.RunID)

		var kv []any
		if event.ItemID != "" {
			kv = append(kv, "item", event.ItemID)
		}

		switch event.Level {
		case download.LevelVerbose:
			l.Debug(event.Message, kv...)
		case download.LevelWarning:
			l.Warn(event.Message, kv...)
		case download.LevelError:
			l.Error(event.Message, kv...)
		default:
			l.Info(event.Message, kv...)
		}
	}
}

func printJob(w io.Writer, job *model.AlbumJob) {
	fmt.Fprintf(w, "%s (%d tracks)\n", job.Title, len(job.Items))
	fmt.Fprintln(w, dimStyle.Render("-> "+job.Path))
	for _, ref := range job.Items {
		fmt.Fprintf(w, "  %3d  %-12s %s\n", ref.Index, ref.ID, ref.MetadataURL)
	}
	fmt.Fprintln(w, dimStyle.Render("[Dry run - not downloading]"))
}

func printSummary(w io.Writer, job *model.AlbumJob, result *model.RunResult, received int64) {
	fmt.Fprintln(w)
	if result.OK() {
		fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✓ %s: %d/%d items complete (%.2f MB received)",
			job.Title, result.Total, result.Total, float64(received)/1024/1024)))
		return
	}

	fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("! %s: %d of %d items failed (%.2f MB received)",
		job.Title, result.Failed, result.Total, float64(received)/1024/1024)))
	for _, f := range result.Failures {
		fmt.Fprintf(w, "  ✗ %s [%s] %v\n", f.Ref.ID, model.Kind(f.Err), f.Err)
	}
	fmt.Fprintln(w, warningStyle.Render("Some items failed. Run the same command again to resume them."))
}
