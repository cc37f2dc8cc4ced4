package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/handiism/playlist-archiver/internal/config"
	"github.com/handiism/playlist-archiver/internal/download"
	"github.com/handiism/playlist-archiver/internal/model"
	"github.com/urfave/cli/v3"
)

// Runner holds the dependencies of the CLI commands and provides one method
// per command action.
type Runner struct {
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a Runner, filling in defaults for nil options.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = newLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Runner{logger: opts.Logger, output: opts.Output}
}

// logOutput receives progress and log lines unless a writer is given.
var logOutput io.Writer = os.Stdout

func newLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = logOutput
	}
	return log.NewWithOptions(w, log.Options{ReportTimestamp: true})
}

// Run archives every item of the manifest.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	settings, err := r.loadSettings(cmd)
	if err != nil {
		return err
	}
	if cmd.Bool("verbose") {
		r.logger.SetLevel(log.DebugLevel)
	}

	logger := r.logger.With("run", uuid.New().String()[:8])

	collections, err := model.LoadManifest(settings.ManifestPath, settings.OutputPath)
	if err != nil {
		return err
	}

	sup := download.NewSupervisor(settings, download.NewDeps(settings, func(e download.ProgressEvent) {
		logEvent(logger, e)
	}))

	snapshot, err := sup.Run(ctx, collections)
	if ctx.Err() != nil {
		logger.Warn("interrupted", "done", snapshot.Total.Done(), "total", snapshot.Total.Total)
		return cli.Exit("interrupted", 130)
	}
	if err != nil {
		return err
	}
	if snapshot.Total.Fail > 0 {
		logger.Warn("some items failed, re-run to retry them", "failed", snapshot.Total.Fail)
	}
	return nil
}

// Plan reports the on-disk state of every collection of the manifest.
func (r *Runner) Plan(_ context.Context, cmd *cli.Command) error {
	settings, err := r.loadSettings(cmd)
	if err != nil {
		return err
	}

	collections, err := model.LoadManifest(settings.ManifestPath, settings.OutputPath)
	if err != nil {
		return err
	}

	var total download.CollectionPlan
	for _, p := range download.Plan(collections) {
		r.writePlain("%-40s %4d archived  %4d pending  %4d failed\n", p.Collection.Name, p.Archived, p.Pending, p.Failed)
		total.Archived += p.Archived
		total.Pending += p.Pending
		total.Failed += p.Failed
	}
	r.writePlain("%-40s %4d archived  %4d pending  %4d failed\n", "TOTAL", total.Archived, total.Pending, total.Failed)
	return nil
}

// ConfigInit writes the default settings to the --config path.
func (r *Runner) ConfigInit(_ context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}

	if err := config.DefaultSettings().Save(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	r.writePlain("✓ Wrote %s\n", path)
	return nil
}

// loadSettings reads the configuration file and applies flag and
// environment overrides on top of it.
func (r *Runner) loadSettings(cmd *cli.Command) (*config.Settings, error) {
	settings, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("manifest") {
		settings.ManifestPath = cmd.String("manifest")
	}
	if cmd.IsSet("output") {
		settings.OutputPath = cmd.String("output")
	}
	if cmd.IsSet("temp") {
		settings.TempPath = cmd.String("temp")
	}
	if cmd.IsSet("workers") {
		settings.Workers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("provider-url") {
		settings.ProviderURL = cmd.String("provider-url")
	}
	if cmd.IsSet("provider-token") {
		settings.ProviderToken = cmd.String("provider-token")
	}
	if cmd.IsSet("bitrate") {
		settings.Bitrate = cmd.String("bitrate")
	}
	if cmd.IsSet("playlist") {
		settings.CreatePlaylist = cmd.Bool("playlist")
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// logEvent renders a progress event as a log line.
func logEvent(logger *log.Logger, e download.ProgressEvent) {
	if e.Worker >= 0 {
		logger = logger.With("worker", e.Worker+1)
	}

	switch e.Level {
	case download.LevelVerbose:
		logger.Debug(e.Message)
	case download.LevelWarning:
		logger.Warn(e.Message)
	case download.LevelError:
		logger.Error(e.Message)
	case download.LevelSummary:
		if e.Counters.Total > 0 {
			logger = logger.With("done", e.Counters.Done(), "total", e.Counters.Total)
		}
		logger.Info(e.Message)
	default:
		logger.Info(e.Message)
	}
}

func (r *Runner) writePlain(format string, args ...any) {
	fmt.Fprintf(r.output, format, args...)
}
