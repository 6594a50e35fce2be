// Package main is the edgardiff command: it builds the filing difference dataset and serves
// the read-only API over it.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/aristath/edgardiff/internal/config"
	"github.com/aristath/edgardiff/internal/di"
	filingshandlers "github.com/aristath/edgardiff/internal/modules/filings/handlers"
	"github.com/aristath/edgardiff/internal/scheduler"
	"github.com/aristath/edgardiff/internal/server"
	"github.com/aristath/edgardiff/pkg/logger"
)

const usage = `usage: edgardiff <command> [flags]

commands:
  run      full pipeline: reset, acquire, fetch, diff, export
  acquire  download the quarterly indexes and rebuild the aggregate index
  fetch    reset the store and process the aggregate index
  diff     compute differences for stored filings
  export   write the labeled dataset
  serve    serve the read-only HTTP API (and scheduled runs with --schedule)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "edgardiff:", err)
		os.Exit(1)
	}
}

// command holds a parsed invocation
type command struct {
	name        string
	configPath  string
	skipAcquire bool
	flags       *pflag.FlagSet
}

func parseCommand(args []string) (*command, error) {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		return nil, errors.New(usage)
	}

	cmd := &command{name: args[0]}
	switch cmd.name {
	case "run", "acquire", "fetch", "diff", "export", "serve":
	default:
		return nil, fmt.Errorf("unknown command %q\n%s", cmd.name, usage)
	}

	fs := pflag.NewFlagSet("edgardiff "+cmd.name, pflag.ContinueOnError)
	fs.StringVar(&cmd.configPath, "config", "", "path to a YAML configuration file")
	fs.BoolVar(&cmd.skipAcquire, "skip-acquire", false, "reuse the aggregate index already on disk")
	config.RegisterFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}
	cmd.flags = fs
	return cmd, nil
}

func run(args []string) error {
	cmd, err := parseCommand(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cmd.configPath)
	if err != nil {
		// Use basic logger for config errors
		fallback := zerolog.New(os.Stderr).With().Timestamp().Logger()
		fallback.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	if err := cfg.ApplyFlags(cmd.flags); err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	log.Info().
		Str("command", cmd.name).
		Str("data_dir", cfg.DataDir).
		Str("form_type", cfg.FormType).
		Int("workers", cfg.Workers).
		Msg("Starting edgardiff")

	container, jobs, err := di.Wire(cfg, di.JobOptions{SkipAcquire: cmd.skipAcquire}, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to wire dependencies")
		return err
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(ctx, log)

	switch cmd.name {
	case "run":
		if cfg.Schedule != "" {
			return runScheduled(ctx, sched, cfg.Schedule, jobs.Pipeline, log)
		}
		log.Info().Strs("stages", jobs.Pipeline.StageNames()).Msg("Running pipeline")
		return sched.RunNow(jobs.Pipeline)
	case "acquire":
		return sched.RunNow(jobs.Acquire)
	case "fetch":
		fetch := scheduler.NewPipeline("fetch", []scheduler.Job{jobs.Reset, jobs.Fetch}, log)
		return sched.RunNow(fetch)
	case "diff":
		return sched.RunNow(jobs.Differences)
	case "export":
		return sched.RunNow(jobs.Export)
	case "serve":
		return serve(ctx, cfg, container, jobs, sched, log)
	}
	return nil
}

// newLogger builds the process logger, tee'd to <data>/logs/edgardiff.log when enabled
func newLogger(cfg *config.Config) (zerolog.Logger, func(), error) {
	logCfg := logger.Config{
		Level:  cfg.LogLevel,
		Pretty: isTerminal(os.Stderr),
	}
	closeFn := func() {}

	if cfg.LogFile {
		path := filepath.Join(cfg.LogDir(), server.LogFileName)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), closeFn, fmt.Errorf("failed to open log file: %w", err)
		}
		logCfg.File = f
		closeFn = func() { _ = f.Close() }
	}

	return logger.New(logCfg), closeFn, nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// runScheduled registers the pipeline on a cron schedule and blocks until ctx is done
func runScheduled(ctx context.Context, sched *scheduler.Scheduler, schedule string, job scheduler.Job, log zerolog.Logger) error {
	if err := sched.AddJob(schedule, job); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	sched.Start()
	log.Info().Str("schedule", schedule).Msg("Waiting for scheduled runs")

	<-ctx.Done()
	log.Info().Msg("Shutting down scheduler...")
	sched.Stop()
	return nil
}

func serve(ctx context.Context, cfg *config.Config, container *di.Container, jobs *di.JobInstances, sched *scheduler.Scheduler, log zerolog.Logger) error {
	var schedule server.NextRunProvider
	if cfg.Schedule != "" {
		schedule = sched
	}

	srv := server.New(server.Config{
		Log:       log,
		Databases: container.Databases(),
		Counter:   container.FilingsRepo,
		Filings:   filingshandlers.NewHandler(container.FilingsRepo, container.Exporter, log),
		Runs:      jobs.Pipeline,
		Schedule:  schedule,
		DataDir:   cfg.DataDir,
		LogDir:    cfg.LogDir(),
		Port:      cfg.Port,
		DevMode:   cfg.LogLevel == "debug",
	})

	if cfg.Schedule != "" {
		if err := sched.AddJob(cfg.Schedule, jobs.Pipeline); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
		}
		sched.Start()
		defer sched.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started")

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return err
	}

	log.Info().Msg("Server stopped")
	return nil
}
