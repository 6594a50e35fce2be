// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/aristath/edgardiff/internal/clientdata"
	"github.com/aristath/edgardiff/internal/config"
	"github.com/aristath/edgardiff/internal/domain"
	"github.com/aristath/edgardiff/internal/reliability"
	"github.com/aristath/edgardiff/internal/scheduler"
	"github.com/rs/zerolog"
)

// JobOptions selects optional pipeline stages
type JobOptions struct {
	SkipAcquire bool // reuse the aggregate index already on disk
}

// RegisterJobs creates every job and assembles the full pipeline.
// Stage order: reset, acquire, fetch, differences, export, backup, maintenance, cache cleanup.
func RegisterJobs(container *Container, cfg *config.Config, opts JobOptions, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	instances := &JobInstances{}

	instances.Reset = scheduler.NewResetRunJob(container.Documents, container.FilingsRepo, log)
	instances.Acquire = scheduler.NewAcquireIndexJob(
		container.Acquirer,
		domain.Period{Year: cfg.StartYear, Quarter: cfg.StartQuarter},
		domain.Period{Year: cfg.EndYear, Quarter: cfg.EndQuarter},
		log,
	)
	instances.Fetch = scheduler.NewFetchFilingsJob(
		cfg.IndexPath(),
		cfg.FormType,
		container.TickerBuilder,
		NewRunnerFactory(container, cfg, log),
		log,
	)
	instances.Differences = scheduler.NewComputeDifferencesJob(container.DifferenceService, log)
	instances.Export = scheduler.NewExportDatasetJob(container.Exporter, cfg.DatasetPath(), log)

	if container.R2BackupService != nil {
		instances.Backup = reliability.NewBackupJob(container.R2BackupService, cfg.R2RetentionDays, log)
	}
	instances.Maintenance = reliability.NewMaintenanceJob(
		container.Databases(),
		[]string{"filings", "cache"},
		cfg.DataDir,
		log,
	)
	instances.Cleanup = clientdata.NewCleanupJob(container.ClientDataRepo, log)

	stages := []scheduler.Job{instances.Reset}
	if !opts.SkipAcquire {
		stages = append(stages, instances.Acquire)
	}
	stages = append(stages, instances.Fetch, instances.Differences, instances.Export)
	if instances.Backup != nil {
		stages = append(stages, instances.Backup)
	}
	stages = append(stages, instances.Maintenance, instances.Cleanup)

	instances.Pipeline = scheduler.NewPipeline("edgardiff", stages, log)

	log.Info().Int("stages", len(stages)).Msg("Jobs registered")

	return instances, nil
}
