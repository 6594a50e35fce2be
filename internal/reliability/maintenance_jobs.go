package reliability

import (
	"fmt"
	"sort"

	"github.com/aristath/edgardiff/internal/database"
	"github.com/aristath/edgardiff/internal/scheduler/base"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// Free space thresholds for the data directory, in GB
const (
	criticalFreeGB = 0.5
	lowFreeGB      = 5.0
)

// MaintenanceJob checks and compacts the databases
type MaintenanceJob struct {
	base.JobBase
	databases map[string]*database.DB
	vacuum    []string
	dataDir   string
	log       zerolog.Logger
}

// NewMaintenanceJob creates the maintenance job. Databases named in vacuum are compacted on
// each run.
func NewMaintenanceJob(databases map[string]*database.DB, vacuum []string, dataDir string, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		vacuum:    vacuum,
		dataDir:   dataDir,
		log:       log.With().Str("job", "maintenance").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Run executes the maintenance job. An integrity failure or a nearly full disk is returned
// as an error; everything else is logged.
func (j *MaintenanceJob) Run() error {
	names := make([]string, 0, len(j.databases))
	for name := range j.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		db := j.databases[name]
		if db == nil {
			continue
		}

		var result string
		if err := db.Conn().QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
			return fmt.Errorf("integrity check of %s failed: %w", name, err)
		}
		if result != "ok" {
			j.log.Error().Str("database", name).Str("result", result).Msg("Database integrity check failed")
			return fmt.Errorf("database %s is corrupted: %s", name, result)
		}

		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed")
		}
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	for _, name := range j.vacuum {
		if db, ok := j.databases[name]; ok && db != nil {
			if err := j.vacuumDatabase(db, name); err != nil {
				j.log.Error().Err(err).Str("database", name).Msg("VACUUM failed")
			}
		}
	}

	j.log.Info().Int("databases", len(names)).Msg("Maintenance completed")
	return nil
}

func (j *MaintenanceJob) checkDiskSpace() error {
	usage, err := disk.Usage(j.dataDir)
	if err != nil {
		j.log.Warn().Err(err).Str("dir", j.dataDir).Msg("Failed to read disk usage")
		return nil
	}

	freeGB := float64(usage.Free) / 1e9
	switch {
	case freeGB < criticalFreeGB:
		j.log.Error().Float64("available_gb", freeGB).Msg("Insufficient disk space")
		return fmt.Errorf("only %.2f GB free in %s", freeGB, j.dataDir)
	case freeGB < lowFreeGB:
		j.log.Warn().Float64("available_gb", freeGB).Msg("Disk space running low")
	default:
		j.log.Debug().Float64("available_gb", freeGB).Msg("Disk space check")
	}
	return nil
}

func (j *MaintenanceJob) vacuumDatabase(db *database.DB, name string) error {
	var pageCount, pageSize int
	_ = db.Conn().QueryRow("PRAGMA page_count").Scan(&pageCount)
	_ = db.Conn().QueryRow("PRAGMA page_size").Scan(&pageSize)
	sizeBefore := float64(pageCount*pageSize) / 1024 / 1024

	if _, err := db.Conn().Exec("VACUUM"); err != nil {
		return fmt.Errorf("VACUUM failed: %w", err)
	}

	_ = db.Conn().QueryRow("PRAGMA page_count").Scan(&pageCount)
	sizeAfter := float64(pageCount*pageSize) / 1024 / 1024

	j.log.Info().
		Str("database", name).
		Float64("size_before_mb", sizeBefore).
		Float64("size_after_mb", sizeAfter).
		Msg("VACUUM completed")
	return nil
}

// BackupJob uploads a backup and rotates old ones
type BackupJob struct {
	base.JobBase
	service       *R2BackupService
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates the off-site backup job
func NewBackupJob(service *R2BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "r2_backup").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "r2_backup"
}

// Run uploads a fresh backup, then rotates; rotation failures are only logged
func (j *BackupJob) Run() error {
	ctx := j.Context()
	if _, err := j.service.CreateAndUploadBackup(ctx); err != nil {
		return err
	}
	if _, err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}
