package clientdata

import (
	"sort"
	"time"

	"github.com/aristath/edgardiff/internal/scheduler/base"
	"github.com/rs/zerolog"
)

// CleanupJob purges cache entries that have been expired for longer than the retention
// window. It runs as the last pipeline stage.
type CleanupJob struct {
	base.JobBase
	repo      *Repository
	retention time.Duration
	deleted   map[string]int64
	log       zerolog.Logger
}

// NewCleanupJob creates a cleanup job keeping expired entries for StaleRetention
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo:      repo,
		retention: StaleRetention,
		log:       log.With().Str("job", "client_data_cleanup").Logger(),
	}
}

// Name returns the job name
func (j *CleanupJob) Name() string {
	return "client_data_cleanup"
}

// Run purges old entries and logs what is left in each table
func (j *CleanupJob) Run() error {
	deleted, err := j.repo.PurgeAllExpired(j.retention)
	j.deleted = deleted
	if err != nil {
		return err
	}

	stats, err := j.repo.Stats()
	if err != nil {
		return err
	}

	tables := make([]string, 0, len(stats))
	for table := range stats {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	for _, table := range tables {
		j.log.Info().
			Str("table", table).
			Int64("purged", deleted[table]).
			Int64("fresh", stats[table].Fresh).
			Int64("stale", stats[table].Stale).
			Msg("Cache table cleaned")
	}
	return nil
}

// LastDeleted returns the rows purged per table by the most recent run
func (j *CleanupJob) LastDeleted() map[string]int64 {
	return j.deleted
}
