package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"
)

// ResetRunJob clears the output of a previous run: normalized documents and stored records
type ResetRunJob struct {
	JobBase
	docs  DocumentClearer
	store StoreTruncater
	log   zerolog.Logger
}

// NewResetRunJob creates a new ResetRunJob
func NewResetRunJob(docs DocumentClearer, store StoreTruncater, log zerolog.Logger) *ResetRunJob {
	return &ResetRunJob{
		docs:  docs,
		store: store,
		log:   log.With().Str("job", "reset_run").Logger(),
	}
}

// Name returns the job name
func (j *ResetRunJob) Name() string {
	return "reset_run"
}

// Run deletes the documents and truncates the store
func (j *ResetRunJob) Run() error {
	removed, err := j.docs.Clear()
	if err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	if err := j.store.Truncate(j.Context()); err != nil {
		return fmt.Errorf("failed to truncate store: %w", err)
	}
	j.log.Info().Int("documents_removed", removed).Msg("Previous run cleared")
	return nil
}
