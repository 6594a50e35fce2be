package scheduler

import (
	"github.com/aristath/edgardiff/internal/modules/differences"
	"github.com/rs/zerolog"
)

// ComputeDifferencesJob runs the diff stage
type ComputeDifferencesJob struct {
	JobBase
	processor DifferenceProcessor
	last      differences.Stats
	log       zerolog.Logger
}

// NewComputeDifferencesJob creates a new ComputeDifferencesJob
func NewComputeDifferencesJob(processor DifferenceProcessor, log zerolog.Logger) *ComputeDifferencesJob {
	return &ComputeDifferencesJob{
		processor: processor,
		log:       log.With().Str("job", "compute_differences").Logger(),
	}
}

// Name returns the job name
func (j *ComputeDifferencesJob) Name() string {
	return "compute_differences"
}

// Run executes the diff stage
func (j *ComputeDifferencesJob) Run() error {
	stats, err := j.processor.Process(j.Context())
	j.last = stats
	return err
}

// LastStats returns the counters of the most recent run
func (j *ComputeDifferencesJob) LastStats() differences.Stats {
	return j.last
}
