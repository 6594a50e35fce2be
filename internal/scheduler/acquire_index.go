package scheduler

import (
	"github.com/aristath/edgardiff/internal/domain"
	"github.com/aristath/edgardiff/internal/modules/index"
	"github.com/rs/zerolog"
)

// AcquireIndexJob downloads the quarterly indexes and rebuilds the aggregate index
type AcquireIndexJob struct {
	JobBase
	acquirer IndexAcquirer
	start    domain.Period
	end      domain.Period
	last     index.AcquireResult
	log      zerolog.Logger
}

// NewAcquireIndexJob creates a new AcquireIndexJob covering start..end
func NewAcquireIndexJob(acquirer IndexAcquirer, start, end domain.Period, log zerolog.Logger) *AcquireIndexJob {
	return &AcquireIndexJob{
		acquirer: acquirer,
		start:    start,
		end:      end,
		log:      log.With().Str("job", "acquire_index").Logger(),
	}
}

// Name returns the job name
func (j *AcquireIndexJob) Name() string {
	return "acquire_index"
}

// Run executes the acquisition
func (j *AcquireIndexJob) Run() error {
	result, err := j.acquirer.Acquire(j.Context(), j.start, j.end)
	j.last = result
	return err
}

// LastResult returns the outcome of the most recent run
func (j *AcquireIndexJob) LastResult() index.AcquireResult {
	return j.last
}
