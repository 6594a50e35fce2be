// Package base provides base implementation for scheduler jobs.
package base

import "context"

// JobBase carries the run context for a job.
// Jobs embed this so the runner can hand them a cancellable context before calling Run.
type JobBase struct {
	ctx context.Context
}

// SetContext stores the context the next Run should observe
func (j *JobBase) SetContext(ctx context.Context) {
	j.ctx = ctx
}

// Context returns the stored context, or context.Background() if none was set
func (j *JobBase) Context() context.Context {
	if j.ctx == nil {
		return context.Background()
	}
	return j.ctx
}
