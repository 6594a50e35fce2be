package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/aristath/edgardiff/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SlowStageThreshold is the stage duration above which a warning is logged
const SlowStageThreshold = 2 * time.Hour

// StageStatus is the outcome of one stage of a run
type StageStatus struct {
	Name     string        `json:"name"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// RunStatus is the outcome of one pipeline run
type RunStatus struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
	RunID      string        `json:"run_id"`
	Error      string        `json:"error,omitempty"`
	Stages     []StageStatus `json:"stages"`
	Running    bool          `json:"running"`
}

// Pipeline runs jobs strictly in order and stops at the first failure
type Pipeline struct {
	JobBase
	name   string
	stages []Job
	log    zerolog.Logger

	mu   sync.RWMutex
	last *RunStatus
}

// NewPipeline creates a pipeline over stages
func NewPipeline(name string, stages []Job, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		name:   name,
		stages: stages,
		log:    log.With().Str("job", name).Logger(),
	}
}

// Name returns the job name
func (p *Pipeline) Name() string {
	return p.name
}

// StageNames lists the stages in execution order
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, stage := range p.stages {
		names[i] = stage.Name()
	}
	return names
}

// Run executes every stage in order under a fresh run id
func (p *Pipeline) Run() error {
	ctx := p.Context()
	status := &RunStatus{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		Running:   true,
	}
	p.setStatus(status)
	log := p.log.With().Str("run_id", status.RunID).Logger()
	log.Info().Int("stages", len(p.stages)).Msg("Run started")

	var runErr error
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if c, ok := stage.(contextual); ok {
			c.SetContext(ctx)
		}

		log.Info().Str("stage", stage.Name()).Msg("Stage started")
		timer := utils.NewTimer(stage.Name(), SlowStageThreshold, log)
		err := stage.Run()
		stageStatus := StageStatus{Name: stage.Name(), Duration: timer.Stop()}
		if err != nil {
			stageStatus.Error = err.Error()
		}
		p.update(func(s *RunStatus) { s.Stages = append(s.Stages, stageStatus) })

		if err != nil {
			log.Error().Err(err).Str("stage", stage.Name()).Msg("Stage failed")
			runErr = fmt.Errorf("stage %s: %w", stage.Name(), err)
			break
		}
		log.Info().Str("stage", stage.Name()).Dur("elapsed", stageStatus.Duration).Msg("Stage complete")
	}

	p.update(func(s *RunStatus) {
		s.Running = false
		s.FinishedAt = time.Now()
		if runErr != nil {
			s.Error = runErr.Error()
		}
	})

	if runErr != nil {
		return runErr
	}
	log.Info().Dur("elapsed", time.Since(status.StartedAt)).Msg("Run complete")
	return nil
}

// LastRun returns a copy of the most recent run's status, or nil before the first run
func (p *Pipeline) LastRun() *RunStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return nil
	}
	cp := *p.last
	cp.Stages = append([]StageStatus(nil), p.last.Stages...)
	return &cp
}

func (p *Pipeline) setStatus(s *RunStatus) {
	p.mu.Lock()
	p.last = s
	p.mu.Unlock()
}

func (p *Pipeline) update(fn func(*RunStatus)) {
	p.mu.Lock()
	fn(p.last)
	p.mu.Unlock()
}
