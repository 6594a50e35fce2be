package scheduler

import (
	"github.com/rs/zerolog"
)

// ExportDatasetJob writes the labeled dataset
type ExportDatasetJob struct {
	JobBase
	exporter DatasetExporter
	path     string
	log      zerolog.Logger
}

// NewExportDatasetJob creates a new ExportDatasetJob writing to path
func NewExportDatasetJob(exporter DatasetExporter, path string, log zerolog.Logger) *ExportDatasetJob {
	return &ExportDatasetJob{
		exporter: exporter,
		path:     path,
		log:      log.With().Str("job", "export_dataset").Logger(),
	}
}

// Name returns the job name
func (j *ExportDatasetJob) Name() string {
	return "export_dataset"
}

// Run executes the export
func (j *ExportDatasetJob) Run() error {
	_, err := j.exporter.Export(j.Context(), j.path)
	return err
}
