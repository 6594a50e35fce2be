/**
 * Package di provides dependency injection type definitions.
 *
 * Container holds every long-lived component of a pipeline process. It is built once
 * by Wire and handed to the command layer, which picks the jobs and handlers it needs.
 */
package di

import (
	"time"

	"github.com/aristath/edgardiff/internal/clientdata"
	"github.com/aristath/edgardiff/internal/clients/alpaca"
	"github.com/aristath/edgardiff/internal/clients/edgar"
	"github.com/aristath/edgardiff/internal/database"
	"github.com/aristath/edgardiff/internal/modules/dataset"
	"github.com/aristath/edgardiff/internal/modules/differences"
	"github.com/aristath/edgardiff/internal/modules/filings"
	"github.com/aristath/edgardiff/internal/modules/index"
	"github.com/aristath/edgardiff/internal/modules/normalize"
	"github.com/aristath/edgardiff/internal/modules/prices"
	"github.com/aristath/edgardiff/internal/modules/tickers"
	"github.com/aristath/edgardiff/internal/reliability"
	"github.com/aristath/edgardiff/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	// Databases
	FilingsDB *database.DB // filings store (ProfileStandard)
	CacheDB   *database.DB // client data cache (ProfileCache)

	// Repositories
	FilingsRepo    *filings.Repository
	ClientDataRepo *clientdata.Repository
	Documents      *normalize.Documents

	// Clients
	EdgarClient  *edgar.Client
	AlpacaClient *alpaca.Client

	// Services
	Acquirer          *index.Acquirer
	TickerBuilder     *tickers.Builder
	Correlator        *prices.Correlator
	Normalizer        *normalize.Normalizer
	DifferenceService *differences.Service
	Exporter          *dataset.Exporter
	BackupService     *reliability.BackupService
	R2BackupService   *reliability.R2BackupService // nil unless R2 is configured

	// Location accepted timestamps are parsed in
	Location *time.Location
}

// JobInstances holds every job so commands can run stages individually
type JobInstances struct {
	Reset       *scheduler.ResetRunJob
	Acquire     *scheduler.AcquireIndexJob
	Fetch       *scheduler.FetchFilingsJob
	Differences *scheduler.ComputeDifferencesJob
	Export      *scheduler.ExportDatasetJob
	Backup      *reliability.BackupJob // nil unless R2 is configured
	Maintenance *reliability.MaintenanceJob
	Cleanup     *clientdata.CleanupJob

	// Pipeline runs the full sequence
	Pipeline *scheduler.Pipeline
}

// Databases returns the open databases keyed by name
func (c *Container) Databases() map[string]*database.DB {
	dbs := make(map[string]*database.DB)
	if c.FilingsDB != nil {
		dbs[c.FilingsDB.Name()] = c.FilingsDB
	}
	if c.CacheDB != nil {
		dbs[c.CacheDB.Name()] = c.CacheDB
	}
	return dbs
}

// Close closes every open database
func (c *Container) Close() {
	if c.FilingsDB != nil {
		c.FilingsDB.Close()
	}
	if c.CacheDB != nil {
		c.CacheDB.Close()
	}
}
