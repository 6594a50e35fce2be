// Package di provides dependency injection for repositories, clients and services.
package di

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/aristath/edgardiff/internal/clientdata"
	"github.com/aristath/edgardiff/internal/clients/alpaca"
	"github.com/aristath/edgardiff/internal/clients/edgar"
	"github.com/aristath/edgardiff/internal/config"
	"github.com/aristath/edgardiff/internal/domain"
	"github.com/aristath/edgardiff/internal/modules/dataset"
	"github.com/aristath/edgardiff/internal/modules/differences"
	"github.com/aristath/edgardiff/internal/modules/fetch"
	"github.com/aristath/edgardiff/internal/modules/filings"
	"github.com/aristath/edgardiff/internal/modules/index"
	"github.com/aristath/edgardiff/internal/modules/normalize"
	"github.com/aristath/edgardiff/internal/modules/prices"
	"github.com/aristath/edgardiff/internal/modules/tickers"
	"github.com/aristath/edgardiff/internal/reliability"
	"github.com/aristath/edgardiff/internal/scheduler"
	"github.com/rs/zerolog"
)

// FilingTimeZone is the zone EDGAR reports accepted timestamps in
const FilingTimeZone = "America/New_York"

// InitializeRepositories creates the stores on top of the open databases
func InitializeRepositories(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.FilingsRepo = filings.NewRepository(container.FilingsDB.Conn(), log)
	container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())
	container.Documents = normalize.NewDocuments(cfg.CleanedDir())

	return nil
}

// InitializeServices creates the clients and pipeline services
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	loc, err := time.LoadLocation(FilingTimeZone)
	if err != nil {
		return fmt.Errorf("failed to load %s time zone: %w", FilingTimeZone, err)
	}
	container.Location = loc

	// Clients
	container.EdgarClient = edgar.NewClient(cfg.SECBaseURL, cfg.UserAgent, cfg.HTTPTimeout, log)
	container.AlpacaClient = alpaca.NewClient(alpaca.Options{
		APIKey:    cfg.AlpacaAPIKey,
		APISecret: cfg.AlpacaAPISecret,
		Feed:      cfg.AlpacaFeed,
		CacheTTL:  cfg.PriceCacheTTL,
	}, container.ClientDataRepo, log)

	// Acquisition and ticker mapping
	container.Acquirer = index.NewAcquirer(container.EdgarClient, cfg.FormType, cfg.IndexPath(), cfg.DataDir, log)
	container.TickerBuilder = tickers.NewBuilder(
		container.EdgarClient,
		cfg.SECTickerURL,
		cfg.TickerOverrideFile,
		container.ClientDataRepo,
		log,
	)

	// Per-entry processing
	container.Correlator = prices.NewCorrelator(container.AlpacaClient, cfg.EligibleFromHour, cfg.EligibleToHour, log)

	stopWords, err := loadStopWords(cfg.StopWordsFile, log)
	if err != nil {
		return err
	}
	container.Normalizer = normalize.NewNormalizer(cfg.NamespacePrefix, stopWords, container.Documents, log)

	// Differences and dataset
	container.DifferenceService = differences.NewService(container.FilingsRepo, container.Documents, differences.Options{
		MinWeeks:  cfg.PairMinWeeks,
		MaxWeeks:  cfg.PairMaxWeeks,
		Threshold: cfg.MatchThreshold,
		Workers:   cfg.Workers,
		Location:  container.Location,
	}, log)
	container.Exporter = dataset.NewExporter(container.FilingsRepo, cfg.DatasetBuckets, log)

	// Backups
	container.BackupService = reliability.NewBackupService(container.Databases(), log)
	if cfg.R2Enabled() {
		client, err := reliability.NewR2Client(
			context.Background(),
			cfg.R2AccountID,
			cfg.R2AccessKeyID,
			cfg.R2SecretAccessKey,
			cfg.R2Bucket,
			log,
		)
		if err != nil {
			return fmt.Errorf("failed to create R2 client: %w", err)
		}
		container.R2BackupService = reliability.NewR2BackupService(
			client,
			container.BackupService,
			cfg.DataDir,
			cfg.DatasetPath(),
			log,
		)
	}

	return nil
}

// NewRunnerFactory returns a factory that binds a fetch pool to a ticker mapping
func NewRunnerFactory(container *Container, cfg *config.Config, log zerolog.Logger) scheduler.RunnerFactory {
	return func(tickerMap *domain.TickerMap) scheduler.EntryRunner {
		processor := fetch.NewProcessor(
			container.EdgarClient,
			tickerMap,
			container.Correlator,
			container.Normalizer,
			container.FilingsRepo,
			cfg.FormType,
			container.Location,
			log,
		)
		return fetch.NewPool(processor, cfg.Workers, log)
	}
}

// loadStopWords reads the stop-word list. A missing file disables stop-word removal.
func loadStopWords(path string, log zerolog.Logger) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	words, err := normalize.LoadStopWords(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("Stop-word list not found, stop-words will be kept")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	log.Debug().Int("words", len(words)).Msg("Loaded stop-words")
	return words, nil
}
