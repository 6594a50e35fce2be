// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/aristath/edgardiff/internal/config"
	"github.com/aristath/edgardiff/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens both databases and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// filings - one row per stored filing, rebuilt on every run
	filingsDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileStandard,
		Name:    "filings",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize filings database: %w", err)
	}
	container.FilingsDB = filingsDB

	// cache - ticker feed and price history responses
	cacheDB, err := database.New(database.Config{
		Path:    cfg.CachePath(),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		filingsDB.Close()
		return nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}
	container.CacheDB = cacheDB

	for _, db := range []*database.DB{filingsDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to apply schema for %s: %w", db.Name(), err)
		}
	}

	log.Info().
		Str("filings", filingsDB.Path()).
		Str("cache", cacheDB.Path()).
		Msg("Databases initialized")

	return container, nil
}
