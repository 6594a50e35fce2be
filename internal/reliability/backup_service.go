package reliability

import (
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/aristath/edgardiff/internal/database"
	"github.com/rs/zerolog"
)

// BackupService snapshots databases to standalone files
type BackupService struct {
	databases map[string]*database.DB
	log       zerolog.Logger
}

// NewBackupService creates a backup service over the named databases
func NewBackupService(databases map[string]*database.DB, log zerolog.Logger) *BackupService {
	return &BackupService{
		databases: databases,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// DatabaseNames returns the names of the managed databases, sorted
func (s *BackupService) DatabaseNames() []string {
	names := make([]string, 0, len(s.databases))
	for name, db := range s.databases {
		if db != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// BackupDatabase writes a consistent copy of the named database to backupPath using
// VACUUM INTO. backupPath must not exist.
func (s *BackupService) BackupDatabase(name, backupPath string) error {
	db, ok := s.databases[name]
	if !ok || db == nil {
		return fmt.Errorf("database %s not found", name)
	}

	s.log.Debug().
		Str("database", name).
		Str("backup_path", backupPath).
		Msg("Backing up database")

	escaped := strings.ReplaceAll(backupPath, "'", "''")
	if _, err := db.Conn().Exec(fmt.Sprintf("VACUUM INTO '%s'", escaped)); err != nil {
		return fmt.Errorf("VACUUM INTO failed: %w", err)
	}

	info, err := os.Stat(backupPath)
	if err != nil {
		return fmt.Errorf("failed to stat backup: %w", err)
	}

	s.log.Debug().
		Str("database", name).
		Float64("size_mb", float64(info.Size())/1024/1024).
		Msg("Backup created")

	return nil
}

// VerifyBackup runs an integrity check against a snapshot file
func VerifyBackup(backupPath string) error {
	backupDB, err := sql.Open("sqlite", backupPath)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer backupDB.Close()

	var result string
	if err := backupDB.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}
