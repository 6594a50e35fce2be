package reliability

import (
	"path/filepath"
	"testing"

	"github.com/aristath/edgardiff/internal/database"
	testutil "github.com/aristath/edgardiff/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaintenanceJob_Run(t *testing.T) {
	filingsDB, cleanupFilings := testutil.NewTestDB(t, "filings")
	defer cleanupFilings()
	cacheDB, cleanupCache := testutil.NewTestDB(t, "cache")
	defer cleanupCache()

	job := NewMaintenanceJob(
		map[string]*database.DB{"filings": filingsDB, "cache": cacheDB, "absent": nil},
		[]string{"cache"},
		t.TempDir(),
		zerolog.Nop(),
	)

	assert.Equal(t, "maintenance", job.Name())
	assert.NoError(t, job.Run())
}

func TestMaintenanceJob_NoDatabases(t *testing.T) {
	job := NewMaintenanceJob(nil, nil, t.TempDir(), zerolog.Nop())
	assert.NoError(t, job.Run())
}

func TestBackupDatabase_Verify(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "filings")
	defer cleanup()

	_, err := db.Conn().Exec(`INSERT INTO filings (cik, company_name, ticker_symbol, url, date_filed,
		date_accepted, price_change, file_name) VALUES (1, 'A', 'A', 'u', '2021-05-01', '2021-05-03T21:00:00Z', 0.1, 'f')`)
	require.NoError(t, err)

	service := NewBackupService(map[string]*database.DB{"filings": db}, zerolog.Nop())
	assert.Equal(t, []string{"filings"}, service.DatabaseNames())

	path := filepath.Join(t.TempDir(), "it's.db")
	require.NoError(t, service.BackupDatabase("filings", path))
	assert.NoError(t, VerifyBackup(path))

	assert.Error(t, service.BackupDatabase("unknown", filepath.Join(t.TempDir(), "x.db")))
}

func TestBackupJob_Name(t *testing.T) {
	job := NewBackupJob(nil, 30, zerolog.Nop())
	assert.Equal(t, "r2_backup", job.Name())
}
