package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aristath/edgardiff/internal/database"
	"github.com/aristath/edgardiff/internal/modules/filings"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// RecordCounter summarises the filings store
type RecordCounter interface {
	Count(ctx context.Context) (filings.Counts, error)
}

// SystemHandlers serves host and store status
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	databases map[string]*database.DB
	counter   RecordCounter
	startedAt time.Time
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, dataDir string, databases map[string]*database.DB, counter RecordCounter) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		dataDir:   dataDir,
		databases: databases,
		counter:   counter,
		startedAt: time.Now(),
	}
}

// SystemStatusResponse is the body of GET /api/system
type SystemStatusResponse struct {
	Filings       filings.Counts `json:"filings"`
	LastChecked   string         `json:"last_checked"`
	CPUPercent    float64        `json:"cpu_percent"`
	MemoryPercent float64        `json:"memory_percent"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Healthy       bool           `json:"healthy"`
}

// DBInfo describes one database
type DBInfo struct {
	Stats   *database.Stats `json:"stats,omitempty"`
	Name    string          `json:"name"`
	Profile string          `json:"profile"`
	Path    string          `json:"path"`
	Error   string          `json:"error,omitempty"`
	SizeMB  float64         `json:"size_mb"`
}

// DatabaseStatsResponse is the body of GET /api/system/databases
type DatabaseStatsResponse struct {
	LastChecked string   `json:"last_checked"`
	Databases   []DBInfo `json:"databases"`
	TotalSizeMB float64  `json:"total_size_mb"`
}

// DiskUsageResponse is the body of GET /api/system/disk
type DiskUsageResponse struct {
	DataDirMB   float64 `json:"data_dir_mb"`
	LogsDirMB   float64 `json:"logs_dir_mb"`
	CleanedMB   float64 `json:"cleaned_files_mb"`
	DatabasesMB float64 `json:"databases_mb"`
}

// HandleSystemStatus returns host load and store counters
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		LastChecked:   time.Now().Format(time.RFC3339),
		Healthy:       true,
	}

	if h.counter != nil {
		counts, err := h.counter.Count(r.Context())
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to count filings")
			response.Healthy = false
		}
		response.Filings = counts
	}

	for name, db := range h.databases {
		if db == nil {
			continue
		}
		if err := db.HealthCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Database health check failed")
			response.Healthy = false
		}
	}

	h.writeJSON(w, response)
}

// HandleDatabaseStats returns database statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.databases))
	for name := range h.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	response := DatabaseStatsResponse{
		Databases:   []DBInfo{},
		LastChecked: time.Now().Format(time.RFC3339),
	}

	for _, name := range names {
		db := h.databases[name]
		if db == nil {
			continue
		}
		info := DBInfo{Name: name, Profile: string(db.Profile()), Path: db.Path()}
		if fi, err := os.Stat(db.Path()); err == nil {
			info.SizeMB = float64(fi.Size()) / 1024 / 1024
			response.TotalSizeMB += info.SizeMB
		}
		stats, err := db.GetStats()
		if err != nil {
			info.Error = err.Error()
		} else {
			info.Stats = stats
		}
		response.Databases = append(response.Databases, info)
	}

	h.writeJSON(w, response)
}

// HandleDiskUsage returns disk usage of the output directories
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	response := DiskUsageResponse{
		DataDirMB:   h.getDirSize(h.dataDir),
		LogsDirMB:   h.getDirSize(filepath.Join(h.dataDir, "logs")),
		CleanedMB:   h.getDirSize(filepath.Join(h.dataDir, "cleaned_files")),
		DatabasesMB: h.getDirSize(filepath.Join(h.dataDir, "db")),
	}

	h.writeJSON(w, response)
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats returns CPU and RAM usage percentages, sampling CPU over 100ms
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
