package server

import (
	"bufio"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// LogFileName is the JSON log written under the log directory when file logging is on
const LogFileName = "edgardiff.log"

const maxLogLines = 10000

// LogHandlers serves the tail of the JSON log file
type LogHandlers struct {
	log    zerolog.Logger
	logDir string
}

// NewLogHandlers creates a new log handlers instance
func NewLogHandlers(log zerolog.Logger, logDir string) *LogHandlers {
	return &LogHandlers{
		log:    log.With().Str("component", "log_handlers").Logger(),
		logDir: logDir,
	}
}

// LogContentResponse represents log content
type LogContentResponse struct {
	Status string   `json:"status"`
	Lines  []string `json:"lines"`
	Total  int      `json:"total"`
}

// HandleGetLogs returns the last ?lines= lines (default 100), filtered by ?level= and ?search=
func (h *LogHandlers) HandleGetLogs(w http.ResponseWriter, r *http.Request) {
	lines := parseLines(r.URL.Query().Get("lines"), 100)
	level := strings.ToUpper(r.URL.Query().Get("level"))
	search := r.URL.Query().Get("search")

	h.serve(w, lines, level, search)
}

// HandleGetErrors returns error lines among the last ?lines= lines (default 500)
func (h *LogHandlers) HandleGetErrors(w http.ResponseWriter, r *http.Request) {
	h.serve(w, parseLines(r.URL.Query().Get("lines"), 500), "ERROR", "")
}

func (h *LogHandlers) serve(w http.ResponseWriter, lines int, level, search string) {
	tail, err := tailFile(filepath.Join(h.logDir, LogFileName), lines)
	if err != nil {
		if os.IsNotExist(err) {
			h.writeJSON(w, LogContentResponse{Lines: []string{}, Status: "no log file"})
			return
		}
		h.log.Error().Err(err).Msg("Failed to read log file")
		http.Error(w, "Failed to read logs", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, LogContentResponse{
		Lines:  filterLogs(tail, level, search),
		Total:  len(tail),
		Status: "ok",
	})
}

func parseLines(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > maxLogLines {
		return maxLogLines
	}
	return n
}

// tailFile returns the last n lines of path
func tailFile(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, scanner.Text())
	}
	return ring, scanner.Err()
}

// filterLogs filters log lines by level and search term
func filterLogs(lines []string, level, search string) []string {
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if level != "" && !lineMatchesLevel(line, level) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(line), strings.ToLower(search)) {
			continue
		}
		filtered = append(filtered, line)
	}
	return filtered
}

// lineMatchesLevel checks a zerolog JSON line, or a plain text line, against level
func lineMatchesLevel(line, level string) bool {
	if strings.Contains(line, `"level"`) {
		return strings.Contains(strings.ToLower(line), `"level":"`+strings.ToLower(level)+`"`)
	}

	upperLine := strings.ToUpper(line)
	upperLevel := strings.ToUpper(level)
	return strings.Contains(upperLine, upperLevel+":") ||
		strings.Contains(upperLine, "["+upperLevel+"]") ||
		strings.Contains(upperLine, " "+upperLevel+" ")
}

func (h *LogHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
