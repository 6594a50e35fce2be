package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

// handleHealth pings every database; any failure reports the service as degraded
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.databases))
	for name := range s.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "healthy"
	code := http.StatusOK
	databases := make(map[string]string, len(names))
	for _, name := range names {
		if err := s.databases[name].Conn().PingContext(ctx); err != nil {
			s.log.Warn().Err(err).Str("database", name).Msg("Health check ping failed")
			databases[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		databases[name] = "ok"
	}

	s.writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"service":   "edgardiff",
		"databases": databases,
	})
}

// handleLastRun handles GET /api/runs/last
func (s *Server) handleLastRun(w http.ResponseWriter, r *http.Request) {
	metadata := map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
	}

	var data interface{}
	if s.runs != nil {
		if run := s.runs.LastRun(); run != nil {
			data = run
		}
		if s.schedule != nil {
			if next, ok := s.schedule.NextRun(s.runs.Name()); ok {
				metadata["next_run"] = next.Format(time.RFC3339)
			}
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     data,
		"metadata": metadata,
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
