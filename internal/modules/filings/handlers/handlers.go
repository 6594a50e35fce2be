// Package handlers provides HTTP handlers for stored filings and the derived dataset.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/edgardiff/internal/domain"
	"github.com/aristath/edgardiff/internal/modules/dataset"
	"github.com/aristath/edgardiff/internal/modules/filings"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RecordReader is the read side of the filings repository
type RecordReader interface {
	GetByID(ctx context.Context, id int64) (*domain.FilingRecord, error)
	ListByCIK(ctx context.Context, cik int64) ([]domain.FilingRecord, error)
	ListAll(ctx context.Context) ([]domain.FilingRecord, error)
	Count(ctx context.Context) (filings.Counts, error)
}

// DatasetBuilder builds the labeled dataset
type DatasetBuilder interface {
	Build(ctx context.Context) ([]dataset.Row, dataset.Labeling, error)
}

// Handler handles filing HTTP requests
type Handler struct {
	records RecordReader
	dataset DatasetBuilder
	log     zerolog.Logger
}

// NewHandler creates a new filings handler
func NewHandler(records RecordReader, builder DatasetBuilder, log zerolog.Logger) *Handler {
	return &Handler{
		records: records,
		dataset: builder,
		log:     log.With().Str("handler", "filings").Logger(),
	}
}

// HandleListFilings handles GET /api/filings, optionally filtered by ?cik=
func (h *Handler) HandleListFilings(w http.ResponseWriter, r *http.Request) {
	var (
		records []domain.FilingRecord
		err     error
	)

	if raw := r.URL.Query().Get("cik"); raw != "" {
		cik, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil || cik <= 0 {
			http.Error(w, "cik must be a positive integer", http.StatusBadRequest)
			return
		}
		records, err = h.records.ListByCIK(r.Context(), cik)
	} else {
		records, err = h.records.ListAll(r.Context())
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list filings")
		http.Error(w, "Failed to list filings", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []domain.FilingRecord{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": records,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"count":     len(records),
		},
	})
}

// HandleGetFiling handles GET /api/filings/{id}
func (h *Handler) HandleGetFiling(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "id must be an integer", http.StatusBadRequest)
		return
	}

	record, err := h.records.GetByID(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to get filing")
		http.Error(w, "Failed to get filing", http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "Filing not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": record,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetStats handles GET /api/filings/stats
func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.records.Count(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to count filings")
		http.Error(w, "Failed to count filings", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": counts,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetDataset handles GET /api/dataset and streams the labeled dataset as CSV
func (h *Handler) HandleGetDataset(w http.ResponseWriter, r *http.Request) {
	rows, _, err := h.dataset.Build(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build dataset")
		http.Error(w, "Failed to build dataset", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="dataset.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := dataset.WriteCSV(w, rows); err != nil {
		h.log.Error().Err(err).Msg("Failed to write dataset")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
