package web

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/slabstock/internal/core"
	"github.com/JonMunkholm/slabstock/internal/export"
	"github.com/JonMunkholm/slabstock/internal/logging"
	"github.com/JonMunkholm/slabstock/internal/slab"
)

type exportFormat struct {
	ext         string
	contentType string
	write       func(io.Writer, []slab.Record) error
}

var (
	formatCSV  = exportFormat{"csv", export.ContentTypeCSV, export.WriteCSV}
	formatTSV  = exportFormat{"tsv", export.ContentTypeTSV, export.WriteTSV}
	formatXLSX = exportFormat{"xlsx", export.ContentTypeXLSX, export.WriteXLSX}
)

// handleExport downloads every slab matching the browse filters.
func (s *Server) handleExport(format exportFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseBrowseQuery(r)
		if err != nil {
			respondError(w, r, err)
			return
		}

		recs, err := s.service.ExportSlabs(r.Context(), q)
		if err != nil {
			respondError(w, r, err)
			return
		}

		// Render fully before writing headers so a failure can still
		// answer with a JSON error.
		var buf bytes.Buffer
		if err := format.write(&buf, recs); err != nil {
			respondError(w, r, fmt.Errorf("export %s: %w", format.ext, err))
			return
		}

		filename := fmt.Sprintf("slabs_%s.%s", time.Now().Format("20060102_150405"), format.ext)
		w.Header().Set("Content-Type", format.contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		if _, err := buf.WriteTo(w); err != nil {
			logging.FromContext(r.Context()).Warn("export write failed", "format", format.ext, "error", err)
		}
	}
}

// handleLowStock lists family/formulation pairs running low.
func (s *Server) handleLowStock(w http.ResponseWriter, r *http.Request) {
	threshold := 0
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, r, fmt.Errorf("%w: threshold %q", errInvalidParam, raw))
			return
		}
		threshold = n
	}
	if threshold == 0 {
		threshold = s.service.LowStockThreshold()
	}

	levels, err := s.service.LowStock(r.Context(), threshold)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"threshold": threshold,
		"levels":    levels,
		"count":     len(levels),
	})
}

// handleHealth reports whether the store answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		logging.FromContext(r.Context()).Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"code":   core.MapError(err).Code,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"imports": s.service.LimiterStatus(),
	})
}
