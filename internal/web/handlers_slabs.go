package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/slabstock/internal/core"
	"github.com/JonMunkholm/slabstock/internal/slab"
)

// maxJSONBody bounds add and edit request bodies.
const maxJSONBody = 1 << 20

// handleListSlabs lists slabs for the browse view.
func (s *Server) handleListSlabs(w http.ResponseWriter, r *http.Request) {
	q, err := parseBrowseQuery(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	recs, err := s.service.ListSlabs(r.Context(), q)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"slabs": recs,
		"count": len(recs),
	})
}

// handleGetSlab returns a single slab by record id.
func (s *Server) handleGetSlab(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.GetSlab(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleUpdateSlab applies a manual edit.
func (s *Server) handleUpdateSlab(w http.ResponseWriter, r *http.Request) {
	var patch slab.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(w, r, err)
		return
	}

	rec, err := s.service.UpdateSlab(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleCheckDuplicate looks a slab id up the way the add form does while
// the user types.
func (s *Server) handleCheckDuplicate(w http.ResponseWriter, r *http.Request) {
	slabID := strings.TrimSpace(r.URL.Query().Get("slab_id"))
	if slabID == "" {
		respondError(w, r, errMissingSlabID)
		return
	}

	dup, err := s.service.CheckDuplicate(r.Context(), slabID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"slab_id":   slabID,
		"exists":    dup != nil,
		"duplicate": dup,
	})
}

// addSlabRequest is the add form plus an optional duplicate resolution.
type addSlabRequest struct {
	core.AddForm
	Resolution core.Resolution `json:"resolution"`
}

// handleAddSlab runs the add-slab workflow. A duplicate that needs
// confirmation answers 409 with the matched record; resubmitting with
// resolution "add" adds the quantity to it.
func (s *Server) handleAddSlab(w http.ResponseWriter, r *http.Request) {
	var req addSlabRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	out, err := s.service.AddSlab(r.Context(), req.AddForm, req.Resolution)
	if err != nil {
		respondError(w, r, err)
		return
	}

	status := http.StatusOK
	switch out.Action {
	case core.ActionCreated:
		status = http.StatusCreated
	case core.ActionNeedsConfirmation:
		status = http.StatusConflict
	}
	writeJSON(w, status, out)
}

// parseBrowseQuery reads category, status, q and limit.
func parseBrowseQuery(r *http.Request) (core.BrowseQuery, error) {
	v := r.URL.Query()
	q := core.BrowseQuery{
		Category: slab.Category(strings.ToLower(strings.TrimSpace(v.Get("category")))),
		Status:   slab.Status(strings.ToLower(strings.TrimSpace(v.Get("status")))),
		Search:   v.Get("q"),
	}

	if q.Status != "" && !slab.IsImportStatus(q.Status) && !slab.IsFormStatus(q.Status) {
		return q, fmt.Errorf("%w: status %q", errInvalidParam, q.Status)
	}

	if raw := v.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, fmt.Errorf("%w: limit %q", errInvalidParam, raw)
		}
		q.Limit = n
	}
	return q, nil
}

// decodeJSON reads a single JSON object from a size-limited body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", errInvalidBody)
	}
	return nil
}
