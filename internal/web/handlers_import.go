package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// multipartOverhead is allowed on top of IMPORT_MAX_FILE_SIZE for form
// boundaries and headers.
const multipartOverhead = 64 << 10

// handlePreviewImport reports what importing the uploaded file would do and
// returns a token that commits exactly those rows.
func (s *Server) handlePreviewImport(w http.ResponseWriter, r *http.Request) {
	data, err := s.readImport(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	result, err := s.service.PreviewImport(r.Context(), data)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCommitPreview imports the rows of an earlier preview.
func (s *Server) handleCommitPreview(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.CommitPreview(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleImport imports the uploaded file without a preview step.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := s.readImport(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	result, err := s.service.Import(r.Context(), data)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleImportStatus reports import slot usage.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.LimiterStatus())
}

// readImport returns the uploaded bytes from a multipart "file" field or,
// for any other content type, the raw body.
func (s *Server) readImport(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	maxSize := s.cfg.Import.MaxFileSize
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if !strings.HasPrefix(mediaType, "multipart/") {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if len(data) == 0 {
			return nil, errNoFile
		}
		return data, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, errNoFile
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return nil, errNoFile
	}
	return data, nil
}
