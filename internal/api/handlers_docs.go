package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dgallion1/citectx/internal/output"
	"github.com/dgallion1/citectx/internal/store"
	"github.com/go-chi/chi/v5"
)

// handleListDocuments lists stored documents, newest first.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	db := s.orchestrator.Store()
	if db == nil {
		jsonError(w, "document store unavailable", http.StatusServiceUnavailable)
		return
	}

	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	docs, err := db.ListDocuments(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	db := s.orchestrator.Store()
	if db == nil {
		jsonError(w, "document store unavailable", http.StatusServiceUnavailable)
		return
	}
	doc, err := db.GetDocument(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleDocumentRows returns a document's citation rows as JSON, or as
// TSV/JSONL when format is given.
func (s *Server) handleDocumentRows(w http.ResponseWriter, r *http.Request) {
	db := s.orchestrator.Store()
	if db == nil {
		jsonError(w, "document store unavailable", http.StatusServiceUnavailable)
		return
	}
	rows, err := db.Rows(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		s.storeError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" || format == "json" {
		writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
		return
	}

	ow, err := output.ForFormat(format, w, true)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if format == output.FormatTSV {
		w.Header().Set("Content-Type", "text/tab-separated-values; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/x-ndjson")
	}
	if err := ow.Write(rows); err != nil {
		s.log.Error("writing rows", "error", err)
		return
	}
	if err := ow.Flush(); err != nil {
		s.log.Error("flushing rows", "error", err)
	}
}

// handleDeleteDocument deletes a document and its stored rows.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	db := s.orchestrator.Store()
	if db == nil {
		jsonError(w, "document store unavailable", http.StatusServiceUnavailable)
		return
	}
	id := chi.URLParam(r, "docID")
	if err := db.DeleteDocument(r.Context(), id); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	s.log.Error("store error", "error", err)
	jsonError(w, "store error: "+err.Error(), http.StatusInternalServerError)
}
