package server

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/orgbridge/go-orgbridge/internal/svclog"
)

// IndexStatsResponse summarizes the vector index.
type IndexStatsResponse struct {
	Documents int    `json:"documents"`
	Store     string `json:"store"`
}

// IndexClearResponse acknowledges a full index wipe.
type IndexClearResponse struct {
	Cleared bool `json:"cleared"`
}

// IndexDeleteResponse reports how many chunks a file deletion removed.
type IndexDeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

// handleIndexStats reports the size of the vector index.
// @Summary Vector index statistics
// @Tags index
// @Produce json
// @Success 200 {object} IndexStatsResponse
// @Failure 500 {object} ErrorResponse "Count failed"
// @Security BearerAuth
// @Router /v1/index/stats [get]
func (s *HTTPServer) handleIndexStats(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count(r.Context())
	if err != nil {
		svclog.Log.Error("Index count failed", "error", err)
		writeError(w, http.StatusInternalServerError, "stats_error", "Failed to count documents")
		return
	}
	writeJSON(w, http.StatusOK, IndexStatsResponse{Documents: count, Store: s.config.StoreName})
}

// handleIndexClear deletes every chunk in the vector index.
// @Summary Clear the vector index
// @Tags index
// @Produce json
// @Success 200 {object} IndexClearResponse
// @Failure 500 {object} ErrorResponse "Clear failed"
// @Security BearerAuth
// @Router /v1/index [delete]
func (s *HTTPServer) handleIndexClear(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		svclog.Log.Error("Index clear failed", "error", err)
		writeError(w, http.StatusInternalServerError, "clear_error", "Failed to clear index")
		return
	}
	svclog.Log.Info("Cleared vector index", "store", s.config.StoreName)
	writeJSON(w, http.StatusOK, IndexClearResponse{Cleared: true})
}

// handleIndexDeleteFile removes all chunks ingested from one file.
// @Summary Delete one file's chunks from the index
// @Tags index
// @Produce json
// @Param fileName path string true "File name as recorded at ingest time"
// @Success 200 {object} IndexDeleteResponse
// @Failure 400 {object} ErrorResponse "Bad file name"
// @Failure 500 {object} ErrorResponse "Delete failed"
// @Security BearerAuth
// @Router /v1/index/documents/{fileName} [delete]
func (s *HTTPServer) handleIndexDeleteFile(w http.ResponseWriter, r *http.Request) {
	fileName, err := url.PathUnescape(chi.URLParam(r, "fileName"))
	if err != nil || fileName == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid file name")
		return
	}
	deleted, err := s.store.DeleteByFileName(r.Context(), fileName)
	if err != nil {
		svclog.Log.Error("Index delete failed", "file", fileName, "error", err)
		writeError(w, http.StatusInternalServerError, "delete_error", "Failed to delete documents")
		return
	}
	svclog.Log.Info("Deleted file from index", "file", fileName, "chunks", deleted)
	writeJSON(w, http.StatusOK, IndexDeleteResponse{Deleted: deleted})
}
