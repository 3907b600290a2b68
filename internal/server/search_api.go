package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/orgbridge/go-orgbridge/internal/rag"
	"github.com/orgbridge/go-orgbridge/internal/svclog"
)

// maxTopK caps how many chunks a caller may retrieve per query.
const maxTopK = 20

// SearchResponse is the answer to a documentation query.
type SearchResponse struct {
	Query          string `json:"query"`
	Response       string `json:"response"`
	DocumentsCount int    `json:"documents_count"`
}

// handleSearch answers a question from the indexed documentation.
// @Summary Ask the documentation index a question
// @Description Embeds the query, retrieves the closest chunks and synthesizes an answer.
// @Tags search
// @Produce json
// @Param query query string true "Question to answer"
// @Param top_k query int false "Chunks to retrieve (1-20, default 10)"
// @Param response_mode query string false "Synthesis mode: tree_summarize, refine, compact or simple_summarize"
// @Success 200 {object} SearchResponse
// @Failure 400 {object} ErrorResponse "Missing query or invalid parameters"
// @Failure 404 {object} ErrorResponse "Index is empty"
// @Failure 500 {object} ErrorResponse "Search failed"
// @Router /search [get]
func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "query parameter is required")
		return
	}

	topK := rag.DefaultTopK
	if v := r.URL.Query().Get("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxTopK {
			writeError(w, http.StatusBadRequest, "validation_error",
				fmt.Sprintf("top_k must be an integer between 1 and %d", maxTopK))
			return
		}
		topK = n
	}

	mode := r.URL.Query().Get("response_mode")
	if mode == "" {
		mode = rag.ModeTreeSummarize
	}
	if !rag.IsValidMode(mode) {
		writeError(w, http.StatusBadRequest, "validation_error",
			"Invalid response_mode. Must be one of: "+strings.Join(rag.ValidModes, ", "))
		return
	}

	engine, err := rag.NewEngine(s.store, s.embedder, s.chat, rag.Options{Mode: mode, TopK: topK})
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	start := time.Now()
	result, err := engine.Answer(r.Context(), query)
	searchDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, rag.ErrNoDocuments) {
			writeError(w, http.StatusNotFound, "empty_index",
				"No documents found in the index. Please load documents into the vector database first.")
			return
		}
		svclog.Log.Error("Search failed", "query", query, "mode", mode, "error", err)
		writeError(w, http.StatusInternalServerError, "search_error",
			fmt.Sprintf("Search failed: %v", err))
		return
	}

	svclog.Log.Info("Answered search", "mode", mode, "top_k", topK, "sources", len(result.Sources))
	writeJSON(w, http.StatusOK, SearchResponse{
		Query:          result.Query,
		Response:       result.Response,
		DocumentsCount: len(result.Sources),
	})
}
