package server

import (
	"encoding/json"
	"net/http"
)

// @title orgbridge API
// @version 1.0
// @description Salesforce org bridge: RAG document search, Data Cloud event
// @description feed, and org unit-of-work operations.
// @BasePath /

// WelcomeResponse greets API callers and points at the interesting routes.
type WelcomeResponse struct {
	Message             string `json:"message"`
	DocsURL             string `json:"docs_url"`
	SalesforceAPIPrefix string `json:"salesforce_api_prefix"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, err string, msg string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: msg})
}

// handleWelcome greets callers at the root.
// @Summary Welcome message
// @Tags meta
// @Produce json
// @Success 200 {object} WelcomeResponse
// @Router / [get]
func (s *HTTPServer) handleWelcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, WelcomeResponse{
		Message:             "Welcome to orgbridge!",
		DocsURL:             "/docs",
		SalesforceAPIPrefix: "/api",
	})
}

// handleHealth returns a health check response.
// @Summary Health check
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
