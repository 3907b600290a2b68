package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/orgbridge/go-orgbridge/internal/rag"
	"github.com/orgbridge/go-orgbridge/internal/svclog"
	"github.com/orgbridge/go-orgbridge/internal/vecstore"
	"github.com/orgbridge/go-orgbridge/internal/version"
)

// MCPServer exposes the documentation index to MCP clients.
type MCPServer struct {
	server     *mcp.Server
	store      vecstore.Store
	embedder   QueryEmbedder
	chat       Completer
	storeName  string
	authToken  string
	allowTools map[string]bool
	denyTools  map[string]bool
}

// NewMCPServer creates an MCP server with the orgbridge documentation tools.
func NewMCPServer(store vecstore.Store, embedder QueryEmbedder, chat Completer, storeName, authToken string) *MCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "orgbridge",
		Version: version.Get(),
	}, nil)

	return &MCPServer{
		server:    server,
		store:     store,
		embedder:  embedder,
		chat:      chat,
		storeName: storeName,
		authToken: authToken,
	}
}

// SetToolFilters configures which tools are allowed or denied and then registers the tools.
func (ms *MCPServer) SetToolFilters(allow, deny []string) {
	if len(allow) > 0 {
		ms.allowTools = make(map[string]bool)
		for _, t := range allow {
			ms.allowTools[strings.TrimSpace(t)] = true
		}
	}
	if len(deny) > 0 {
		ms.denyTools = make(map[string]bool)
		for _, t := range deny {
			ms.denyTools[strings.TrimSpace(t)] = true
		}
	}

	ms.registerTools()
}

// isToolAllowed checks if a tool should be registered.
func (ms *MCPServer) isToolAllowed(name string) bool {
	if ms.denyTools != nil && ms.denyTools[name] {
		return false
	}
	if ms.allowTools != nil && !ms.allowTools[name] {
		return false
	}
	return true
}

// registerTools adds allowed orgbridge tools to the MCP server.
func (ms *MCPServer) registerTools() {
	if ms.isToolAllowed("search_docs") {
		mcp.AddTool(ms.server, &mcp.Tool{
			Name:        "search_docs",
			Description: "Answer a question from the indexed reference app documentation using retrieval-augmented generation",
		}, ms.handleSearchDocs)
	}

	if ms.isToolAllowed("index_stats") {
		mcp.AddTool(ms.server, &mcp.Tool{
			Name:        "index_stats",
			Description: "Report how many document chunks the vector index holds",
		}, ms.handleIndexStatsTool)
	}
}

// Tool input/output types

type searchDocsInput struct {
	Query        string `json:"query"`
	TopK         int    `json:"top_k,omitempty"`         // Chunks to retrieve, default 10
	ResponseMode string `json:"response_mode,omitempty"` // tree_summarize, refine, compact or simple_summarize
}

type searchDocsOutput struct {
	Query          string `json:"query"`
	Response       string `json:"response"`
	DocumentsCount int    `json:"documents_count"`
}

type indexStatsInput struct{}

type indexStatsOutput struct {
	Documents int    `json:"documents"`
	Store     string `json:"store"`
}

func (ms *MCPServer) handleSearchDocs(ctx context.Context, req *mcp.CallToolRequest, input searchDocsInput) (*mcp.CallToolResult, searchDocsOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, searchDocsOutput{}, fmt.Errorf("query is required")
	}
	mode := input.ResponseMode
	if mode == "" {
		mode = rag.ModeTreeSummarize
	}
	if !rag.IsValidMode(mode) {
		return nil, searchDocsOutput{}, fmt.Errorf("invalid response_mode %q, must be one of: %s",
			mode, strings.Join(rag.ValidModes, ", "))
	}

	engine, err := rag.NewEngine(ms.store, ms.embedder, ms.chat, rag.Options{Mode: mode, TopK: input.TopK})
	if err != nil {
		return nil, searchDocsOutput{}, err
	}
	result, err := engine.Answer(ctx, input.Query)
	if err != nil {
		if errors.Is(err, rag.ErrNoDocuments) {
			return nil, searchDocsOutput{}, fmt.Errorf("no documents found in the index; load documents into the vector database first")
		}
		return nil, searchDocsOutput{}, err
	}

	output := searchDocsOutput{
		Query:          result.Query,
		Response:       result.Response,
		DocumentsCount: len(result.Sources),
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: formatJSON(output)}},
	}, output, nil
}

func (ms *MCPServer) handleIndexStatsTool(ctx context.Context, req *mcp.CallToolRequest, _ indexStatsInput) (*mcp.CallToolResult, indexStatsOutput, error) {
	count, err := ms.store.Count(ctx)
	if err != nil {
		return nil, indexStatsOutput{}, err
	}
	output := indexStatsOutput{Documents: count, Store: ms.storeName}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: formatJSON(output)}},
	}, output, nil
}

// RunStdio serves MCP over stdin/stdout, logging the session to stderr.
func (ms *MCPServer) RunStdio(ctx context.Context) error {
	svclog.Log.Info("Starting MCP server on stdio")
	return ms.server.Run(ctx, &mcp.LoggingTransport{Transport: &mcp.StdioTransport{}, Writer: os.Stderr})
}

// RunHTTP serves MCP over SSE. When an auth token is configured every
// request must carry it as a bearer token.
func (ms *MCPServer) RunHTTP(ctx context.Context, host string, port int) error {
	sseHandler := mcp.NewSSEHandler(func(req *http.Request) *mcp.Server {
		return ms.server
	}, nil)

	var handler http.Handler = sseHandler
	if ms.authToken != "" {
		handler = bearerAuth(ms.authToken)(sseHandler)
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	svclog.Log.Info("Starting MCP server on HTTP", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Server returns the underlying MCP server, mainly for tests.
func (ms *MCPServer) Server() *mcp.Server { return ms.server }

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
