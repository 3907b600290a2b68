package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orgbridge/go-orgbridge/internal/crm"
	"github.com/orgbridge/go-orgbridge/internal/datacloud"
	"github.com/orgbridge/go-orgbridge/internal/server"
	"github.com/orgbridge/go-orgbridge/internal/svclog"
)

// Serve command flags
var (
	servePort       int
	serveHost       string
	serveCORSOrigin string
	serveAuthToken  string
	serveQuiet      bool
)

// Serve mcp subcommand flags
var (
	mcpStdio      bool
	mcpPort       int
	mcpHost       string
	mcpToken      string
	mcpAllowTools []string
	mcpDenyTools  []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the orgbridge HTTP server",
	Long: `Start the orgbridge HTTP server.

The server provides:
  - GET  /search                            RAG answers over the indexed docs
  - POST /handleDataCloudDataChangeEvent/   Data Cloud Data Action webhook
  - GET  /v1/events, /v1/events/ws          Stored event log and live feed
  - /api/accounts/, /api/unitofwork/        Org data operations (AppLink)
  - /docs                                   Swagger UI

Admin routes under /v1 require "Authorization: Bearer <token>" when a token
is configured. Generate one with: orgbridge serve token

Use 'orgbridge serve mcp' for MCP (Model Context Protocol) server.

Examples:
  orgbridge serve                  # Start HTTP server on $PORT (default 8000)
  orgbridge serve -p 8080          # Start on custom port
  orgbridge serve --auth-token xyz # Protect the /v1 admin routes`,
	RunE: runServeHTTP,
}

var serveMcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI tool integration",
	Long: `Start an MCP (Model Context Protocol) server exposing the documentation
index to AI tools.

By default, runs on stdio for use with Claude Desktop and other MCP clients.
Use --port to run over HTTP instead.

Tools:
  search_docs   Answer a question from the indexed documentation
  index_stats   Report the size of the vector index

Authentication:
  For HTTP transport: use --token or the ORGBRIDGE_AUTH_TOKEN environment
  variable. Clients must send "Authorization: Bearer <token>".
  Generate a secure token with: orgbridge serve token

Examples:
  orgbridge serve mcp                          # MCP server on stdio (default)
  orgbridge serve mcp --stdio                  # Explicitly use stdio transport
  orgbridge serve mcp --port 8090              # MCP server over HTTP
  orgbridge serve mcp --allowed-tools search_docs`,
	RunE: runServeMCP,
}

var serveTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generate a secure authentication token",
	Long: `Generate a cryptographically secure random token for API/MCP authentication.

The token can be used with:
  - orgbridge serve --auth-token <token>   # Secure the /v1 admin routes
  - orgbridge serve mcp --token <token>    # Secure the MCP server
  - ORGBRIDGE_AUTH_TOKEN env var           # Same as above

Examples:
  orgbridge serve token               # Generate and print a token
  export ORGBRIDGE_AUTH_TOKEN=$(orgbridge serve token)
  orgbridge serve                     # Uses token from env`,
	RunE: runServeToken,
}

func runServeHTTP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The search routes need the managed inference endpoints; without them
	// the server still runs and reports the failure per request.
	if err := cfg.ValidateSearch(); err != nil {
		svclog.Log.Warn("Search is not fully configured", "error", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	events, err := datacloud.NewEventStore(eventsDBPath(cfg))
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer events.Close()

	var addon *crm.AddonClient
	if cfg.AppLinkAPIURL != "" {
		addon = crm.NewAddonClient(cfg.AppLinkAPIURL, cfg.AppLinkToken, nil)
	}

	port := servePort
	if port == 0 {
		port = cfg.Port
	}
	authToken := serveAuthToken
	if authToken == "" {
		authToken = cfg.AuthToken
	}

	svclog.Log.Info("Starting HTTP server", "port", port, "host", serveHost, "store", cfg.VectorBackend)

	ctx, cancel := interruptContext()
	defer cancel()

	if count, err := store.Count(ctx); err == nil {
		svclog.Log.Info("Vector store opened", "backend", cfg.VectorBackend, "documents", count)
	}
	if st, err := events.Stats(ctx); err == nil {
		svclog.Log.Info("Event log opened", "events", st.Events, "db_bytes", st.DBSizeBytes)
	}

	srv := server.NewHTTPServer(server.Config{
		Host:           serveHost,
		Port:           port,
		CORSOrigin:     resolveCORSOrigin(),
		AuthToken:      authToken,
		StoreName:      cfg.VectorBackend,
		Quiet:          serveQuiet,
		DataCloudOrg:   cfg.DataCloudOrg,
		DataCloudQuery: cfg.DataCloudQuery,
	}, server.Deps{
		Store:    store,
		Embedder: newEmbedder(cfg),
		Chat:     newChat(cfg),
		Events:   events,
		Bus:      datacloud.NewEventBus(),
		Addon:    addon,
	})

	return srv.ListenAndServe(ctx)
}

func runServeMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Determine transport mode: stdio (default) or HTTP
	useStdio := mcpStdio || mcpPort == 0

	// On stdio the protocol owns stdout, so logs must not land there.
	// svclog writes to stderr by default; --log-file redirects further.
	svclog.Log.Info("Starting MCP server", "stdio", useStdio, "port", mcpPort)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	token := mcpToken
	if token == "" {
		token = cfg.AuthToken
	}

	allowTools := mcpAllowTools
	if envAllow := os.Getenv("ORGBRIDGE_MCP_ALLOW_TOOLS"); envAllow != "" && len(allowTools) == 0 {
		allowTools = strings.Split(envAllow, ",")
	}
	denyTools := mcpDenyTools
	if envDeny := os.Getenv("ORGBRIDGE_MCP_DENY_TOOLS"); envDeny != "" && len(denyTools) == 0 {
		denyTools = strings.Split(envDeny, ",")
	}

	ms := server.NewMCPServer(store, newEmbedder(cfg), newChat(cfg), cfg.VectorBackend, token)
	ms.SetToolFilters(allowTools, denyTools)

	ctx, cancel := interruptContext()
	defer cancel()

	if useStdio {
		fmt.Fprintln(os.Stderr, "Starting MCP server on stdio...")
		err := ms.RunStdio(ctx)
		svclog.Log.Info("MCP server exited", "error", err)
		// EOF on stdin is normal termination (client disconnected), not an error
		if err != nil {
			if errors.Is(err, io.EOF) || strings.Contains(err.Error(), "EOF") {
				svclog.Log.Info("EOF received, treating as normal termination")
				return nil
			}
			return err
		}
		return nil
	}

	svclog.Log.Info("Running MCP server on HTTP", "host", mcpHost, "port", mcpPort)
	return ms.RunHTTP(ctx, mcpHost, mcpPort)
}

func runServeToken(cmd *cobra.Command, args []string) error {
	token, err := server.GenerateSecureToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	fmt.Println(token)
	return nil
}

// resolveCORSOrigin returns the CORS origin from the CLI flag or env var, defaulting to "*".
func resolveCORSOrigin() string {
	if serveCORSOrigin != "" {
		return serveCORSOrigin
	}
	if v := os.Getenv("ORGBRIDGE_CORS_ORIGIN"); v != "" {
		return v
	}
	return "*"
}
