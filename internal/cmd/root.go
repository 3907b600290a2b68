// Package cmd provides the CLI commands for orgbridge.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/orgbridge/go-orgbridge/internal/config"
	"github.com/orgbridge/go-orgbridge/internal/ingest"
	"github.com/orgbridge/go-orgbridge/internal/svclog"
)

// global flags
var (
	logFile  string
	logLevel string
)

// rootCmd is the root command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "orgbridge",
	Short: "Salesforce org bridge with RAG documentation search",
	Long: `orgbridge connects a Salesforce org to a documentation index.

It serves a REST API for answering questions over ingested reference-app
documentation, receives Data Cloud Data Action webhooks, and runs org data
operations (SOQL queries, composite unit-of-work writes) on behalf of the
AppLink runtime.

Commands:
  serve    Start the HTTP server (or MCP server with 'serve mcp')
  ingest   Load documents into the vector index
  index    Inspect and manage the vector index
  invoke   Call a local endpoint with a synthetic org client context

Examples:
  orgbridge serve                          # API server on port 8000
  orgbridge ingest dir ./docs --watch      # Ingest and keep watching
  orgbridge ingest readmes                 # Sweep org READMEs from GitHub
  orgbridge index stats                    # Show index size`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logFile != "" {
			if err := svclog.Log.UseFile(logFile); err != nil {
				return err
			}
		}
		if logLevel != "" {
			svclog.Log.SetLevel(svclog.ParseLevel(logLevel))
		} else {
			svclog.Log.SetLevel(svclog.ParseLevel(os.Getenv("LOG_LEVEL")))
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the process configuration from the environment.
func loadConfig() (*config.Config, error) {
	return config.Load(os.Getenv)
}

func init() {
	// Global flags on root
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: DEBUG, INFO, WARN, ERROR (default from LOG_LEVEL)")

	// Serve command flags
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "server port (default: PORT env or 8000)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "server host (default: all interfaces)")
	serveCmd.Flags().StringVar(&serveCORSOrigin, "cors-origin", "", "Access-Control-Allow-Origin value (default: ORGBRIDGE_CORS_ORIGIN env or *)")
	serveCmd.Flags().StringVar(&serveAuthToken, "auth-token", "", "bearer token for the /v1 admin routes (default: ORGBRIDGE_AUTH_TOKEN env)")
	serveCmd.Flags().BoolVarP(&serveQuiet, "quiet", "q", false, "suppress HTTP request logging")

	// Serve MCP subcommand flags
	serveMcpCmd.Flags().BoolVar(&mcpStdio, "stdio", false, "use stdio transport (default if no --port)")
	serveMcpCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "run MCP over HTTP on this port")
	serveMcpCmd.Flags().StringVar(&mcpHost, "host", "localhost", "host to bind MCP HTTP server")
	serveMcpCmd.Flags().StringVar(&mcpToken, "token", "", "bearer token for HTTP authentication (default: ORGBRIDGE_AUTH_TOKEN env)")
	serveMcpCmd.Flags().StringSliceVar(&mcpAllowTools, "allowed-tools", nil, "only expose these tools (default: ORGBRIDGE_MCP_ALLOW_TOOLS env)")
	serveMcpCmd.Flags().StringSliceVar(&mcpDenyTools, "disallowed-tools", nil, "hide these tools (default: ORGBRIDGE_MCP_DENY_TOOLS env)")

	// Ingest command flags
	ingestDirCmd.Flags().BoolVar(&ingestWatch, "watch", false, "keep watching for changes after the initial ingest")
	ingestReadmesCmd.Flags().StringVar(&sweepOrg, "org", ingest.DefaultOrg, "GitHub organization to sweep")
	ingestReadmesCmd.Flags().StringVar(&sweepManifestPath, "manifest", "", "TOML manifest for multi-org sweeps (overrides --org)")
	ingestReadmesCmd.Flags().StringVarP(&sweepOutputDir, "output", "o", "", "directory for downloaded READMEs (default "+ingest.DefaultOutputDir+")")
	ingestReadmesCmd.Flags().BoolVar(&sweepSkipExisting, "skip-existing", false, "reuse already-downloaded READMEs instead of fetching")

	// Index command flags
	indexClearCmd.Flags().BoolVarP(&indexClearYes, "yes", "y", false, "skip confirmation prompt")

	// Invoke command flags
	invokeCmd.Flags().StringVar(&invokeData, "data", "", "JSON body for POST/PUT requests")
	invokeCmd.Flags().StringVar(&invokeTarget, "target", "", "base URL of the running server (default http://localhost:$PORT)")

	// Build command tree
	serveCmd.AddCommand(serveMcpCmd)
	serveCmd.AddCommand(serveTokenCmd)
	ingestCmd.AddCommand(ingestDirCmd)
	ingestCmd.AddCommand(ingestReadmesCmd)
	indexCmd.AddCommand(indexStatsCmd)
	indexCmd.AddCommand(indexClearCmd)
	indexCmd.AddCommand(indexDeleteCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(invokeCmd)
	rootCmd.AddCommand(versionCmd)
}
