// Package server implements the HTTP and MCP surface for orgbridge serve.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/orgbridge/go-orgbridge/internal/crm"
	"github.com/orgbridge/go-orgbridge/internal/datacloud"
	_ "github.com/orgbridge/go-orgbridge/internal/server/docs"
	"github.com/orgbridge/go-orgbridge/internal/svclog"
	"github.com/orgbridge/go-orgbridge/internal/vecstore"
)

// DefaultPort is where the HTTP server listens unless PORT says otherwise.
const DefaultPort = 8000

// Config holds server configuration.
type Config struct {
	Host       string
	Port       int
	CORSOrigin string // Access-Control-Allow-Origin value, default "*"
	AuthToken  string // bearer token for the /v1 admin routes; empty disables auth
	StoreName  string // vector backend label reported by the stats routes
	Quiet      bool   // suppress per-request logging

	// Optional Data Cloud follow-up query, run after each webhook delivery.
	DataCloudOrg   string
	DataCloudQuery string
}

// EventLog is the slice of the event store the webhook and feed handlers
// need.
type EventLog interface {
	Insert(ctx context.Context, events []datacloud.Event) ([]datacloud.StoredEvent, error)
	List(ctx context.Context, filter datacloud.EventFilter) ([]datacloud.StoredEvent, error)
}

// Deps bundles the backends the HTTP server serves.
type Deps struct {
	Store    vecstore.Store
	Embedder QueryEmbedder
	Chat     Completer
	Events   EventLog
	Bus      *datacloud.EventBus
	Addon    *crm.AddonClient // nil when the AppLink add-on is not configured
	OrgHTTP  *http.Client     // nil for the default org API client
}

// QueryEmbedder embeds search queries.
type QueryEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Completer produces chat completions for answer synthesis.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// HTTPServer serves the REST API.
type HTTPServer struct {
	config    Config
	store     vecstore.Store
	embedder  QueryEmbedder
	chat      Completer
	events    EventLog
	bus       *datacloud.EventBus
	tickets   *datacloud.TicketStore
	addon     *crm.AddonClient
	orgHTTP   *http.Client
	router    chi.Router
	startedAt time.Time
}

// NewHTTPServer creates the HTTP server and wires all routes.
func NewHTTPServer(cfg Config, deps Deps) *HTTPServer {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}

	s := &HTTPServer{
		config:    cfg,
		store:     deps.Store,
		embedder:  deps.Embedder,
		chat:      deps.Chat,
		events:    deps.Events,
		bus:       deps.Bus,
		tickets:   datacloud.NewTicketStore(),
		addon:     deps.Addon,
		orgHTTP:   deps.OrgHTTP,
		startedAt: time.Now(),
	}
	s.router = s.setupRouter()
	return s
}

// setupRouter configures all routes and middleware.
func (s *HTTPServer) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware(s.config.CORSOrigin))
	r.Use(metricsMiddleware)

	if !s.config.Quiet {
		r.Use(middleware.Logger)
	}

	r.Get("/", s.handleWelcome)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/index.html", http.StatusMovedPermanently)
	})
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	r.Get("/search", s.handleSearch)
	r.Post("/handleDataCloudDataChangeEvent/", s.handleDataCloudEvent)

	// Admin routes, bearer-protected when a token is configured. The
	// WebSocket feed authenticates with one-time tickets instead because
	// browsers cannot set headers on an upgrade request.
	r.Route("/v1", func(r chi.Router) {
		if s.config.AuthToken != "" {
			svclog.Log.Info("Admin route authentication enabled")
			r.Use(bearerAuth(s.config.AuthToken))
		} else {
			svclog.Log.Warn("Admin routes running without authentication - set ORGBRIDGE_AUTH_TOKEN to secure")
		}

		r.Get("/events", s.handleListEvents)
		r.Post("/events/ticket", s.handleIssueTicket)
		r.Get("/events/ws", s.handleEventsWS)
		r.Get("/index/stats", s.handleIndexStats)
		r.Delete("/index", s.handleIndexClear)
		r.Delete("/index/documents/{fileName}", s.handleIndexDeleteFile)
	})

	// Org-facing routes carry an x-client-context header from the AppLink
	// runtime.
	r.Route("/api", func(r chi.Router) {
		r.Use(requireClientContext)
		r.Get("/accounts/", s.handleListAccounts)
		r.Post("/unitofwork/", s.handleUnitOfWork)
	})

	return r
}

// Router returns the chi router for tests and for combining with other
// servers.
func (s *HTTPServer) Router() chi.Router {
	return s.router
}

// Addr returns the server address.
func (s *HTTPServer) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// ListenAndServe starts the HTTP server and blocks until ctx is canceled.
func (s *HTTPServer) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.Addr(),
		Handler: s.router,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	// Update port if it was auto-assigned
	if s.config.Port == 0 {
		s.config.Port = ln.Addr().(*net.TCPAddr).Port
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("orgbridge server running at http://%s\n", s.Addr())
	return srv.Serve(ln)
}

// corsMiddleware adds CORS headers for cross-origin requests.
func corsMiddleware(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, x-client-context")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
