package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-fuego/fuego"
	"github.com/go-fuego/fuego/option"

	"github.com/blockedby/chat-observer/internal/web"
)

// Server represents the Fuego API server.
type Server struct {
	fuego   *fuego.Server
	deps    *Dependencies
	port    int
	version string
}

// Dependencies contains all service dependencies. Nil members disable
// the routes that need them.
type Dependencies struct {
	Ledger   LedgerService
	Observer ObserverService
	DB       DatabasePinger
	Broker   BrokerStatus
	Hub      HubBroadcaster
}

// Config holds API server configuration.
type Config struct {
	Port        int
	Title       string
	Description string
	Version     string
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
}

// NewServer creates a new Fuego API server.
func NewServer(cfg *Config, deps *Dependencies) *Server {
	s := fuego.NewServer(
		fuego.WithAddr(fmt.Sprintf(":%d", cfg.Port)),
		fuego.WithEngineOptions(
			fuego.WithOpenAPIConfig(fuego.OpenAPIConfig{
				PrettyFormatJSON: true,
				DisableLocalSave: true,
				SwaggerURL:       "/docs",
				SpecURL:          "/openapi.json",
				UIHandler: func(specURL string) http.Handler {
					return ScalarHandler(specURL, cfg.Title, cfg.Description)
				},
			}),
		),
	)

	s.OpenAPI.Description().Info.Title = cfg.Title
	s.OpenAPI.Description().Info.Description = cfg.Description
	s.OpenAPI.Description().Info.Version = cfg.Version

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Add Chi middleware (Fuego is net/http compatible)
	fuego.Use(s, middleware.RequestID)
	fuego.Use(s, middleware.RealIP)
	fuego.Use(s, middleware.Logger)
	fuego.Use(s, middleware.Recoverer)
	fuego.Use(s, cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if deps == nil {
		deps = &Dependencies{}
	}

	srv := &Server{
		fuego:   s,
		deps:    deps,
		port:    cfg.Port,
		version: cfg.Version,
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) registerRoutes() {
	// Health check
	fuego.Get(s.fuego, "/health", s.healthCheck,
		option.Summary("Health Check"),
		option.Description("Returns the health status of the API, the ledger store and the NATS connection"),
		option.Tags("System"),
	)

	// Observer API
	fuego.Get(s.fuego, "/api/v1/observer/status", s.getObserverStatus,
		option.Summary("Observer Status"),
		option.Description("Returns the pipeline phase and counters"),
		option.Tags("Observer"),
	)

	// Ledger API
	ledgerGroup := fuego.Group(s.fuego, "/api/v1/ledger",
		option.Tags("Ledger"),
	)

	fuego.Get(ledgerGroup, "", s.listLedger,
		option.Summary("List Ledger"),
		option.Description("Returns the last processed message id per conversation"),
	)

	fuego.Delete(ledgerGroup, "", s.resetLedger,
		option.Summary("Reset Ledger"),
		option.Description("Forgets every conversation; already seen messages may be submitted again"),
	)

	// WebSocket (plain handler, outside the OpenAPI surface)
	if hub, ok := s.deps.Hub.(*web.Hub); ok {
		s.fuego.Mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
			web.ServeWs(hub, w, r)
		})
	}
}

// Start starts the API server. It returns nil after Stop.
func (s *Server) Start() error {
	if err := s.fuego.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.fuego.Shutdown(ctx)
}

// Mux returns the underlying ServeMux for mounting additional routes.
func (s *Server) Mux() *http.ServeMux {
	return s.fuego.Mux
}
