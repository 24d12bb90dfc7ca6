// Package api implements the REST surface of the screening service. It
// handles HTTP routing, request decoding, validation, and response
// formatting; all eligibility semantics live in the screening package.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/csalazar/almoner/internal/engine"
	"github.com/csalazar/almoner/internal/ruleset"
)

// ScreeningService is the part of the screening service the API depends on.
// The interface keeps handlers testable with a fake service.
type ScreeningService interface {
	Screen(ctx context.Context, req engine.Request) (*engine.Result, error)
	Programs(ctx context.Context, jurisdictionCode string) ([]ruleset.Program, error)
}

// API holds the router and its dependencies for the screening REST surface.
type API struct {
	// Router is the chi multiplexer that handles HTTP requests.
	Router *chi.Mux

	service ScreeningService
	logger  *slog.Logger

	// requestTimeout bounds one screening request end to end.
	requestTimeout time.Duration
}

// NewAPI creates an API instance and wires its routes.
func NewAPI(service ScreeningService, logger *slog.Logger, requestTimeout time.Duration) *API {
	if service == nil {
		panic("api: screening service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &API{
		Router:         chi.NewRouter(),
		service:        service,
		logger:         logger,
		requestTimeout: requestTimeout,
	}

	a.configureRoutes()
	return a
}

func (a *API) configureRoutes() {
	// RequestID enables tracing a request across log lines.
	a.Router.Use(middleware.RequestID)
	// RealIP sets the client IP correctly behind a proxy or LB.
	a.Router.Use(middleware.RealIP)
	a.Router.Use(RequestLogger(a.logger))
	a.Router.Use(RequestMetrics)
	// Recoverer turns panics into 500s instead of dropped connections.
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	if a.requestTimeout > 0 {
		a.Router.Use(middleware.Timeout(a.requestTimeout))
	}

	a.Router.Get("/health", a.handleHealthCheck)

	a.Router.Route("/api/v1", func(r chi.Router) {
		r.Post("/screenings", a.handleCreateScreening)
		r.Get("/programs", a.handleListPrograms)
	})
}

// handleHealthCheck confirms the HTTP server is serving. Deep dependency
// checks live on the observability server's readiness probe.
func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}
