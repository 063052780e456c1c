package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/prisme-studio/prisme/backend/internal/config"
	analyticsHandler "github.com/prisme-studio/prisme/backend/internal/handler/analytics"
	consultHandler "github.com/prisme-studio/prisme/backend/internal/handler/consult"
	inviteHandler "github.com/prisme-studio/prisme/backend/internal/handler/invite"
	quoteHandler "github.com/prisme-studio/prisme/backend/internal/handler/quote"
	middlewarePkg "github.com/prisme-studio/prisme/backend/internal/middleware"
	"github.com/prisme-studio/prisme/backend/internal/model/quote"
	"github.com/prisme-studio/prisme/backend/internal/service/budget"
	consultService "github.com/prisme-studio/prisme/backend/internal/service/consult"
	inviteService "github.com/prisme-studio/prisme/backend/internal/service/invite"
	"github.com/prisme-studio/prisme/backend/internal/service/pricing"
	"github.com/prisme-studio/prisme/backend/internal/service/ratelimit"
)

// Deps bundles the constructed services the router wires into handlers.
type Deps struct {
	Catalog   quote.Catalog
	Sessions  *consultService.Store
	Resolver  *consultService.Resolver
	Engine    *pricing.Engine
	Tracker   *budget.Tracker
	Limiter   *ratelimit.Limiter
	Verifier  *inviteService.Verifier
	Consult   config.ConsultConfig
	AIEnabled bool
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	invite := inviteHandler.New(deps.Verifier, deps.Sessions, deps.Limiter)
	consult := consultHandler.New(deps.Sessions, deps.Resolver, deps.Tracker, deps.Limiter, deps.Catalog, deps.Consult, deps.AIEnabled)
	quotes := quoteHandler.New(deps.Engine, deps.Catalog, deps.Consult)
	analytics := analyticsHandler.New()

	r.Route("/api", func(api chi.Router) {
		invite.RegisterRoutes(api)
		consult.RegisterRoutes(api)
		quotes.RegisterRoutes(api)
		analytics.RegisterRoutes(api)
	})

	return r
}
