package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/prisme-studio/prisme/backend/internal/config"
	"github.com/prisme-studio/prisme/backend/internal/handler"
	"github.com/prisme-studio/prisme/backend/internal/model/quote"
	"github.com/prisme-studio/prisme/backend/internal/service/advisor"
	"github.com/prisme-studio/prisme/backend/internal/service/budget"
	consultService "github.com/prisme-studio/prisme/backend/internal/service/consult"
	inviteService "github.com/prisme-studio/prisme/backend/internal/service/invite"
	"github.com/prisme-studio/prisme/backend/internal/service/pricing"
	"github.com/prisme-studio/prisme/backend/internal/service/ratelimit"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	catalog := quote.NewMemoryCatalog(quote.SeedPackages(), quote.SeedAddOns())
	sessions := consultService.NewStore(config.MaxConsultTurns, config.SessionTTL)
	engine := pricing.NewEngine(catalog)
	tracker := budget.NewTracker(cfg.AI.DailyBudgetUSD, cfg.AI.EstCostPerCallUSD)
	limiter := ratelimit.NewLimiter()
	verifier := inviteService.NewVerifier(cfg.Consult.InviteCodes, cfg.Consult.TurnstileSecret)

	var advisorSvc *advisor.Service
	if cfg.AI.Enabled() {
		chatModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize chat model: %v", err)
			log.Println("continuing with keyword inference only")
		} else if advisorSvc, err = advisor.NewService(ctx, chatModel, catalog); err != nil {
			log.Printf("warning: failed to initialize advisor: %v", err)
			log.Println("continuing with keyword inference only")
		} else {
			log.Println("advisor service initialized successfully")
		}
	} else {
		log.Println("ark credentials not configured, consult runs on keyword inference")
	}

	resolverCfg := consultService.ResolverConfig{
		MaxTurns:          config.MaxConsultTurns,
		DefaultCapacity:   cfg.Consult.DefaultCapacity,
		AllowRushInNormal: cfg.Consult.AllowRushInNormal,
	}

	var resolverAdvisor consultService.Advisor
	if advisorSvc != nil {
		resolverAdvisor = advisorSvc
	}
	resolver := consultService.NewResolver(catalog, engine, resolverAdvisor, resolverCfg)

	router := handler.NewRouter(handler.Deps{
		Catalog:   catalog,
		Sessions:  sessions,
		Resolver:  resolver,
		Engine:    engine,
		Tracker:   tracker,
		Limiter:   limiter,
		Verifier:  verifier,
		Consult:   cfg.Consult,
		AIEnabled: advisorSvc != nil,
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("prisme backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
