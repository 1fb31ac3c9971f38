package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/internal/catalog"
	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/internal/config"
	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/pkg/cache"
	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/pkg/headers"
	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/pkg/httpcache"
	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/pkg/logging"
	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/pkg/metrics"
	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/pkg/routing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	base := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})
	logger := logging.NewLogger("api-server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Cache.Backend).Msg("Failed to open cache store")
	}
	defer closeStore()
	logger.Info().Str("backend", cfg.Cache.Backend).Msg("Cache store ready")

	rules, err := loadRules(cfg.Cache.RulesFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load cache rules")
	}

	repo := catalog.NewRepository(nil)
	catalog.Seed(repo)

	handler := newServer(serverDeps{
		cfg:    cfg,
		store:  store,
		rules:  rules,
		repo:   repo,
		auth:   catalog.NewTokenAuthorizer(cfg.Auth.Tokens, cfg.Auth.AdminToken),
		logger: base,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("Starting API server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Server failed")
	}
	logger.Info().Msg("Server stopped")
}

// serverDeps holds what newServer wires together.
type serverDeps struct {
	cfg    *config.Config
	store  cache.Store
	rules  httpcache.Rules
	repo   *catalog.Repository
	auth   catalog.Authorizer
	logger zerolog.Logger
}

// newServer builds the HTTP handler: operational endpoints on a chi
// router, the catalog behind the response cache for everything else.
func newServer(deps serverDeps) http.Handler {
	table := routing.NewTable()
	catalog.NewHandlers(
		deps.repo,
		deps.auth,
		headers.NewPolicy(nil),
		deps.cfg.Headers.ExpiresIn,
		deps.logger.With().Str("component", "catalog").Logger(),
	).Register(table)

	mw := httpcache.New(httpcache.Config{
		Store:       deps.store,
		Keys:        cache.NewKeyGenerator(table, deps.rules.PrivateRoutes()),
		Rules:       deps.rules,
		Logger:      deps.logger.With().Str("component", "httpcache").Logger(),
		FallbackTTL: deps.cfg.Cache.FallbackTTL,
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logging.HTTPMiddleware(deps.logger))

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(deps.store))
	r.Handle("/metrics", metrics.Handler())
	r.Mount("/", mw.Handler(table))

	return r
}

// openStore creates the configured cache backend and its cleanup function.
func openStore(ctx context.Context, cfg *config.Config) (cache.Store, func(), error) {
	if !cfg.UsesRedis() {
		return cache.NewMemoryStore(), func() {}, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}

	store := cache.NewRedisStore(redisClient, cache.WithPrefix(cfg.Cache.Prefix))
	return store, func() { redisClient.Close() }, nil
}

// loadRules reads the rule file, or returns the built-in catalog rules.
func loadRules(path string) (httpcache.Rules, error) {
	if path == "" {
		return catalog.CacheRules(), nil
	}
	return httpcache.LoadRules(path)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// pinger is implemented by stores backed by a remote service.
type pinger interface {
	Ping(ctx context.Context) error
}

// readyHandler reports whether the cache store is reachable. Stores
// without a remote backend are always ready.
func readyHandler(store cache.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := store.(pinger)
		if !ok {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, "OK")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			http.Error(w, "cache store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}
