package main

import (
	"net/http"

	"github.com/rs/zerolog/log"

	server "chileadicto/internal/adapters/http_server"
	"chileadicto/internal/adapters/observability"
	redisad "chileadicto/internal/adapters/redis"
	"chileadicto/internal/app"
	"chileadicto/internal/shared"
	"chileadicto/internal/storage/postgrest"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	client := postgrest.New(cfg.SupabaseURL, cfg.SupabaseAnon, cfg.ServiceRoleKey, cfg.PostgrestRPS)
	if client.Configured() {
		log.Info().Msg("datastore configured")
	} else {
		log.Warn().Msg("datastore unconfigured; serving empty reads")
	}
	repo := postgrest.NewRepo(client)

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	q := app.NewQueryService(repo, cache, cfg.CacheTTL)
	c := app.NewCommandService(repo, cache)
	sliders := app.NewSliderService(cfg.SlidersDir, cfg.SlidersManifest)

	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, C: c, S: sliders, AdminToken: cfg.AdminToken})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
