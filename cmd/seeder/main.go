// The seeder replays the legacy static JSON dataset through the same
// normalize/validate/create pipeline the API uses, backfilling an empty
// datastore. Safe to re-run: existing slugs are skipped.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"chileadicto/internal/adapters/observability"
	redisad "chileadicto/internal/adapters/redis"
	"chileadicto/internal/app"
	"chileadicto/internal/domain"
	"chileadicto/internal/shared"
	"chileadicto/internal/storage/postgrest"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("dataset", cfg.SeedDataset).
		Int("workers", cfg.SeedWorkers).
		Msg("seeder starting")

	client := postgrest.New(cfg.SupabaseURL, cfg.SupabaseAnon, cfg.ServiceRoleKey, cfg.PostgrestRPS)
	if !client.WriteConfigured() {
		log.Fatal().Msg("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required to seed")
	}
	repo := postgrest.NewRepo(client)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	cmds := app.NewCommandService(repo, cache)

	entries, err := loadDataset(cfg.SeedDataset)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load dataset")
	}
	log.Info().Int("entries", len(entries)).Msg("dataset loaded")

	sem := semaphore.NewWeighted(int64(cfg.SeedWorkers))
	var wg sync.WaitGroup
	var mu sync.Mutex
	created, skipped, failed := 0, 0, 0

	for slug, raw := range entries {
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(slug string, raw map[string]any) {
			defer wg.Done()
			defer sem.Release(1)

			p := app.MapLegacyPost(slug, raw)
			got, err := cmds.CreatePost(ctx, p)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
				log.Info().Str("slug", got).Msg("seeded")
			case errors.Is(err, domain.ErrSlugExists):
				skipped++
				log.Info().Str("slug", slug).Msg("already present; skipped")
			default:
				failed++
				log.Warn().Str("slug", slug).Err(err).Msg("seed failed")
			}
		}(slug, raw)
	}

	wg.Wait()
	log.Info().Int("created", created).Int("skipped", skipped).Int("failed", failed).Msg("seeding completed")
}

// loadDataset accepts both dataset layouts: an object keyed by slug, or a
// plain array of entries carrying their own slug.
func loadDataset(path string) (map[string]map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	bySlug := map[string]map[string]any{}
	if err := json.Unmarshal(b, &bySlug); err == nil {
		return bySlug, nil
	}

	var list []map[string]any
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	for _, e := range list {
		slug, _ := e["slug"].(string)
		bySlug[slug] = e
	}
	return bySlug, nil
}
