package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	// Supabase/PostgREST datastore. Anon key for reads, service-role key for
	// writes. Absence degrades reads to empty results and fails writes hard.
	SupabaseURL    string
	SupabaseAnon   string
	ServiceRoleKey string
	PostgrestRPS   int

	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	AdminToken string

	SlidersDir      string
	SlidersManifest string

	SeedDataset string
	SeedWorkers int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:          env("APP_ENV", "prod"),
		HTTPAddr:        env("HTTP_ADDR", ":8080"),
		MetricsAddr:     env("METRICS_ADDR", ":9100"),
		SupabaseURL:     env("SUPABASE_URL", ""),
		SupabaseAnon:    env("SUPABASE_ANON_KEY", ""),
		ServiceRoleKey:  env("SUPABASE_SERVICE_ROLE_KEY", ""),
		PostgrestRPS:    atoi("POSTGREST_RPS", 10),
		RedisAddr:       env("REDIS_ADDR", "localhost:6379"),
		RedisDB:         atoi("REDIS_DB", 0),
		RedisPass:       env("REDIS_PASSWORD", ""),
		CacheTTL:        time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		AdminToken:      env("ADMIN_TOKEN", ""),
		SlidersDir:      env("SLIDERS_DIR", "public/imagenes-slider"),
		SlidersManifest: env("SLIDERS_MANIFEST", "data/sliders.json"),
		SeedDataset:     env("SEED_DATASET", "data/posts.json"),
		SeedWorkers:     atoi("SEED_WORKERS", 4),
	}
	if c.SupabaseURL == "" {
		log.Warn().Msg("SUPABASE_URL is empty; reads serve empty results, writes will fail")
	} else if c.ServiceRoleKey == "" {
		log.Warn().Msg("SUPABASE_SERVICE_ROLE_KEY is empty; writes will fail")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
