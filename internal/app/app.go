package app

import (
	"log/slog"

	"home_compare/internal/api"
	httpapp "home_compare/internal/app/http"
	"home_compare/internal/config"
	"home_compare/internal/lib/geocache"
	"home_compare/internal/lib/geocoder"
	"home_compare/internal/lib/llm"
	"home_compare/internal/lib/metrics"
	minio "home_compare/internal/lib/minio/core"
	"home_compare/internal/repository/address_repository"
	"home_compare/internal/repository/preference_repository"
	"home_compare/internal/repository/property_repository"
	"home_compare/internal/services/address"
	"home_compare/internal/services/criteria"
	"home_compare/internal/services/extraction"
	"home_compare/internal/services/preferences"
	"home_compare/internal/services/property"
	"home_compare/internal/services/proximity"
	"home_compare/internal/services/weights"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type App struct {
	HTTPServer *httpapp.App
	LLMClient  llm.Client
	Metrics    *metrics.Metrics
}

// New собирает зависимости приложения. redisClient может быть nil: тогда
// результаты геокодирования кэшируются только в памяти процесса.
func New(
	log *slog.Logger,
	cfg *config.Config,
	pool *pgxpool.Pool,
	redisClient *redis.Client,
	minioClient minio.Client,
	m *metrics.Metrics,
) *App {
	propertyRepository := property_repository.NewPropertyRepository(pool, log)
	addressRepository := address_repository.NewAddressRepository(pool, log)
	preferenceRepository := preference_repository.NewPreferenceRepository(pool, log)

	llmClient := llm.NewClient(cfg.LLM, log)
	geocoderClient := geocoder.NewClient(cfg.Geocoding, log, m)

	var persistent geocache.Cache
	if redisClient != nil {
		persistent = geocache.NewRedis(redisClient, cfg.Redis.TTL, log)
	}
	cache := geocache.NewTiered(geocache.NewLRU(cfg.Geocoding.CacheSize, cfg.Geocoding.CacheTTL), persistent)

	log.Info("external services initialized",
		slog.Bool("llm_enabled", llmClient.IsEnabled()),
		slog.Bool("geocoding_enabled", geocoderClient.IsEnabled()),
		slog.Bool("object_storage_enabled", minioClient.IsEnabled()),
		slog.Bool("redis_cache_enabled", redisClient != nil),
	)

	resolver := criteria.NewResolver(log, preferenceRepository)
	coordinates := proximity.NewCoordinateResolver(log, geocoderClient, cache, m, proximity.OptionsFromConfig(cfg.Geocoding))
	weightsAnalyzer := weights.NewAnalyzer(log, llmClient)

	propertyService := property.New(
		log,
		propertyRepository,
		addressRepository,
		resolver,
		preferenceRepository,
		coordinates,
		llmClient,
		minioClient,
		m,
	)
	addressService := address.New(log, addressRepository, geocoderClient)
	preferenceService := preferences.New(log, preferenceRepository, resolver, weightsAnalyzer)
	extractionService := extraction.New(log, cfg.Extraction, preferenceRepository, llmClient, m)

	// Сохранённые итоговые баллы пересчитываются после каждого изменения критериев.
	preferenceService.Subscribe(propertyService)

	handler := api.NewHandler(log, propertyService, addressService, preferenceService, extractionService)
	router := api.NewRouter(log, handler, api.RouterOptions{
		Auth:           api.NewAuthenticator(cfg.Secret, cfg.DisableAuth),
		Metrics:        m,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		MetricsHandler: promhttp.Handler(),
	})

	return &App{
		HTTPServer: httpapp.New(log, cfg.HTTP, router),
		LLMClient:  llmClient,
		Metrics:    m,
	}
}
