package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string `env:"ENV" env-default:"local"`
	DatabaseURL string `env:"DATABASE_URL" env-required:"true"`
	HTTP        HTTPConfig
	Secret      string `env:"SECRET" env-required:"true"`
	DisableAuth bool   `env:"DISABLE_AUTH" env-default:"false"`
	Minio       MinioConfig
	LLM         LLMConfig
	Geocoding   GeocodingConfig
	Redis       RedisConfig
	Extraction  ExtractionConfig
}

type HTTPConfig struct {
	Port         int           `env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"60s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	// CORSOrigins — разрешённые источники SPA
	CORSOrigins []string `env:"HTTP_CORS_ORIGINS" env-separator:"," env-default:"http://localhost:5173"`
}

type MinioConfig struct {
	Enabled           bool   `env:"MINIO_ENABLE" env-default:"false"`
	MinioEndpoint     string `env:"MINIO_ENDPOINT"`
	BucketName        string `env:"MINIO_BUCKET" env-default:"property-images"`
	MinioRootUser     string `env:"MINIO_USER"`
	MinioRootPassword string `env:"MINIO_PASSWORD"`
	MinioUseSSL       bool   `env:"MINIO_USE_SSL"`
	// PublicBaseURL — базовый URL, по которому изображения отдаются клиенту
	PublicBaseURL string `env:"MINIO_PUBLIC_BASE_URL"`
}

// LLMConfig — конфигурация для LLM API (OpenAI-совместимый Chat Completions).
type LLMConfig struct {
	Enabled bool          `env:"LLM_ENABLE" env-default:"false"`
	BaseURL string        `env:"LLM_BASE_URL" env-default:"https://api.openai.com/v1"`
	APIKey  string        `env:"LLM_API_KEY"`
	Model   string        `env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	Timeout time.Duration `env:"LLM_TIMEOUT" env-default:"60s"`
}

// GeocodingConfig — конфигурация геокодера (MapTiler Geocoding API) и пакетной обработки.
type GeocodingConfig struct {
	Enabled bool          `env:"GEOCODING_ENABLE" env-default:"false"`
	BaseURL string        `env:"GEOCODING_BASE_URL" env-default:"https://api.maptiler.com"`
	APIKey  string        `env:"GEOCODING_API_KEY"`
	Timeout time.Duration `env:"GEOCODING_TIMEOUT" env-default:"5s"`
	// BatchSize — сколько адресов геокодируется одновременно
	BatchSize int `env:"GEOCODING_BATCH_SIZE" env-default:"3"`
	// BatchPause — пауза между пакетами, защищает лимиты внешнего сервиса
	BatchPause time.Duration `env:"GEOCODING_BATCH_PAUSE" env-default:"250ms"`
	// MaxRetries — число повторов одного запроса после неудачи
	MaxRetries   int           `env:"GEOCODING_MAX_RETRIES" env-default:"2"`
	RetryBackoff time.Duration `env:"GEOCODING_RETRY_BACKOFF" env-default:"200ms"`
	// CacheSize — размер LRU-кэша результатов на время жизни процесса
	CacheSize int `env:"GEOCODING_CACHE_SIZE" env-default:"1024"`
	// CacheTTL — время жизни записи в LRU-кэше; 0 — до вытеснения
	CacheTTL time.Duration `env:"GEOCODING_CACHE_TTL" env-default:"24h"`
}

// RedisConfig — постоянный кэш успешных результатов геокодирования.
type RedisConfig struct {
	Enabled  bool          `env:"REDIS_ENABLE" env-default:"false"`
	Addr     string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `env:"REDIS_GEOCODE_TTL" env-default:"720h"`
}

// ExtractionConfig — загрузка страниц объявлений для извлечения данных.
type ExtractionConfig struct {
	Timeout      time.Duration `env:"EXTRACTION_TIMEOUT" env-default:"15s"`
	MaxBodyBytes int64         `env:"EXTRACTION_MAX_BODY_BYTES" env-default:"5242880"`
	UserAgent    string        `env:"EXTRACTION_USER_AGENT" env-default:"home-compare-bot/1.0"`
	// AllowPrivateHosts разрешает загрузку из внутренней сети (только для локальной разработки)
	AllowPrivateHosts bool `env:"EXTRACTION_ALLOW_PRIVATE_HOSTS" env-default:"false"`
}

func MustLoad() *Config {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic("cannot read config from environment: " + err.Error())
	}
	return &cfg
}
