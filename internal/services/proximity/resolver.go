package proximity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"home_compare/internal/config"
	"home_compare/internal/domain"
	"home_compare/internal/lib/geocache"
	"home_compare/internal/lib/geocoder"
	"home_compare/internal/lib/logger/sl"
	"home_compare/internal/lib/metrics"

	"golang.org/x/sync/errgroup"
)

// Geocoder — источник координат адреса.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*domain.Coordinates, error)
}

// ResolverOptions — параметры пакетного геокодирования.
type ResolverOptions struct {
	BatchSize    int
	BatchPause   time.Duration
	CallTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// OptionsFromConfig переносит настройки геокодирования из конфигурации.
func OptionsFromConfig(cfg config.GeocodingConfig) ResolverOptions {
	return ResolverOptions{
		BatchSize:    cfg.BatchSize,
		BatchPause:   cfg.BatchPause,
		CallTimeout:  cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}
}

func (o ResolverOptions) withDefaults() ResolverOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = 3
	}
	if o.BatchPause < 0 {
		o.BatchPause = 0
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 5 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	return o
}

// CoordinateResolver переводит адреса в координаты пакетами ограниченного размера.
// Внутри пакета запросы выполняются параллельно, между пакетами выдерживается пауза.
type CoordinateResolver struct {
	log      *slog.Logger
	geocoder Geocoder
	cache    geocache.Cache
	metrics  *metrics.Metrics
	opts     ResolverOptions
}

// NewCoordinateResolver создаёт резолвер. cache может быть nil.
func NewCoordinateResolver(
	log *slog.Logger,
	g Geocoder,
	cache geocache.Cache,
	m *metrics.Metrics,
	opts ResolverOptions,
) *CoordinateResolver {
	return &CoordinateResolver{
		log:      log,
		geocoder: g,
		cache:    cache,
		metrics:  m,
		opts:     opts.withDefaults(),
	}
}

type lookupResult struct {
	coords    *domain.Coordinates
	cacheable bool
}

// ResolveAll возвращает координаты для каждого адреса из входа (ключ — исходная строка).
// Неудачные и ненайденные адреса получают nil. Одинаковые после нормализации адреса
// запрашиваются один раз. При отмене ctx новые пакеты не запускаются, возвращается
// частичный результат вместе с ctx.Err().
func (r *CoordinateResolver) ResolveAll(ctx context.Context, addresses []string) (map[string]*domain.Coordinates, error) {
	const op = "proximity.CoordinateResolver.ResolveAll"

	log := r.log.With(slog.String("op", op))

	out := make(map[string]*domain.Coordinates, len(addresses))
	resolved := make(map[string]*domain.Coordinates)
	var pending []string
	queued := make(map[string]struct{})

	for _, addr := range addresses {
		key := geocache.NormalizeKey(addr)
		if key == "" {
			out[addr] = nil
			continue
		}
		if _, ok := queued[key]; ok {
			continue
		}
		queued[key] = struct{}{}

		if r.cache != nil {
			if coords, ok := r.cache.Get(ctx, key); ok {
				if coords == nil {
					r.metrics.IncGeocodeCache(metrics.CacheNegativeHit)
				} else {
					r.metrics.IncGeocodeCache(metrics.CacheHit)
				}
				resolved[key] = coords
				continue
			}
			r.metrics.IncGeocodeCache(metrics.CacheMiss)
		}
		pending = append(pending, key)
	}

	fill := func() {
		for _, addr := range addresses {
			key := geocache.NormalizeKey(addr)
			if key == "" {
				continue
			}
			if coords, ok := resolved[key]; ok {
				out[addr] = coords
			}
		}
	}

	for start := 0; start < len(pending); start += r.opts.BatchSize {
		if start > 0 && r.opts.BatchPause > 0 {
			if err := sleep(ctx, r.opts.BatchPause); err != nil {
				fill()
				return out, err
			}
		}
		if err := ctx.Err(); err != nil {
			fill()
			return out, err
		}

		end := min(start+r.opts.BatchSize, len(pending))
		batch := pending[start:end]
		results := make([]lookupResult, len(batch))

		var g errgroup.Group
		for i, key := range batch {
			g.Go(func() error {
				results[i] = r.lookup(ctx, key)
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			log.Debug("geocoding cancelled", slog.Int("resolved", len(resolved)), slog.Int("pending", len(pending)))
			fill()
			return out, err
		}

		for i, key := range batch {
			resolved[key] = results[i].coords
			if r.cache != nil && results[i].cacheable {
				r.cache.Set(ctx, key, results[i].coords)
			}
		}
	}

	fill()
	return out, nil
}

// lookup выполняет один запрос с таймаутом и повторами. Ошибки превращаются в «нет координат».
func (r *CoordinateResolver) lookup(ctx context.Context, address string) lookupResult {
	const op = "proximity.CoordinateResolver.lookup"

	var lastErr error
	for attempt := 0; attempt <= r.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := r.opts.RetryBackoff << (attempt - 1)
			if err := sleep(ctx, backoff); err != nil {
				return lookupResult{}
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
		coords, err := r.geocoder.Geocode(callCtx, address)
		cancel()

		switch {
		case err == nil && coords != nil:
			return lookupResult{coords: coords, cacheable: true}
		case err == nil, errors.Is(err, geocoder.ErrNotFound):
			return lookupResult{cacheable: true}
		case errors.Is(err, geocoder.ErrDisabled):
			return lookupResult{}
		}

		lastErr = err
		if ctx.Err() != nil {
			return lookupResult{}
		}
	}

	r.log.Warn("geocoding failed after retries",
		slog.String("op", op),
		slog.Int("attempts", r.opts.MaxRetries+1),
		sl.Err(lastErr),
	)
	return lookupResult{}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
