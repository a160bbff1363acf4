package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"home_compare/internal/config"
	"home_compare/internal/domain"
	"home_compare/internal/lib/metrics"
)

var (
	// ErrNotFound — сервис ответил, но адрес не распознан. Результат окончательный.
	ErrNotFound = errors.New("address not found")
	// ErrDisabled — геокодирование отключено конфигурацией.
	ErrDisabled = errors.New("geocoding is disabled")
)

// Client — клиент геокодирования адресов (MapTiler Geocoding API).
type Client interface {
	// Geocode возвращает координаты адреса или ErrNotFound.
	Geocode(ctx context.Context, address string) (*domain.Coordinates, error)
	// IsEnabled проверяет, включен ли сервис.
	IsEnabled() bool
}

// featureCollection — ответ MapTiler (GeoJSON FeatureCollection).
type featureCollection struct {
	Features []struct {
		PlaceName string `json:"place_name"`
		// Center — [lng, lat]
		Center []float64 `json:"center"`
	} `json:"features"`
}

type client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	log        *slog.Logger
	metrics    *metrics.Metrics
}

// NewClient создаёт новый клиент геокодирования. Таймаут одного вызова задаёт вызывающая сторона через ctx.
func NewClient(cfg config.GeocodingConfig, log *slog.Logger, m *metrics.Metrics) Client {
	if !cfg.Enabled || cfg.APIKey == "" {
		return &noopClient{log: log}
	}

	return &client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		log:        log,
		metrics:    m,
	}
}

// Geocode отправляет запрос прямого геокодирования и берёт первый найденный объект.
func (c *client) Geocode(ctx context.Context, address string) (coords *domain.Coordinates, err error) {
	const op = "geocoder.Client.Geocode"

	timer := c.metrics.StartTimer(metrics.ServiceGeocoder)
	defer func() {
		if errors.Is(err, ErrNotFound) {
			timer.Stop(nil)
			return
		}
		timer.Stop(err)
	}()

	query := strings.TrimSpace(address)
	if query == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	endpoint := fmt.Sprintf("%s/geocoding/%s.json?%s",
		c.baseURL,
		url.PathEscape(query),
		url.Values{"key": {c.apiKey}, "limit": {"1"}}.Encode(),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to send request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%s: unexpected status code %d: %s", op, resp.StatusCode, string(body))
	}

	var result featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", op, err)
	}

	if len(result.Features) == 0 || len(result.Features[0].Center) < 2 {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	center := result.Features[0].Center
	c.log.Debug("address geocoded",
		slog.String("place_name", result.Features[0].PlaceName),
	)

	return &domain.Coordinates{Lat: center[1], Lng: center[0]}, nil
}

func (c *client) IsEnabled() bool {
	return true
}

// noopClient — заглушка для случая, когда геокодирование отключено.
type noopClient struct {
	log *slog.Logger
}

func (c *noopClient) Geocode(_ context.Context, _ string) (*domain.Coordinates, error) {
	c.log.Debug("geocoding is disabled")
	return nil, ErrDisabled
}

func (c *noopClient) IsEnabled() bool {
	return false
}
