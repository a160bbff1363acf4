// Package extraction заполняет черновик объекта по ссылке на объявление:
// сначала по разметке schema.org, затем, при необходимости, через LLM.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"home_compare/internal/config"
	"home_compare/internal/domain"
	"home_compare/internal/lib/jsonld"
	"home_compare/internal/lib/llm"
	"home_compare/internal/lib/logger/sl"
	"home_compare/internal/lib/metrics"
	"home_compare/internal/repository"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// maxPromptRunes — сколько символов текста страницы уходит в LLM.
const maxPromptRunes = 12000

// ProfileReader — чтение профиля для проверки доступа к AI-функциям.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error)
}

var (
	ErrInvalidURL    = errors.New("listing url must be an absolute http(s) url")
	ErrFetchFailed   = errors.New("failed to fetch listing page")
	ErrNoListingData = errors.New("no listing data found on page")
)

type Service struct {
	log        *slog.Logger
	guard      *hostGuard
	httpClient *http.Client
	cfg        config.ExtractionConfig
	profiles   ProfileReader
	llmClient  llm.Client
	metrics    *metrics.Metrics
}

func New(
	log *slog.Logger,
	cfg config.ExtractionConfig,
	profiles ProfileReader,
	llmClient llm.Client,
	m *metrics.Metrics,
) *Service {
	guard := newHostGuard(cfg.AllowPrivateHosts)
	return &Service{
		log:        log,
		guard:      guard,
		httpClient: guard.httpClient(cfg.Timeout),
		cfg:        cfg,
		profiles:   profiles,
		llmClient:  llmClient,
		metrics:    m,
	}
}

// ExtractFromURL загружает страницу объявления и строит черновик объекта.
// Данные schema.org имеют приоритет, LLM дополняет только недостающие поля.
func (s *Service) ExtractFromURL(ctx context.Context, userID uuid.UUID, rawURL string) (domain.PropertyDraft, error) {
	const op = "extraction.Service.ExtractFromURL"
	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", userID.String()),
	)

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.PropertyDraft{}, fmt.Errorf("%s: %w", op, ErrInvalidURL)
	}
	source := u.String()
	log = log.With(slog.String("url", source))

	if err := s.guard.checkHost(ctx, u.Hostname()); err != nil {
		log.Warn("listing host rejected", sl.Err(err))
		return domain.PropertyDraft{}, fmt.Errorf("%s: %w", op, err)
	}

	page, err := s.fetch(ctx, source)
	if err != nil {
		log.Warn("failed to fetch listing page", sl.Err(err))
		return domain.PropertyDraft{}, fmt.Errorf("%s: %w", op, err)
	}

	listing, found := page.Best()
	draft := listing.Draft()
	if draft.Title == "" {
		draft.Title = page.Title
	}
	if len(draft.Images) == 0 {
		draft.Images = page.Images
	}

	if !(found && listing.Complete()) && s.aiAllowed(ctx, userID) {
		extracted, err := s.llmClient.ExtractProperty(ctx, llm.ExtractPropertyRequest{
			URL:      source,
			PageText: truncate(page.Text, maxPromptRunes),
		})
		if err != nil {
			log.Warn("LLM extraction failed, keeping structured data only", sl.Err(err))
		} else {
			fillMissing(&draft, extracted)
		}
	}

	if draft.Title == "" && draft.Address == "" {
		return domain.PropertyDraft{}, fmt.Errorf("%s: %w", op, ErrNoListingData)
	}

	draft.Images = lo.Uniq(lo.Compact(draft.Images))
	draft.Costs = draft.Costs.Sanitize()
	draft.SourceURL = &source

	log.Info("listing extracted",
		slog.Bool("structured", found),
		slog.Int("images", len(draft.Images)),
	)

	return draft, nil
}

func (s *Service) fetch(ctx context.Context, target string) (*jsonld.Page, error) {
	timer := s.metrics.StartTimer(metrics.ServiceListing)

	page, err := func() (*jsonld.Page, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}
		req.Header.Set("User-Agent", s.cfg.UserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			if errors.Is(err, ErrForbiddenHost) {
				return nil, ErrForbiddenHost
			}
			return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
		}

		body := io.Reader(resp.Body)
		if s.cfg.MaxBodyBytes > 0 {
			body = io.LimitReader(resp.Body, s.cfg.MaxBodyBytes)
		}
		return jsonld.Parse(body)
	}()

	timer.Stop(err)
	return page, err
}

// aiAllowed — LLM включён и у пользователя есть доступ к AI-функциям.
func (s *Service) aiAllowed(ctx context.Context, userID uuid.UUID) bool {
	if s.llmClient == nil || !s.llmClient.IsEnabled() {
		return false
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
		s.log.Warn("failed to read profile", slog.String("user_id", userID.String()), sl.Err(err))
		return false
	}
	return domain.CapabilitiesOf(profile).AIFeatures
}

func fillMissing(d *domain.PropertyDraft, r *llm.ExtractPropertyResponse) {
	if d.Title == "" && r.Title != nil {
		d.Title = strings.TrimSpace(*r.Title)
	}
	if d.Address == "" && r.Address != nil {
		d.Address = strings.TrimSpace(*r.Address)
	}
	if d.Description == "" && r.Description != nil {
		d.Description = strings.TrimSpace(*r.Description)
	}
	if d.Bedrooms == 0 && r.Bedrooms != nil {
		d.Bedrooms = max(*r.Bedrooms, 0)
	}
	if d.Bathrooms == 0 && r.Bathrooms != nil {
		d.Bathrooms = max(*r.Bathrooms, 0)
	}
	if d.ParkingSpots == 0 && r.ParkingSpots != nil {
		d.ParkingSpots = max(*r.ParkingSpots, 0)
	}
	if d.Area == 0 && r.Area != nil {
		d.Area = *r.Area
	}
	if d.Floor == nil && r.Floor != nil {
		d.Floor = r.Floor
	}
	if d.Costs.Rent == 0 && r.Rent != nil {
		d.Costs.Rent = *r.Rent
	}
	if d.Costs.CondoFee == 0 && r.CondoFee != nil {
		d.Costs.CondoFee = *r.CondoFee
	}
	if d.Costs.PropertyTax == 0 && r.PropertyTax != nil {
		d.Costs.PropertyTax = *r.PropertyTax
	}
	if len(d.Images) == 0 {
		d.Images = lo.Filter(r.Images, func(img string, _ int) bool {
			return strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://")
		})
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
