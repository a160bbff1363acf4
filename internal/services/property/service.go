package property

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"home_compare/internal/domain"
	"home_compare/internal/lib/llm"
	"home_compare/internal/lib/logger/sl"
	"home_compare/internal/lib/metrics"
	minio "home_compare/internal/lib/minio/core"
	"home_compare/internal/repository"
	"home_compare/internal/services/ranking"
	"home_compare/internal/services/scoring"
	"home_compare/internal/services/weights"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type PropertyRepository interface {
	CreateProperty(ctx context.Context, property domain.Property) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Property, error)
	UpdateProperty(ctx context.Context, propertyID, ownerID uuid.UUID, update domain.PropertyUpdate) error
	DeleteProperty(ctx context.Context, propertyID, ownerID uuid.UUID) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Property, error)
	UpdateFinalScores(ctx context.Context, scores map[uuid.UUID]float64) error
	AppendImage(ctx context.Context, propertyID uuid.UUID, imageURL string) error
}

// AddressStore — опорные адреса пользователя, участвующие в ранжировании.
type AddressStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ReferenceAddress, error)
	SetCoordinates(ctx context.Context, id uuid.UUID, coords *domain.Coordinates) error
}

// ConfigurationResolver — действующие критерии и веса пользователя.
type ConfigurationResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) domain.ResolvedConfiguration
}

// ProfileReader нужен для проверки доступа к AI-функциям.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error)
}

// CoordinateResolver — пакетное геокодирование адресов.
type CoordinateResolver interface {
	ResolveAll(ctx context.Context, addresses []string) (map[string]*domain.Coordinates, error)
}

type Service struct {
	log       *slog.Logger
	repo      PropertyRepository
	addresses AddressStore
	resolver  ConfigurationResolver
	profiles  ProfileReader
	coords    CoordinateResolver
	llmClient llm.Client
	storage   minio.Client
	metrics   *metrics.Metrics
}

var (
	ErrPropertyNotFound            = errors.New("property not found")
	ErrInvalidProperty             = errors.New("invalid property")
	ErrFeatureRequiresSubscription = errors.New("feature requires an active subscription")
	ErrAIUnavailable               = errors.New("ai service is unavailable")
)

func New(
	log *slog.Logger,
	repo PropertyRepository,
	addresses AddressStore,
	resolver ConfigurationResolver,
	profiles ProfileReader,
	coords CoordinateResolver,
	llmClient llm.Client,
	storage minio.Client,
	m *metrics.Metrics,
) *Service {
	return &Service{
		log:       log,
		repo:      repo,
		addresses: addresses,
		resolver:  resolver,
		profiles:  profiles,
		coords:    coords,
		llmClient: llmClient,
		storage:   storage,
		metrics:   m,
	}
}

// CreateProperty — создаёт объект пользователя. Итоговый балл считается один раз до сохранения.
func (s *Service) CreateProperty(ctx context.Context, userID uuid.UUID, draft domain.PropertyDraft) (domain.Property, error) {
	const op = "property.Service.CreateProperty"
	log := s.log.With(slog.String("op", op), slog.String("user_id", userID.String()))

	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return domain.Property{}, fmt.Errorf("%s: %w: title is required", op, ErrInvalidProperty)
	}

	cfg := s.resolver.Resolve(ctx, userID)

	scores := weights.ClampScores(draft.Scores)
	for _, c := range cfg.ActiveCriteria {
		if _, ok := scores[c.Key]; !ok {
			scores[c.Key] = domain.DefaultScore
		}
	}

	p := domain.Property{
		OwnerUserID:     userID,
		Title:           title,
		Address:         strings.TrimSpace(draft.Address),
		Bedrooms:        max(draft.Bedrooms, 0),
		Bathrooms:       max(draft.Bathrooms, 0),
		ParkingSpots:    max(draft.ParkingSpots, 0),
		Area:            max(draft.Area, 0),
		Floor:           draft.Floor,
		Costs:           draft.Costs.Sanitize(),
		Scores:          scores,
		FinalScore:      scoring.Aggregate(scores, cfg.Weights),
		Images:          lo.Compact(draft.Images),
		SourceURL:       draft.SourceURL,
		LocationSummary: draft.LocationSummary,
	}

	id, err := s.repo.CreateProperty(ctx, p)
	if err != nil {
		log.Error("failed to create property", sl.Err(err))
		return domain.Property{}, fmt.Errorf("%s: %w", op, err)
	}
	p.ID = id

	log.Info("property created",
		slog.String("property_id", id.String()),
		slog.Float64("final_score", p.FinalScore),
	)

	return p, nil
}

// GetProperty — объект пользователя по ID. Чужие объекты неотличимы от отсутствующих.
func (s *Service) GetProperty(ctx context.Context, userID, id uuid.UUID) (domain.Property, error) {
	const op = "property.Service.GetProperty"

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPropertyNotFound) {
			return domain.Property{}, fmt.Errorf("%s: %w", op, ErrPropertyNotFound)
		}
		s.log.Error("failed to get property", slog.String("op", op), sl.Err(err))
		return domain.Property{}, fmt.Errorf("%s: %w", op, err)
	}

	if p.OwnerUserID != userID {
		s.log.Warn("property requested by non-owner",
			slog.String("property_id", id.String()),
			slog.String("user_id", userID.String()),
		)
		return domain.Property{}, fmt.Errorf("%s: %w", op, ErrPropertyNotFound)
	}

	return p, nil
}

// UpdateProperty — частичное обновление объекта с пересчётом итогового балла.
// Переданные баллы дополняют сохранённые.
func (s *Service) UpdateProperty(ctx context.Context, userID, id uuid.UUID, update domain.PropertyUpdate) (domain.Property, error) {
	const op = "property.Service.UpdateProperty"
	log := s.log.With(slog.String("op", op), slog.String("property_id", id.String()))

	current, err := s.GetProperty(ctx, userID, id)
	if err != nil {
		return domain.Property{}, fmt.Errorf("%s: %w", op, err)
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return domain.Property{}, fmt.Errorf("%s: %w: title is required", op, ErrInvalidProperty)
		}
		update.Title = &title
	}
	for _, cost := range []*float64{update.Rent, update.CondoFee, update.PropertyTax, update.Insurance, update.OtherFees, update.Area} {
		if cost != nil && !(*cost >= 0) {
			*cost = 0
		}
	}
	for _, count := range []*int32{update.Bedrooms, update.Bathrooms, update.ParkingSpots} {
		if count != nil && *count < 0 {
			*count = 0
		}
	}

	scores := current.Scores.Clone()
	for k, v := range weights.ClampScores(update.Scores) {
		scores[k] = v
	}
	if update.Scores != nil {
		update.Scores = scores
	}

	cfg := s.resolver.Resolve(ctx, userID)
	finalScore := scoring.Aggregate(scores, cfg.Weights)
	update.FinalScore = &finalScore

	if err := s.repo.UpdateProperty(ctx, id, userID, update); err != nil {
		if errors.Is(err, repository.ErrPropertyNotFound) {
			return domain.Property{}, fmt.Errorf("%s: %w", op, ErrPropertyNotFound)
		}
		log.Error("failed to update property", sl.Err(err))
		return domain.Property{}, fmt.Errorf("%s: %w", op, err)
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Property{}, fmt.Errorf("%s: failed to fetch updated property: %w", op, err)
	}

	log.Info("property updated", slog.Float64("final_score", finalScore))
	return updated, nil
}

// DeleteProperty — удаляет объект пользователя.
func (s *Service) DeleteProperty(ctx context.Context, userID, id uuid.UUID) error {
	const op = "property.Service.DeleteProperty"

	if err := s.repo.DeleteProperty(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrPropertyNotFound) {
			return fmt.Errorf("%s: %w", op, ErrPropertyNotFound)
		}
		s.log.Error("failed to delete property", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("property deleted", slog.String("property_id", id.String()))
	return nil
}

// ListRanked — объекты пользователя, отсортированные с учётом бонусов близости.
// Ошибки геокодирования не прерывают построение списка.
func (s *Service) ListRanked(ctx context.Context, userID uuid.UUID, opts domain.SortOptions) ([]domain.RankedProperty, error) {
	const op = "property.Service.ListRanked"
	log := s.log.With(slog.String("op", op), slog.String("user_id", userID.String()))

	properties, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		log.Error("failed to list properties", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg := s.resolver.Resolve(ctx, userID)

	addresses, err := s.addresses.ListByUser(ctx, userID)
	if err != nil {
		log.Warn("failed to list reference addresses, ranking without proximity", sl.Err(err))
		addresses = nil
	}

	if len(addresses) > 0 && len(properties) > 0 {
		if err := s.attachCoordinates(ctx, properties, addresses); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return ranking.Rank(properties, cfg, addresses, opts), nil
}

// attachCoordinates геокодирует объекты и опорные адреса без координат.
// Возвращает ошибку только при отмене ctx: частичный результат к запросу не применяется.
func (s *Service) attachCoordinates(ctx context.Context, properties []domain.Property, addresses []domain.ReferenceAddress) error {
	queries := make([]string, 0, len(properties)+len(addresses))
	for _, p := range properties {
		queries = append(queries, p.Address)
	}
	for _, a := range addresses {
		if a.Coordinates() == nil {
			queries = append(queries, a.Address)
		}
	}

	resolved, err := s.coords.ResolveAll(ctx, queries)
	if err != nil {
		return err
	}

	for i := range properties {
		properties[i].Coordinates = resolved[properties[i].Address]
	}
	for i := range addresses {
		a := &addresses[i]
		if a.Coordinates() != nil {
			continue
		}
		c := resolved[a.Address]
		if c == nil {
			continue
		}
		a.SetCoordinates(c)
		if err := s.addresses.SetCoordinates(ctx, a.ID, c); err != nil {
			s.log.Warn("failed to store address coordinates",
				slog.String("address_id", a.ID.String()),
				sl.Err(err),
			)
		}
	}
	return nil
}

// RecomputeScores — пересчитывает сохранённые итоговые баллы всех объектов пользователя.
func (s *Service) RecomputeScores(ctx context.Context, userID uuid.UUID) error {
	const op = "property.Service.RecomputeScores"
	log := s.log.With(slog.String("op", op), slog.String("user_id", userID.String()))

	properties, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	cfg := s.resolver.Resolve(ctx, userID)

	changed := make(map[uuid.UUID]float64)
	for _, p := range properties {
		score := scoring.Aggregate(p.Scores, cfg.Weights)
		if score != p.FinalScore {
			changed[p.ID] = score
		}
	}

	if err := s.repo.UpdateFinalScores(ctx, changed); err != nil {
		log.Error("failed to store recomputed scores", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.AddScoresRecomputed(len(changed))
	log.Info("final scores recomputed",
		slog.Int("properties", len(properties)),
		slog.Int("changed", len(changed)),
	)
	return nil
}

// OnConfigurationChanged вызывается после сохранения настроек критериев пользователя.
func (s *Service) OnConfigurationChanged(ctx context.Context, userID uuid.UUID) {
	if err := s.RecomputeScores(ctx, userID); err != nil {
		s.log.Error("failed to recompute scores after configuration change",
			slog.String("user_id", userID.String()),
			sl.Err(err),
		)
	}
}

// ScoreSuggestion — баллы, предложенные AI для черновика объекта.
type ScoreSuggestion struct {
	Scores      domain.PropertyScores `json:"scores"`
	Explanation string                `json:"explanation"`
}

// SuggestScores — предлагает баллы по действующим критериям пользователя. Доступно по подписке.
func (s *Service) SuggestScores(ctx context.Context, userID uuid.UUID, draft domain.PropertyDraft) (*ScoreSuggestion, error) {
	const op = "property.Service.SuggestScores"
	log := s.log.With(slog.String("op", op), slog.String("user_id", userID.String()))

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
		log.Error("failed to read user profile", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !domain.CapabilitiesOf(profile).AIFeatures {
		return nil, fmt.Errorf("%s: %w", op, ErrFeatureRequiresSubscription)
	}
	if s.llmClient == nil || !s.llmClient.IsEnabled() {
		return nil, fmt.Errorf("%s: %w", op, ErrAIUnavailable)
	}

	cfg := s.resolver.Resolve(ctx, userID)
	if len(cfg.ActiveCriteria) == 0 {
		return &ScoreSuggestion{Scores: domain.PropertyScores{}}, nil
	}

	req := llm.SuggestScoresRequest{
		Title:        draft.Title,
		Address:      draft.Address,
		Description:  draft.Description,
		Bedrooms:     draft.Bedrooms,
		Bathrooms:    draft.Bathrooms,
		ParkingSpots: draft.ParkingSpots,
		Area:         draft.Area,
		Floor:        draft.Floor,
		MonthlyCost:  draft.Costs.Sanitize().Total(),
		Criteria: lo.Map(cfg.ActiveCriteria, func(c domain.ActiveCriterion, _ int) llm.CriterionPrompt {
			return llm.CriterionPrompt{Key: c.Key, Label: c.Label}
		}),
	}

	timer := s.metrics.StartTimer(metrics.ServiceLLM)
	resp, err := s.llmClient.SuggestScores(ctx, req)
	timer.Stop(err)
	if err != nil {
		log.Warn("llm score suggestion failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %v", op, ErrAIUnavailable, err)
	}

	return &ScoreSuggestion{
		Scores:      weights.ClampScores(resp.Scores),
		Explanation: resp.Explanation,
	}, nil
}

// AddImage — загружает изображение в хранилище и добавляет URL к объекту.
func (s *Service) AddImage(ctx context.Context, userID, id uuid.UUID, image minio.Image) (string, error) {
	const op = "property.Service.AddImage"
	log := s.log.With(slog.String("op", op), slog.String("property_id", id.String()))

	if _, err := s.GetProperty(ctx, userID, id); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	url, err := s.storage.UploadImage(ctx, id, image)
	if err != nil {
		log.Error("failed to upload image", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.AppendImage(ctx, id, url); err != nil {
		if errors.Is(err, repository.ErrPropertyNotFound) {
			return "", fmt.Errorf("%s: %w", op, ErrPropertyNotFound)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("image added", slog.String("url", url))
	return url, nil
}
