// Package preferences управляет пользовательскими критериями и онбордингом
// и оповещает подписчиков об изменении конфигурации критериев.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"home_compare/internal/domain"
	"home_compare/internal/lib/logger/sl"
	"home_compare/internal/services/criteria"
	"home_compare/internal/services/weights"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type PreferenceRepository interface {
	GetCriteriaPreferences(ctx context.Context, userID uuid.UUID) ([]domain.CriterionWeight, error)
	ReplaceCriteriaPreferences(ctx context.Context, userID uuid.UUID, prefs []domain.CriterionWeight) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error)
	SaveOnboarding(ctx context.Context, p domain.UserProfile, prefs []domain.CriterionWeight) error
}

// ConfigurationResolver — разрешение действующей конфигурации критериев.
type ConfigurationResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) domain.ResolvedConfiguration
}

// ProfileDetector определяет архетип по ответам онбординга.
type ProfileDetector interface {
	DetectProfile(ctx context.Context, answers map[string]string) (*weights.ProfileResult, error)
}

// ConfigurationListener получает уведомление после каждого изменения настроек пользователя.
type ConfigurationListener interface {
	OnConfigurationChanged(ctx context.Context, userID uuid.UUID)
}

// ListenerFunc позволяет использовать функцию как ConfigurationListener.
type ListenerFunc func(ctx context.Context, userID uuid.UUID)

func (f ListenerFunc) OnConfigurationChanged(ctx context.Context, userID uuid.UUID) {
	f(ctx, userID)
}

type Service struct {
	log      *slog.Logger
	repo     PreferenceRepository
	resolver ConfigurationResolver
	detector ProfileDetector

	mu        sync.RWMutex
	listeners []ConfigurationListener
}

var ErrInvalidProfileType = errors.New("unknown profile type")

func New(log *slog.Logger, repo PreferenceRepository, resolver ConfigurationResolver, detector ProfileDetector) *Service {
	return &Service{
		log:      log,
		repo:     repo,
		resolver: resolver,
		detector: detector,
	}
}

// Subscribe регистрирует подписчика. Подписчики вызываются синхронно в порядке регистрации.
func (s *Service) Subscribe(l ConfigurationListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Service) notify(ctx context.Context, userID uuid.UUID) {
	s.mu.RLock()
	listeners := append([]ConfigurationListener(nil), s.listeners...)
	s.mu.RUnlock()

	for _, l := range listeners {
		l.OnConfigurationChanged(ctx, userID)
	}
}

// ResolvedConfiguration — действующие критерии и веса пользователя.
func (s *Service) ResolvedConfiguration(ctx context.Context, userID uuid.UUID) domain.ResolvedConfiguration {
	return s.resolver.Resolve(ctx, userID)
}

// SaveCriteria — сохраняет собственные веса пользователя. Пустой набор сбрасывает настройки.
func (s *Service) SaveCriteria(ctx context.Context, userID uuid.UUID, prefs []domain.CriterionWeight) (domain.ResolvedConfiguration, error) {
	const op = "preferences.Service.SaveCriteria"
	log := s.log.With(slog.String("op", op), slog.String("user_id", userID.String()))

	clean := criteria.SanitizePreferences(prefs)
	if err := s.repo.ReplaceCriteriaPreferences(ctx, userID, clean); err != nil {
		log.Error("failed to save criteria preferences", sl.Err(err))
		return domain.ResolvedConfiguration{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("criteria preferences saved", slog.Int("criteria", len(clean)))
	s.notify(ctx, userID)

	return s.resolver.Resolve(ctx, userID), nil
}

// OnboardingInput — ответы онбординга. ProfileType имеет приоритет над Answers.
type OnboardingInput struct {
	ProfileType  domain.ProfileType    `json:"profile_type,omitempty"`
	Answers      map[string]string     `json:"answers,omitempty"`
	SelectedKeys []domain.CriterionKey `json:"selected_keys,omitempty"`
}

// OnboardingResult — итог онбординга.
type OnboardingResult struct {
	ProfileType   domain.ProfileType           `json:"profile_type"`
	Confidence    float64                      `json:"confidence"`
	Explanation   string                       `json:"explanation,omitempty"`
	UsedLLM       bool                         `json:"used_llm"`
	Configuration domain.ResolvedConfiguration `json:"configuration"`
}

// CompleteOnboarding — определяет архетип, сохраняет предложенные веса для выбранных
// критериев и отмечает онбординг завершённым.
func (s *Service) CompleteOnboarding(ctx context.Context, userID uuid.UUID, in OnboardingInput) (*OnboardingResult, error) {
	const op = "preferences.Service.CompleteOnboarding"
	log := s.log.With(slog.String("op", op), slog.String("user_id", userID.String()))

	result := &OnboardingResult{ProfileType: in.ProfileType, Confidence: 1}
	if in.ProfileType != domain.ProfileUnspecified {
		if !in.ProfileType.Known() {
			return nil, fmt.Errorf("%s: %w: %q", op, ErrInvalidProfileType, in.ProfileType)
		}
	} else {
		detected, err := s.detector.DetectProfile(ctx, in.Answers)
		if err != nil {
			log.Error("failed to detect profile", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result.ProfileType = detected.ProfileType
		result.Confidence = detected.Confidence
		result.Explanation = detected.Explanation
		result.UsedLLM = detected.UsedLLM
	}

	table, ok := criteria.ProfileWeights(result.ProfileType)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrInvalidProfileType, result.ProfileType)
	}
	tableMap, _ := criteria.ProfileWeightMap(result.ProfileType)

	selected := lo.Uniq(lo.Compact(in.SelectedKeys))
	if len(selected) == 0 {
		selected = lo.Map(table, func(w domain.CriterionWeight, _ int) domain.CriterionKey { return w.CriterionKey })
	}

	suggested := weights.SuggestFromProfile(tableMap, selected)
	prefs := make([]domain.CriterionWeight, 0, len(selected))
	for _, key := range selected {
		prefs = append(prefs, domain.CriterionWeight{CriterionKey: key, Weight: weights.ClampWeight(suggested[key])})
	}

	profile := domain.UserProfile{
		UserID:              userID,
		ProfileType:         result.ProfileType,
		OnboardingCompleted: true,
	}
	if err := s.repo.SaveOnboarding(ctx, profile, prefs); err != nil {
		log.Error("failed to save onboarding", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("onboarding completed",
		slog.String("profile_type", result.ProfileType.String()),
		slog.Bool("used_llm", result.UsedLLM),
		slog.Int("criteria", len(prefs)),
	)

	s.notify(ctx, userID)
	result.Configuration = s.resolver.Resolve(ctx, userID)
	return result, nil
}
