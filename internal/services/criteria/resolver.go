package criteria

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"

	"home_compare/internal/domain"
	"home_compare/internal/lib/logger/sl"
	"home_compare/internal/repository"
	"home_compare/internal/services/weights"

	"github.com/google/uuid"
)

// PreferenceStore — источник пользовательских настроек для разрешения конфигурации.
type PreferenceStore interface {
	GetCriteriaPreferences(ctx context.Context, userID uuid.UUID) ([]domain.CriterionWeight, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error)
}

// profileDisplayScale — верхняя граница шкалы, в которую пересчитываются таблицы архетипов.
const profileDisplayScale = 5.0

// ResolveFrom определяет действующие критерии и веса пользователя.
// Порядок: собственные настройки, затем таблица архетипа после онбординга, затем системный набор.
func ResolveFrom(prefs []domain.CriterionWeight, profile *domain.UserProfile) domain.ResolvedConfiguration {
	if custom := SanitizePreferences(prefs); len(custom) > 0 {
		return build(custom, domain.SourceCustom)
	}

	if profile != nil && profile.OnboardingCompleted {
		if table, ok := ProfileWeights(profile.ProfileType); ok {
			return build(rescaleProfile(table), domain.SourceProfile)
		}
	}

	defaults := DefaultCriteria()
	rows := make([]domain.CriterionWeight, 0, len(defaults))
	for _, c := range defaults {
		rows = append(rows, domain.CriterionWeight{CriterionKey: c.Key, Weight: c.DefaultWeight})
	}
	return build(rows, domain.SourceDefault)
}

// SanitizePreferences приводит пользовательские веса к допустимому виду:
// пустые ключи отбрасываются, из дублей остаётся первый, вес ограничивается [0, 100].
func SanitizePreferences(prefs []domain.CriterionWeight) []domain.CriterionWeight {
	out := make([]domain.CriterionWeight, 0, len(prefs))
	seen := make(map[domain.CriterionKey]struct{}, len(prefs))
	for _, p := range prefs {
		key := strings.TrimSpace(p.CriterionKey)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, domain.CriterionWeight{CriterionKey: key, Weight: weights.ClampWeight(p.Weight)})
	}
	return out
}

// rescaleProfile переводит веса архетипа в шкалу 1..5 относительно максимального веса таблицы.
func rescaleProfile(table []domain.CriterionWeight) []domain.CriterionWeight {
	var maxWeight float64
	for _, cw := range table {
		maxWeight = math.Max(maxWeight, cw.Weight)
	}
	if maxWeight <= 0 {
		maxWeight = 1
	}

	out := make([]domain.CriterionWeight, 0, len(table))
	for _, cw := range table {
		w := math.Max(1, math.Round(cw.Weight/maxWeight*profileDisplayScale))
		out = append(out, domain.CriterionWeight{CriterionKey: cw.CriterionKey, Weight: w})
	}
	return out
}

func build(rows []domain.CriterionWeight, source domain.ConfigurationSource) domain.ResolvedConfiguration {
	cfg := domain.ResolvedConfiguration{
		ActiveCriteria: make([]domain.ActiveCriterion, 0, len(rows)),
		Weights:        make(domain.CriteriaWeights, len(rows)),
		Source:         source,
	}
	for _, r := range rows {
		cfg.ActiveCriteria = append(cfg.ActiveCriteria, domain.ActiveCriterion{
			Key:    r.CriterionKey,
			Label:  Label(r.CriterionKey),
			Weight: r.Weight,
		})
		cfg.Weights[r.CriterionKey] = r.Weight
	}
	return cfg
}

// Resolver — разрешение конфигурации с чтением настроек из хранилища.
type Resolver struct {
	log   *slog.Logger
	store PreferenceStore
}

// NewResolver создаёт новый Resolver.
func NewResolver(log *slog.Logger, store PreferenceStore) *Resolver {
	return &Resolver{log: log, store: store}
}

// Resolve читает настройки и профиль пользователя и разрешает конфигурацию.
// Ошибки чтения не прерывают разрешение: недоступные данные считаются отсутствующими.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) domain.ResolvedConfiguration {
	const op = "criteria.Resolver.Resolve"

	log := r.log.With(
		slog.String("op", op),
		slog.String("user_id", userID.String()),
	)

	prefs, err := r.store.GetCriteriaPreferences(ctx, userID)
	if err != nil {
		log.Warn("failed to read criteria preferences", sl.Err(err))
		prefs = nil
	}

	profile, err := r.store.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrProfileNotFound) {
			log.Warn("failed to read user profile", sl.Err(err))
		}
		profile = nil
	}

	cfg := ResolveFrom(prefs, profile)
	log.Debug("configuration resolved",
		slog.String("source", string(cfg.Source)),
		slog.Int("criteria", len(cfg.ActiveCriteria)),
	)
	return cfg
}
