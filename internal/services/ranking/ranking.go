// Package ranking строит упорядоченный список объектов пользователя.
package ranking

import (
	"sort"

	"home_compare/internal/domain"
	"home_compare/internal/services/proximity"
	"home_compare/internal/services/scoring"
)

// Rank вычисляет итоговый балл каждого объекта по действующим весам, при наличии опорных
// адресов добавляет расстояния и бонусы близости и сортирует список стабильно.
// Координаты объектов берутся из Property.Coordinates. Входной срез не изменяется.
func Rank(
	properties []domain.Property,
	cfg domain.ResolvedConfiguration,
	addresses []domain.ReferenceAddress,
	opts domain.SortOptions,
) []domain.RankedProperty {
	ranked := make([]domain.RankedProperty, 0, len(properties))
	for _, p := range properties {
		score := scoring.Aggregate(p.Scores, cfg.Weights)
		ranked = append(ranked, domain.RankedProperty{
			Property:      p,
			FinalScore:    score,
			AdjustedScore: score,
		})
	}

	if len(addresses) > 0 {
		located := make([]*domain.Coordinates, 0, len(properties))
		for _, p := range properties {
			located = append(located, p.Coordinates)
		}
		bonuses := proximity.ComputeClosestBonuses(located, addresses)

		for i := range ranked {
			rp := &ranked[i]
			rp.Distances = proximity.ComputeDistances(rp.Property.Coordinates, addresses)
			rp.Bonuses = bonuses[i]
			rp.AdjustedScore = proximity.ApplyBonuses(rp.FinalScore, rp.Bonuses)
		}
	}

	sortRanked(ranked, opts)
	return ranked
}

func sortRanked(ranked []domain.RankedProperty, opts domain.SortOptions) {
	value := sortValue(opts.Key)
	desc := opts.Direction != domain.OrderAsc

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := value(ranked[i]), value(ranked[j])
		if desc {
			return a > b
		}
		return a < b
	})
}

// sortValue возвращает извлекатель значения сортировки. Неизвестный ключ трактуется как
// ключ критерия; объект без балла по нему сортируется как 0.
func sortValue(key domain.SortKey) func(domain.RankedProperty) float64 {
	switch key {
	case "", domain.SortByFinalScore:
		return func(rp domain.RankedProperty) float64 { return rp.AdjustedScore }
	case domain.SortByTotalMonthlyCost:
		return func(rp domain.RankedProperty) float64 { return rp.Property.TotalMonthlyCost() }
	default:
		criterion := string(key)
		return func(rp domain.RankedProperty) float64 { return rp.Property.Scores[criterion] }
	}
}
