package proximity

import (
	"home_compare/internal/domain"
)

// ComputeClosestBonuses для каждого опорного адреса с координатами находит ближайший объект
// и начисляет ему бонус. properties — координаты объектов (nil — не геокодирован).
// Результат выровнен по индексам properties. При равных расстояниях выигрывает объект,
// идущий раньше во входном списке.
func ComputeClosestBonuses(properties []*domain.Coordinates, addresses []domain.ReferenceAddress) [][]domain.ProximityBonus {
	out := make([][]domain.ProximityBonus, len(properties))

	for _, addr := range addresses {
		coords := addr.Coordinates()
		if coords == nil {
			continue
		}

		bestIdx := -1
		var bestDist float64
		for i, p := range properties {
			if p == nil {
				continue
			}
			d := Distance(*p, *coords)
			if bestIdx == -1 || d < bestDist {
				bestIdx, bestDist = i, d
			}
		}
		if bestIdx == -1 {
			continue
		}

		out[bestIdx] = append(out[bestIdx], domain.ProximityBonus{
			AddressID:      addr.ID,
			Label:          addr.Label,
			CustomLabel:    addr.CustomLabel,
			DistanceMeters: bestDist,
			IsClosest:      true,
		})
	}

	return out
}

// ApplyBonuses прибавляет по одному баллу за каждый бонус. Верхней границы нет.
func ApplyBonuses(finalScore float64, bonuses []domain.ProximityBonus) float64 {
	return finalScore + float64(len(bonuses))
}
