package weights

import (
	"math"

	"home_compare/internal/domain"

	"github.com/samber/lo"
	"golang.org/x/exp/constraints"
)

// MinUnmatchedWeight — вес, который получает выбранный критерий без веса в таблице профиля.
const MinUnmatchedWeight = 5.0

// Clamp ограничивает значение диапазоном [lo, hi]. NaN приводится к нижней границе.
func Clamp[T constraints.Float](v, lo, hi T) T {
	if v != v {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampWeight — границы веса критерия [0, 100]; применяется при каждой записи весов.
func ClampWeight(w float64) float64 {
	return Clamp(w, domain.MinWeight, domain.MaxWeight)
}

// ClampScore — границы балла по критерию [0, 10]; применяется при каждом редактировании балла.
func ClampScore(s float64) float64 {
	return Clamp(s, domain.MinScore, domain.MaxScore)
}

// ClampScores возвращает копию баллов с каждым значением в [0, 10].
func ClampScores(scores domain.PropertyScores) domain.PropertyScores {
	out := make(domain.PropertyScores, len(scores))
	for k, v := range scores {
		out[k] = ClampScore(v)
	}
	return out
}

// DistributeEqually делит 100 поровну между ключами, остаток отдаёт первому ключу.
// Повторяющиеся ключи схлопываются с сохранением порядка.
func DistributeEqually(keys []domain.CriterionKey) domain.CriteriaWeights {
	keys = lo.Uniq(keys)
	n := len(keys)
	out := make(domain.CriteriaWeights, n)
	if n == 0 {
		return out
	}

	share := 100 / n
	remainder := 100 - share*n
	for _, k := range keys {
		out[k] = float64(share)
	}
	out[keys[0]] += float64(remainder)

	return out
}

// NormalizeToHundred масштабирует веса к сумме 100 с округлением каждого значения.
// Нулевая сумма возвращает вход без изменений. Сумма результата может отличаться от 100
// на единицу из-за независимого округления.
func NormalizeToHundred(weights domain.CriteriaWeights) domain.CriteriaWeights {
	total := weights.Total()
	if total == 0 {
		return weights.Clone()
	}

	out := make(domain.CriteriaWeights, len(weights))
	for k, w := range weights {
		out[k] = math.Round(w / total * 100)
	}
	return out
}

// SuggestFromProfile строит веса выбранных критериев по таблице архетипа.
// Критерии с весом в таблице нормализуются к 100, остальные получают MinUnmatchedWeight
// поверх нормализованной части, поэтому сумма может превышать 100.
func SuggestFromProfile(profileWeights map[domain.CriterionKey]float64, selectedKeys []domain.CriterionKey) domain.CriteriaWeights {
	selectedKeys = lo.Uniq(selectedKeys)

	var matchedSum float64
	for _, k := range selectedKeys {
		if w, ok := profileWeights[k]; ok {
			matchedSum += w
		}
	}

	if matchedSum == 0 {
		return DistributeEqually(selectedKeys)
	}

	out := make(domain.CriteriaWeights, len(selectedKeys))
	for _, k := range selectedKeys {
		if w, ok := profileWeights[k]; ok {
			out[k] = math.Round(w / matchedSum * 100)
		} else {
			out[k] = MinUnmatchedWeight
		}
	}
	return out
}
