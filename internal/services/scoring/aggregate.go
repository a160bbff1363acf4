// Package scoring вычисляет итоговый балл объекта по баллам критериев и весам.
package scoring

import (
	"maps"
	"math"
	"slices"

	"home_compare/internal/domain"
	"home_compare/internal/services/weights"
)

// Aggregate возвращает взвешенное среднее баллов.
// Участвуют только ключи, присутствующие и в баллах, и в весах. Отрицательные и NaN веса
// считаются нулевыми, баллы приводятся к [0, 10]. При нулевой сумме весов результат 0.
// Ключи обходятся в отсортированном порядке, поэтому результат не зависит от порядка map.
func Aggregate(scores domain.PropertyScores, criteriaWeights domain.CriteriaWeights) float64 {
	var weightedSum, weightTotal float64

	for _, key := range slices.Sorted(maps.Keys(criteriaWeights)) {
		weight := criteriaWeights[key]
		score, ok := scores[key]
		if !ok {
			continue
		}
		if weight <= 0 || math.IsNaN(weight) {
			continue
		}
		score = weights.ClampScore(score)
		weightedSum += score * weight
		weightTotal += weight
	}

	if weightTotal == 0 {
		return 0
	}
	return weightedSum / weightTotal
}

// RoundForDisplay округляет балл до одного знака после запятой. Только для отображения.
func RoundForDisplay(score float64) float64 {
	return math.Round(score*10) / 10
}
