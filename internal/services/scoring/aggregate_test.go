package scoring

import (
	"math"
	"testing"

	"home_compare/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name    string
		scores  domain.PropertyScores
		weights domain.CriteriaWeights
		want    float64
	}{
		{
			name:    "weighted average",
			scores:  domain.PropertyScores{"location": 8, "price": 6},
			weights: domain.CriteriaWeights{"location": 50, "price": 50},
			want:    7,
		},
		{
			name:    "key missing in weights is skipped",
			scores:  domain.PropertyScores{"location": 8, "view": 0},
			weights: domain.CriteriaWeights{"location": 5},
			want:    8,
		},
		{
			name:    "key missing in scores is skipped",
			scores:  domain.PropertyScores{"location": 9},
			weights: domain.CriteriaWeights{"location": 1, "price": 99},
			want:    9,
		},
		{
			name:    "three to one weights",
			scores:  domain.PropertyScores{"location": 8, "price": 4},
			weights: domain.CriteriaWeights{"location": 3, "price": 1},
			want:    7,
		},
		{
			name:    "unweighted extra key is ignored",
			scores:  domain.PropertyScores{"location": 8, "price": 4, "extra": 10},
			weights: domain.CriteriaWeights{"location": 3, "price": 1},
			want:    7,
		},
		{
			name:    "score above range is clamped",
			scores:  domain.PropertyScores{"a": 15},
			weights: domain.CriteriaWeights{"a": 1},
			want:    10,
		},
		{
			name:    "negative and NaN scores count as zero",
			scores:  domain.PropertyScores{"a": -4, "b": math.NaN(), "c": 9},
			weights: domain.CriteriaWeights{"a": 1, "b": 1, "c": 1},
			want:    3,
		},
		{
			name:    "unequal weights",
			scores:  domain.PropertyScores{"a": 10, "b": 0},
			weights: domain.CriteriaWeights{"a": 3, "b": 1},
			want:    7.5,
		},
		{
			name:    "all zero weights",
			scores:  domain.PropertyScores{"a": 10},
			weights: domain.CriteriaWeights{"a": 0},
			want:    0,
		},
		{
			name:    "empty scores",
			scores:  domain.PropertyScores{},
			weights: domain.CriteriaWeights{"a": 10},
			want:    0,
		},
		{
			name:    "empty weights",
			scores:  domain.PropertyScores{"a": 10},
			weights: nil,
			want:    0,
		},
		{
			name:    "negative and NaN weights ignored",
			scores:  domain.PropertyScores{"a": 4, "b": 10, "c": 10},
			weights: domain.CriteriaWeights{"a": 2, "b": -5, "c": math.NaN()},
			want:    4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Aggregate(tt.scores, tt.weights), 1e-9)
		})
	}
}

func TestAggregate_KeepsFullPrecision(t *testing.T) {
	got := Aggregate(
		domain.PropertyScores{"a": 7, "b": 8, "c": 8},
		domain.CriteriaWeights{"a": 1, "b": 1, "c": 1},
	)

	assert.InDelta(t, 23.0/3.0, got, 1e-12)
	assert.Equal(t, 7.7, RoundForDisplay(got))
}

func TestAggregate_StaysInScoreRange(t *testing.T) {
	scores := domain.PropertyScores{"a": 10, "b": 0, "c": 5.5}
	for _, w := range []domain.CriteriaWeights{
		{"a": 100, "b": 0, "c": 0},
		{"a": 1, "b": 100, "c": 3},
		{"a": 33, "b": 33, "c": 34},
	} {
		got := Aggregate(scores, w)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 10.0)
	}
}

func TestAggregate_ConstantScoreIgnoresWeights(t *testing.T) {
	distributions := []domain.CriteriaWeights{
		{"a": 1, "b": 1, "c": 1},
		{"a": 100, "b": 0.5, "c": 3},
		{"a": 7, "b": 0, "c": 93},
		{"a": 34, "b": 33, "c": 33},
		{"a": 0.001, "b": 99.999},
	}

	for _, c := range []float64{0, 2.5, 5, 7.3, 10} {
		scores := domain.PropertyScores{"a": c, "b": c, "c": c}
		for _, w := range distributions {
			assert.InDelta(t, c, Aggregate(scores, w), 1e-9, "score %v weights %v", c, w)
		}
	}
}

func TestAggregate_KeyOrderIndependent(t *testing.T) {
	keys := []string{"location", "price", "silence", "view", "safety", "transport"}
	values := []float64{8.3, 4.1, 9.9, 0.7, 6.6, 5.2}
	weightValues := []float64{13, 7, 29, 3, 31, 17}

	build := func(order []int) (domain.PropertyScores, domain.CriteriaWeights) {
		scores := domain.PropertyScores{}
		w := domain.CriteriaWeights{}
		for _, i := range order {
			scores[keys[i]] = values[i]
			w[keys[i]] = weightValues[i]
		}
		return scores, w
	}

	want := Aggregate(build([]int{0, 1, 2, 3, 4, 5}))
	for _, order := range [][]int{
		{5, 4, 3, 2, 1, 0},
		{2, 0, 5, 1, 3, 4},
		{3, 5, 1, 4, 0, 2},
	} {
		for i := 0; i < 20; i++ {
			assert.Equal(t, want, Aggregate(build(order)), "order %v", order)
		}
	}
}
