package domain

import "strings"

// OrderDirection направление сортировки
type OrderDirection string

const (
	OrderAsc  OrderDirection = "asc"
	OrderDesc OrderDirection = "desc"
)

// NormalizeOrderDirection нормализует направление сортировки
func NormalizeOrderDirection(dir string) OrderDirection {
	if strings.EqualFold(dir, string(OrderAsc)) {
		return OrderAsc
	}
	return OrderDesc
}

// SortKey — поле, по которому ранжируется список объектов.
// Помимо констант ниже допускается ключ любого критерия (сырой балл).
type SortKey string

const (
	SortByFinalScore       SortKey = "final_score"
	SortByTotalMonthlyCost SortKey = "total_monthly_cost"
)

// SortOptions параметры сортировки ранжированного списка
type SortOptions struct {
	Key       SortKey        `json:"key"`
	Direction OrderDirection `json:"direction"`
}

// DefaultSortOptions — итоговый балл по убыванию.
func DefaultSortOptions() SortOptions {
	return SortOptions{Key: SortByFinalScore, Direction: OrderDesc}
}

// NormalizeSortOptions подставляет значения по умолчанию.
func NormalizeSortOptions(key, dir string) SortOptions {
	opts := DefaultSortOptions()
	if k := strings.TrimSpace(key); k != "" {
		opts.Key = SortKey(k)
	}
	if dir != "" {
		opts.Direction = NormalizeOrderDirection(dir)
	}
	return opts
}
