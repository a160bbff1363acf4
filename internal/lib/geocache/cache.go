// Package geocache кэширует результаты геокодирования: LRU в памяти процесса
// и, опционально, Redis для успешных результатов.
package geocache

import (
	"context"
	"strings"

	"home_compare/internal/domain"
)

// Cache — кэш результатов геокодирования. nil-координаты означают отрицательный результат
// («адрес не найден»).
type Cache interface {
	// Get возвращает закэшированный результат; found=false — в кэше ничего нет.
	Get(ctx context.Context, key string) (coords *domain.Coordinates, found bool)
	// Set сохраняет результат.
	Set(ctx context.Context, key string, coords *domain.Coordinates)
}

// NormalizeKey приводит адрес к ключу кэша: нижний регистр, схлопнутые пробелы.
func NormalizeKey(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}

// Tiered — память процесса поверх постоянного слоя.
// Отрицательные результаты живут только в памяти.
type Tiered struct {
	memory     *LRU
	persistent Cache
}

// NewTiered собирает двухуровневый кэш. persistent может быть nil.
func NewTiered(memory *LRU, persistent Cache) *Tiered {
	return &Tiered{memory: memory, persistent: persistent}
}

func (t *Tiered) Get(ctx context.Context, key string) (*domain.Coordinates, bool) {
	if coords, ok := t.memory.Get(ctx, key); ok {
		return coords, true
	}
	if t.persistent == nil {
		return nil, false
	}

	coords, ok := t.persistent.Get(ctx, key)
	if !ok || coords == nil {
		return nil, false
	}
	t.memory.Set(ctx, key, coords)
	return coords, true
}

func (t *Tiered) Set(ctx context.Context, key string, coords *domain.Coordinates) {
	t.memory.Set(ctx, key, coords)
	if t.persistent != nil && coords != nil {
		t.persistent.Set(ctx, key, coords)
	}
}
