package geocache

import (
	"context"
	"time"

	"home_compare/internal/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCapacity — размер LRU, если в конфигурации указано неположительное значение.
const DefaultCapacity = 1024

// LRU — ограниченный по размеру кэш в памяти процесса с временем жизни записей.
// Хранит и отрицательные результаты (nil-координаты).
type LRU struct {
	items *expirable.LRU[string, *domain.Coordinates]
}

// NewLRU создаёт кэш на capacity записей. ttl <= 0 — записи живут до вытеснения.
func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &LRU{items: expirable.NewLRU[string, *domain.Coordinates](capacity, nil, ttl)}
}

func (c *LRU) Get(_ context.Context, key string) (*domain.Coordinates, bool) {
	coords, ok := c.items.Get(key)
	if !ok {
		return nil, false
	}
	return copyCoords(coords), true
}

func (c *LRU) Set(_ context.Context, key string, coords *domain.Coordinates) {
	c.items.Add(key, copyCoords(coords))
}

// Len возвращает число записей.
func (c *LRU) Len() int {
	return c.items.Len()
}

func copyCoords(c *domain.Coordinates) *domain.Coordinates {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
