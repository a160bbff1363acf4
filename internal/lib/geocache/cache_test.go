package geocache

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"home_compare/internal/domain"
	"home_compare/internal/lib/logger/handlers/slogdiscard"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "rua augusta, 100", NormalizeKey("  Rua   Augusta,  100 "))
	assert.Equal(t, "", NormalizeKey("   "))
}

func TestLRU_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2, 0)

	c.Set(ctx, "a", &domain.Coordinates{Lat: 1, Lng: 2})
	c.Set(ctx, "missing", nil)

	coords, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, &domain.Coordinates{Lat: 1, Lng: 2}, coords)

	coords, ok = c.Get(ctx, "missing")
	assert.True(t, ok, "negative result must be cached")
	assert.Nil(t, coords)

	_, ok = c.Get(ctx, "unknown")
	assert.False(t, ok)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2, 0)

	c.Set(ctx, "a", &domain.Coordinates{Lat: 1})
	c.Set(ctx, "b", &domain.Coordinates{Lat: 2})
	c.Get(ctx, "a")
	c.Set(ctx, "c", &domain.Coordinates{Lat: 3})

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(ctx, "b")
	assert.False(t, ok, "b must be evicted")
	_, ok = c.Get(ctx, "a")
	assert.True(t, ok)
}

func TestLRU_ExpiresEntries(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(10, 50*time.Millisecond)

	c.Set(ctx, "a", &domain.Coordinates{Lat: 1})
	c.Set(ctx, "missing", nil)

	_, ok := c.Get(ctx, "a")
	require.True(t, ok)

	time.Sleep(120 * time.Millisecond)

	_, ok = c.Get(ctx, "a")
	assert.False(t, ok, "expired entry must not be returned")
	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok, "expired negative entry must not be returned")
}

func TestLRU_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(0, 0)

	in := &domain.Coordinates{Lat: 1, Lng: 1}
	c.Set(ctx, "a", in)
	in.Lat = 99

	got, _ := c.Get(ctx, "a")
	got.Lng = 42

	again, _ := c.Get(ctx, "a")
	assert.Equal(t, &domain.Coordinates{Lat: 1, Lng: 1}, again)
}

func TestLRU_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(16, 0)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := strconv.Itoa(i % 20)
			c.Set(ctx, key, &domain.Coordinates{Lat: float64(i)})
			c.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 16)
}

// MockCache — мок постоянного слоя кэша.
type MockCache struct {
	mu   sync.Mutex
	data map[string]*domain.Coordinates
	sets int
}

func (m *MockCache) Get(_ context.Context, key string) (*domain.Coordinates, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.data[key]
	return c, ok
}

func (m *MockCache) Set(_ context.Context, key string, coords *domain.Coordinates) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]*domain.Coordinates{}
	}
	m.data[key] = coords
	m.sets++
}

func TestTiered_NegativeStaysInMemory(t *testing.T) {
	ctx := context.Background()
	persistent := &MockCache{}
	c := NewTiered(NewLRU(10, 0), persistent)

	c.Set(ctx, "nowhere", nil)
	c.Set(ctx, "somewhere", &domain.Coordinates{Lat: 5, Lng: 6})

	assert.Equal(t, 1, persistent.sets)
	_, ok := persistent.Get(ctx, "nowhere")
	assert.False(t, ok)

	coords, ok := c.Get(ctx, "nowhere")
	assert.True(t, ok)
	assert.Nil(t, coords)
}

func TestTiered_PromotesPersistentHit(t *testing.T) {
	ctx := context.Background()
	persistent := &MockCache{data: map[string]*domain.Coordinates{"x": {Lat: 1, Lng: 2}}}
	memory := NewLRU(10, 0)
	c := NewTiered(memory, persistent)

	coords, ok := c.Get(ctx, "x")
	require.True(t, ok)
	assert.Equal(t, 1.0, coords.Lat)
	assert.Equal(t, 1, memory.Len())
}

func TestTiered_WithoutPersistent(t *testing.T) {
	ctx := context.Background()
	c := NewTiered(NewLRU(10, 0), nil)

	_, ok := c.Get(ctx, "x")
	assert.False(t, ok)

	c.Set(ctx, "x", &domain.Coordinates{Lat: 1})
	_, ok = c.Get(ctx, "x")
	assert.True(t, ok)
}

// TestRedis_Integration требует Redis на localhost:6379 и пропускается без него.
func TestRedis_Integration(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping integration test")
	}
	defer client.Close()

	r := NewRedis(client, time.Minute, slogdiscard.NewDiscardLogger())
	key := "test-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	defer client.Del(context.Background(), redisKeyPrefix+key)

	r.Set(ctx, key, nil)
	_, ok := r.Get(ctx, key)
	assert.False(t, ok, "negative results must not be persisted")

	r.Set(ctx, key, &domain.Coordinates{Lat: -23.5, Lng: -46.6})
	coords, ok := r.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, &domain.Coordinates{Lat: -23.5, Lng: -46.6}, coords)
}
