package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"marketplace-service/internal/config"
)

func TestInMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestInMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestInMemoryCache_DeleteByPattern(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	item, seller := uuid.New(), uuid.New()

	require.NoError(t, c.Set(ctx, ItemKey(item), []byte("1"), 0))
	require.NoError(t, c.Set(ctx, ProfileKey(seller), []byte("2"), 0))

	require.NoError(t, c.DeleteByPattern(ctx, "item:*"))

	_, err := c.Get(ctx, ItemKey(item))
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, ProfileKey(seller))
	assert.NoError(t, err)

	require.NoError(t, c.Delete(ctx, ProfileKey(seller)))
	_, err = c.Get(ctx, ProfileKey(seller))
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestInMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Set(ctx, "shared", []byte("x"), time.Minute)
			_, _ = c.Get(ctx, "shared")
			_ = c.DeleteByPattern(ctx, "sha*")
		}()
	}
	wg.Wait()
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	type payload struct {
		Name  string
		Count int
	}

	require.NoError(t, SetJSON(ctx, c, "p", payload{Name: "bread", Count: 2}, time.Minute))

	var got payload
	require.NoError(t, GetJSON(ctx, c, "p", &got))
	assert.Equal(t, payload{Name: "bread", Count: 2}, got)
}

func TestNewCache_DisabledFallsBackToMemory(t *testing.T) {
	c := NewCache(&config.Config{UseCache: false}, zap.NewNop())

	_, ok := c.(*InMemoryCache)
	assert.True(t, ok)
}
