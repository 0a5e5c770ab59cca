package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tienda_perfumes/internal/models"
	"tienda_perfumes/internal/repository"
)

// fakeKV simule Redis en mémoire.
type fakeKV struct {
	mu   sync.Mutex
	data map[string]string
	gets int
	hits int
}

func newFakeKV() *fakeKV { return &fakeKV{data: make(map[string]string)} }

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	f.hits++
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestCatalog_ReadThroughAndInvalidate(t *testing.T) {
	inner := repository.NewMemoryCatalog(models.Perfume{ID: "1", Name: "Chanel N°5", Price: decimal.RequireFromString("10.00"), Stock: 5})
	kv := newFakeKV()
	c := NewCatalog(inner, kv)
	ctx := context.Background()

	p, err := c.GetPerfume(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
	assert.Equal(t, 0, kv.hits)

	p, err = c.GetPerfume(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, kv.hits)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("10.00")))

	left, err := c.DecrementStock(ctx, "1", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, left)

	p, err = c.GetPerfume(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock, "la fiche en cache doit être invalidée")
}

func TestCatalog_GetPerfumesBypassesCache(t *testing.T) {
	inner := repository.NewMemoryCatalog(models.Perfume{ID: "1", Name: "Chanel N°5", Stock: 5})
	kv := newFakeKV()
	c := NewCatalog(inner, kv)
	ctx := context.Background()

	_, _ = c.GetPerfume(ctx, "1")
	_, _ = inner.DecrementStock(ctx, "1", 1) // écriture hors décorateur

	all, err := c.GetPerfumes(ctx, []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, 4, all["1"].Stock)
}

func TestCatalog_MissingPerfumeIsNotCached(t *testing.T) {
	c := NewCatalog(repository.NewMemoryCatalog(), newFakeKV())
	_, err := c.GetPerfume(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
