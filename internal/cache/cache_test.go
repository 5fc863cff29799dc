package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	cache := New()
	assert.NotNil(t, cache)
	assert.Empty(t, cache.items)
}

func TestCache_SetAndGet(t *testing.T) {
	cache := New()

	cache.Set("key1", "value1", 10*time.Second)
	val, exists := cache.Get("key1")
	assert.True(t, exists)
	assert.Equal(t, "value1", val)

	val, exists = cache.Get("nonexistent")
	assert.False(t, exists)
	assert.Nil(t, val)
}

func TestCache_Expiration(t *testing.T) {
	cache := New()

	cache.Set("expiring", "value", 100*time.Millisecond)

	val, exists := cache.Get("expiring")
	assert.True(t, exists)
	assert.Equal(t, "value", val)

	time.Sleep(150 * time.Millisecond)

	val, exists = cache.Get("expiring")
	assert.False(t, exists)
	assert.Nil(t, val)

	// Expired entry is removed on access
	cache.mutex.RLock()
	_, itemExists := cache.items["expiring"]
	cache.mutex.RUnlock()
	assert.False(t, itemExists)
}

func TestCache_UpdateValue(t *testing.T) {
	cache := New()

	cache.Set("key", "value1", 10*time.Second)
	cache.Set("key", "value2", 10*time.Second)

	val, exists := cache.Get("key")
	assert.True(t, exists)
	assert.Equal(t, "value2", val)
}

func TestCache_Delete(t *testing.T) {
	cache := New()

	cache.Set("key", "value", 10*time.Second)
	cache.Delete("key")

	_, exists := cache.Get("key")
	assert.False(t, exists)

	// Deleting a missing key must not panic
	cache.Delete("nonexistent")
}

func TestCache_DeletePrefix(t *testing.T) {
	cache := New()

	cache.Set("search:a", "value1", 10*time.Second)
	cache.Set("search:b", "value2", 10*time.Second)
	cache.Set("adapter:gong", "value3", 10*time.Second)

	removed := cache.DeletePrefix("search:")
	assert.Equal(t, 2, removed)

	_, exists := cache.Get("search:a")
	assert.False(t, exists)
	_, exists = cache.Get("search:b")
	assert.False(t, exists)

	// Other namespaces survive
	val, exists := cache.Get("adapter:gong")
	assert.True(t, exists)
	assert.Equal(t, "value3", val)

	assert.Zero(t, cache.DeletePrefix("search:"))
}

func TestCache_Clear(t *testing.T) {
	cache := New()

	cache.Set("key1", "value1", 10*time.Second)
	cache.Set("key2", "value2", 10*time.Second)

	cache.Clear()

	_, exists1 := cache.Get("key1")
	_, exists2 := cache.Get("key2")
	assert.False(t, exists1)
	assert.False(t, exists2)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := New()
	iterations := 100
	var wg sync.WaitGroup

	wg.Add(iterations * 3)
	for i := 0; i < iterations; i++ {
		go func(n int) {
			defer wg.Done()
			cache.Set("key", n, 10*time.Second)
		}(i)

		go func() {
			defer wg.Done()
			cache.Get("key")
		}()

		go func(n int) {
			defer wg.Done()
			if n%10 == 0 {
				cache.Delete("key")
			}
		}(i)
	}
	wg.Wait()

	cache.Set("final", "value", 10*time.Second)
	val, exists := cache.Get("final")
	assert.True(t, exists)
	assert.Equal(t, "value", val)
}

func TestCache_TTLVariations(t *testing.T) {
	cache := New()

	cache.Set("long", "value", 1*time.Hour)
	val, exists := cache.Get("long")
	assert.True(t, exists)
	assert.Equal(t, "value", val)

	// Zero TTL expires immediately
	cache.Set("zero", "value", 0)
	time.Sleep(10 * time.Millisecond)
	_, exists = cache.Get("zero")
	assert.False(t, exists)

	// Negative TTL is already expired
	cache.Set("negative", "value", -1*time.Second)
	_, exists = cache.Get("negative")
	assert.False(t, exists)
}
