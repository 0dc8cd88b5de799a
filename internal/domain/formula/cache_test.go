package formula

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, expression string) *Program {
	t.Helper()
	p, err := Compile(expression)
	require.NoError(t, err)
	return p
}

func TestCache_Eviction(t *testing.T) {
	cache := NewCache(2)
	cache.Put("1+1", mustCompile(t, "1+1"))
	cache.Put("2+2", mustCompile(t, "2+2"))
	cache.Put("3+3", mustCompile(t, "3+3"))

	assert.Equal(t, 2, cache.Len())

	// Oldest insertion is evicted first
	_, ok := cache.Get("1+1")
	assert.False(t, ok)
	_, ok = cache.Get("2+2")
	assert.True(t, ok)
	_, ok = cache.Get("3+3")
	assert.True(t, ok)
}

func TestCache_ReinsertDoesNotGrow(t *testing.T) {
	cache := NewCache(2)
	cache.Put("1+1", mustCompile(t, "1+1"))
	cache.Put("1+1", mustCompile(t, "1+1"))
	assert.Equal(t, 1, cache.Len())
}

func TestCache_EvictedProgramStaysUsable(t *testing.T) {
	cache := NewCache(1)
	p := mustCompile(t, "2*3")
	cache.Put("2*3", p)
	cache.Put("4*5", mustCompile(t, "4*5"))

	// The held reference survives eviction; entries are never mutated
	v, _ := p.Eval(nil)
	assert.Equal(t, 6.0, v)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache(8)
	eval := NewEvaluator(cache)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			expr := fmt.Sprintf("%d + 1", n%10)
			for j := 0; j < 50; j++ {
				v, _, err := eval.Evaluate(expr, nil)
				assert.NoError(t, err)
				assert.Equal(t, float64(n%10+1), v)
			}
		}(i)
	}
	wg.Wait()
}
