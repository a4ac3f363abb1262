package cache

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"pgregory.net/rapid"
)

func BenchmarkSummaryCache_Put(b *testing.B) {
	cache, _ := NewSummaryCache(1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Put(strconv.Itoa(i), "summary")
	}
}

func BenchmarkSummaryCache_Get(b *testing.B) {
	cache, _ := NewSummaryCache(1000)

	for i := 0; i < 100; i++ {
		cache.Put(strconv.Itoa(i), "summary")
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get(strconv.Itoa(i % 100))
	}
}

func BenchmarkSummaryCache_ConcurrentAccess(b *testing.B) {
	cache, _ := NewSummaryCache(1000)

	for i := 0; i < 100; i++ {
		cache.Put(strconv.Itoa(i), "summary")
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			text := strconv.Itoa(i % 100)
			if i%2 == 0 {
				cache.Get(text)
			} else {
				cache.Put(text, "summary")
			}
			i++
		}
	})
}

func TestNewSummaryCache_InvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1, -1024} {
		if _, err := NewSummaryCache(capacity); !errors.Is(err, ErrInvalidCapacity) {
			t.Fatalf("NewSummaryCache(%d) error = %v, want ErrInvalidCapacity", capacity, err)
		}
	}
}

func TestSummaryCache_Basic(t *testing.T) {
	cache, err := NewSummaryCache(3)
	if err != nil {
		t.Fatalf("NewSummaryCache: %v", err)
	}

	cache.Put("a", "A")
	cache.Put("b", "B")
	cache.Put("c", "C")

	if val, ok := cache.Get("a"); !ok || val != "A" {
		t.Errorf("expected A, got %q (ok=%v)", val, ok)
	}

	// "b" is now the least recently used entry.
	cache.Put("d", "D")

	if _, ok := cache.Get("b"); ok {
		t.Error("expected 'b' to be evicted")
	}
	if cache.Len() != 3 {
		t.Errorf("expected cache length 3, got %d", cache.Len())
	}
	for _, text := range []string{"a", "c", "d"} {
		if _, ok := cache.Get(text); !ok {
			t.Errorf("expected %q to survive eviction", text)
		}
	}
}

func TestSummaryCache_MissReturnsAbsence(t *testing.T) {
	cache, _ := NewSummaryCache(2)
	val, ok := cache.Get("never stored")
	if ok || val != "" {
		t.Fatalf("expected explicit miss, got %q (ok=%v)", val, ok)
	}
}

func TestSummaryCache_PutRefreshesExistingKey(t *testing.T) {
	cache, _ := NewSummaryCache(2)
	cache.Put("a", "first")
	cache.Put("b", "B")
	cache.Put("a", "second")
	cache.Put("c", "C")

	if val, ok := cache.Get("a"); !ok || val != "second" {
		t.Fatalf("expected refreshed value, got %q (ok=%v)", val, ok)
	}
	if _, ok := cache.Get("b"); ok {
		t.Fatal("expected 'b' to be evicted after 'a' was refreshed")
	}
	if cache.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", cache.Len())
	}
}

func TestSummaryCache_KeysOnContent(t *testing.T) {
	cache, _ := NewSummaryCache(4)
	first := string([]byte("same content"))
	second := fmt.Sprintf("%s %s", "same", "content")

	cache.Put(first, "S")
	if val, ok := cache.Get(second); !ok || val != "S" {
		t.Fatalf("equal content must collide, got %q (ok=%v)", val, ok)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected a single entry, got %d", cache.Len())
	}
}

func TestSummaryCache_Clear(t *testing.T) {
	cache, _ := NewSummaryCache(4)
	cache.Put("a", "A")
	cache.Put("b", "B")
	cache.Clear()
	if cache.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", cache.Len())
	}
	if _, ok := cache.Get("a"); ok {
		t.Fatal("expected miss after Clear")
	}
	cache.Put("c", "C")
	if cache.Len() != 1 {
		t.Fatalf("cache unusable after Clear, len=%d", cache.Len())
	}
}

func TestSummaryCache_ConcurrentUse(t *testing.T) {
	cache, _ := NewSummaryCache(64)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				text := strconv.Itoa((w*500 + i) % 200)
				if i%3 == 0 {
					cache.Get(text)
					continue
				}
				cache.Put(text, "summary-"+text)
			}
		}(w)
	}
	wg.Wait()

	if n := cache.Len(); n > 64 {
		t.Fatalf("cache grew past capacity: %d", n)
	}
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if len(cache.items) != cache.lru.Len() {
		t.Fatalf("index and list diverged: %d vs %d", len(cache.items), cache.lru.Len())
	}
}

func TestHashKey(t *testing.T) {
	// sha256("") is a well known constant.
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := HashKey(""); got != empty {
		t.Fatalf("HashKey(\"\") = %s", got)
	}
	if len(HashKey("anything")) != 64 {
		t.Fatal("expected a 256-bit hex digest")
	}
}

func TestHashKeyStable(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		copied := string([]byte(text))
		if HashKey(text) != HashKey(copied) {
			t.Fatalf("HashKey not stable for %q", text)
		}
	})
}

func TestSummaryCacheProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 8).Draw(t, "capacity")
		cache, err := NewSummaryCache(capacity)
		if err != nil {
			t.Fatal(err)
		}

		// PROPERTY: put then get returns the stored summary.
		text := rapid.String().Draw(t, "text")
		summary := rapid.String().Draw(t, "summary")
		cache.Put(text, summary)
		if got, ok := cache.Get(text); !ok || got != summary {
			t.Fatalf("Get after Put = %q (ok=%v), want %q", got, ok, summary)
		}

		// PROPERTY: after capacity further distinct inserts the untouched key is gone.
		for i := 0; i < capacity; i++ {
			cache.Put(fmt.Sprintf("%s#%d", text, i), "x")
		}
		if _, ok := cache.Get(text); ok {
			t.Fatalf("expected %q to be evicted with capacity %d", text, capacity)
		}
		if cache.Len() != capacity {
			t.Fatalf("Len = %d, want %d", cache.Len(), capacity)
		}
	})
}
