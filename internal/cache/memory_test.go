package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryCache_GetSet(t *testing.T) {
	c, err := New("memory", ProviderConfig{Size: 10, TTL: time.Hour})
	if err != nil {
		t.Fatalf("New memory cache: %v", err)
	}
	defer c.Close()

	if val, ok := c.Get("ratelimit:anidb:last_dispatch"); ok || val != nil {
		t.Fatalf("Expected miss, got %q", val)
	}

	c.Set("ratelimit:anidb:last_dispatch", []byte("1700000000000"))
	val, ok := c.Get("ratelimit:anidb:last_dispatch")
	if !ok {
		t.Fatal("Expected hit after Set")
	}
	if string(val) != "1700000000000" {
		t.Fatalf("Expected stored value, got %s", val)
	}

	c.Set("ratelimit:anidb:last_dispatch", []byte("1700000002250"))
	val, _ = c.Get("ratelimit:anidb:last_dispatch")
	if string(val) != "1700000002250" {
		t.Fatalf("Expected overwritten value, got %s", val)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	c, err := New("memory", ProviderConfig{Size: 10, TTL: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Set("k", []byte("v"))
	time.Sleep(150 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("Expected entry to expire after TTL")
	}
}

func TestMemoryCache_SizeBound(t *testing.T) {
	c, err := New("memory", ProviderConfig{Size: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Set("c", []byte("3"))

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("Expected oldest entry to be evicted")
	}
}

func TestMemoryCache_DefaultSize(t *testing.T) {
	c, err := New("memory", ProviderConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Set("k", []byte("v"))
	if _, ok := c.Get("k"); !ok {
		t.Fatal("Expected zero Size to fall back to a usable default")
	}
}

func TestMemoryCache_SetIfAbsent(t *testing.T) {
	c, err := New("memory", ProviderConfig{Size: 10, TTL: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := c.SetIfAbsent("lease", []byte("holder"), 100*time.Millisecond)
			if err != nil {
				t.Errorf("SetIfAbsent: %v", err)
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("%d callers reserved the key, want exactly 1", wins.Load())
	}

	time.Sleep(150 * time.Millisecond)
	if _, ok := c.Get("lease"); ok {
		t.Fatal("Expected the entry to expire after its own ttl")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after expiry, want 0", c.Len())
	}
	if ok, _ := c.SetIfAbsent("lease", []byte("next"), time.Second); !ok {
		t.Fatal("Expected the key to be free again once expired")
	}
}

func TestMemoryCache_SetIfAbsentRespectsSet(t *testing.T) {
	c, err := New("memory", ProviderConfig{Size: 10})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Set("k", []byte("v"))
	if ok, _ := c.SetIfAbsent("k", []byte("other"), time.Second); ok {
		t.Fatal("SetIfAbsent must not overwrite a live entry")
	}
	if val, _ := c.Get("k"); string(val) != "v" {
		t.Errorf("Get = %q, want v", val)
	}
}
