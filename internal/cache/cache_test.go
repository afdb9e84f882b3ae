package cache

import (
	"testing"
	"time"
)

func TestGet_Missing(t *testing.T) {
	c := New()
	_, fresh, ok := c.Get("nope")
	if ok {
		t.Fatal("Get on empty cache should report ok=false")
	}
	if fresh {
		t.Error("missing entry cannot be fresh")
	}
}

func TestSetGet_Fresh(t *testing.T) {
	c := New()
	c.Set("prices:maharashtra:tomato", []string{"a", "b"}, time.Hour)

	v, fresh, ok := c.Get("prices:maharashtra:tomato")
	if !ok || !fresh {
		t.Fatalf("entry should be present and fresh, got ok=%v fresh=%v", ok, fresh)
	}
	records, castOK := v.([]string)
	if !castOK || len(records) != 2 {
		t.Errorf("unexpected cached value: %#v", v)
	}
}

func TestGet_StaleStillReturned(t *testing.T) {
	now := time.Now()
	c := NewWithClock(func() time.Time { return now })
	c.Set("weather:18.52:73.85", "forecast", time.Hour)

	// Advance past the TTL.
	now = now.Add(2 * time.Hour)

	v, fresh, ok := c.Get("weather:18.52:73.85")
	if !ok {
		t.Fatal("stale entry should still be returned")
	}
	if fresh {
		t.Error("entry past its TTL should not be fresh")
	}
	if v != "forecast" {
		t.Errorf("stale value = %v", v)
	}
}

func TestSet_ZeroTTLUsesDefault(t *testing.T) {
	now := time.Now()
	c := NewWithClock(func() time.Time { return now })
	c.Set("k", 1, 0)

	now = now.Add(DefaultTTL - time.Minute)
	if _, fresh, _ := c.Get("k"); !fresh {
		t.Error("entry should still be fresh just inside DefaultTTL")
	}

	now = now.Add(2 * time.Minute)
	if _, fresh, _ := c.Get("k"); fresh {
		t.Error("entry should be stale past DefaultTTL")
	}
}

func TestInvalidate(t *testing.T) {
	c := New()
	c.Set("k", 1, time.Hour)
	c.Invalidate("k")
	if _, _, ok := c.Get("k"); ok {
		t.Error("invalidated entry should be gone")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}
