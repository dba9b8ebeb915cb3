package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	var got []string
	hit, err := c.GetJSON(ctx, "k", &got)
	if err != nil || hit {
		t.Fatalf("empty cache: hit=%v err=%v", hit, err)
	}

	if err := c.SetJSON(ctx, "k", []string{"a", "b"}, 0); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}

	hit, err = c.GetJSON(ctx, "k", &got)
	if err != nil || !hit {
		t.Fatalf("after set: hit=%v err=%v", hit, err)
	}
	if len(got) != 2 || got[0] != "a" {
		t.Errorf("got %v", got)
	}

	if err := c.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	hit, _ = c.GetJSON(ctx, "k", &got)
	if hit {
		t.Error("hit after delete")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if err := c.SetJSON(ctx, "k", "v", time.Millisecond); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	var got string
	hit, err := c.GetJSON(ctx, "k", &got)
	if err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if hit {
		t.Error("hit after ttl elapsed")
	}
}
