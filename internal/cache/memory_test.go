package cache

import (
	"context"
	"testing"
	"time"

	"github.com/garlicdoggoe/astrosynergy/internal/config"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	v, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}

	// returned slices are copies
	v[0] = 'x'
	v2, _, _ := s.Get(ctx, "k")
	if string(v2) != "v" {
		t.Fatalf("stored value mutated: %q", v2)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("key still present after Delete")
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_ = s.Set(ctx, "short", []byte("1"), time.Minute)
	_ = s.Set(ctx, "forever", []byte("2"), 0)

	now = now.Add(30 * time.Second)
	if _, ok, _ := s.Get(ctx, "short"); !ok {
		t.Fatal("short expired too early")
	}

	now = now.Add(time.Minute)
	if _, ok, _ := s.Get(ctx, "short"); ok {
		t.Fatal("short should have expired")
	}
	if _, ok, _ := s.Get(ctx, "forever"); !ok {
		t.Fatal("item without ttl expired")
	}
}

func TestMemoryStore_TakeIsOneShot(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Set(ctx, "ticket", []byte("owner:1"), time.Minute)

	v, ok, err := s.Take(ctx, "ticket")
	if err != nil || !ok || string(v) != "owner:1" {
		t.Fatalf("Take = %q, %v, %v", v, ok, err)
	}
	if _, ok, _ := s.Take(ctx, "ticket"); ok {
		t.Fatal("second Take should miss")
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_ = s.Set(ctx, "a", []byte("1"), time.Second)
	_ = s.Set(ctx, "b", []byte("2"), time.Second)
	_ = s.Set(ctx, "c", []byte("3"), time.Hour)

	now = now.Add(time.Minute)
	if n := s.Sweep(); n != 2 {
		t.Fatalf("Sweep = %d, want 2", n)
	}
	if _, ok, _ := s.Get(ctx, "c"); !ok {
		t.Fatal("c should survive")
	}
}

func TestNew_Drivers(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, config.CacheConfig{Driver: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("memory driver returned %T", s)
	}
	if _, err := New(ctx, config.CacheConfig{Driver: "memcached"}); err == nil {
		t.Fatal("unknown driver should fail")
	}
}
