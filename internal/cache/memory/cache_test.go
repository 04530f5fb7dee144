package memory

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestCache_SetAndGet(t *testing.T) {
	cache := New()
	defer cache.Stop()
	ctx := context.Background()

	key := "test-key"
	value := []byte(`{"success":true}`)

	if err := cache.Set(ctx, key, value, 5*time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Error("Get() should return ok=true for existing key")
	}
	if !bytes.Equal(got, value) {
		t.Errorf("Get() = %s, want %s", got, value)
	}
}

func TestCache_GetNonExistent(t *testing.T) {
	cache := New()
	defer cache.Stop()

	got, ok, err := cache.Get(context.Background(), "non-existent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() should return ok=false for non-existent key")
	}
	if got != nil {
		t.Errorf("Get() = %v, want nil", got)
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	cache := New()
	defer cache.Stop()
	ctx := context.Background()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Set(ctx, "expiring-key", []byte("v"), 50*time.Millisecond)

	if _, ok, _ := cache.Get(ctx, "expiring-key"); !ok {
		t.Error("Key should exist before TTL expiration")
	}

	now = now.Add(100 * time.Millisecond)

	if _, ok, _ := cache.Get(ctx, "expiring-key"); ok {
		t.Error("Key should not exist after TTL expiration")
	}

	cache.removeExpired()
	if n := len(cache.items); n != 0 {
		t.Errorf("items = %d after removeExpired, want 0", n)
	}
}

func TestCache_Delete(t *testing.T) {
	cache := New()
	defer cache.Stop()
	ctx := context.Background()

	cache.Set(ctx, "delete-key", []byte("v"), time.Hour)

	if _, ok, _ := cache.Get(ctx, "delete-key"); !ok {
		t.Error("Key should exist before delete")
	}

	cache.Delete(ctx, "delete-key")

	if _, ok, _ := cache.Get(ctx, "delete-key"); ok {
		t.Error("Key should not exist after delete")
	}
}

func TestCache_Overwrite(t *testing.T) {
	cache := New()
	defer cache.Stop()
	ctx := context.Background()

	cache.Set(ctx, "overwrite-key", []byte("value1"), time.Hour)
	cache.Set(ctx, "overwrite-key", []byte("value2"), time.Hour)

	got, _, _ := cache.Get(ctx, "overwrite-key")
	if string(got) != "value2" {
		t.Errorf("Get() = %s, want value2 after overwrite", got)
	}
}

func TestCache_SetCopiesValue(t *testing.T) {
	cache := New()
	defer cache.Stop()
	ctx := context.Background()

	buf := []byte("original")
	cache.Set(ctx, "k", buf, time.Hour)
	buf[0] = 'X'

	got, _, _ := cache.Get(ctx, "k")
	if string(got) != "original" {
		t.Errorf("Get() = %s, cached value was mutated", got)
	}
}

func TestCache_Stop(t *testing.T) {
	cache := New()

	cache.Stop()

	if err := cache.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestCache_NewWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cache := NewWithContext(ctx)

	cache.Set(ctx, "ctx-key", []byte("ctx-value"), time.Hour)

	if got, ok, _ := cache.Get(ctx, "ctx-key"); !ok || string(got) != "ctx-value" {
		t.Error("Cache should work before context cancel")
	}

	cancel()

	time.Sleep(10 * time.Millisecond)

	cache.Set(context.Background(), "another", []byte("value"), time.Hour)
	if _, ok, _ := cache.Get(context.Background(), "another"); !ok {
		t.Error("Cache should still work after context cancel")
	}
}

func TestCache_Concurrent(t *testing.T) {
	cache := New()
	defer cache.Stop()
	ctx := context.Background()

	done := make(chan bool)

	go func() {
		for i := 0; i < 1000; i++ {
			cache.Set(ctx, "concurrent-key", []byte{byte(i)}, time.Hour)
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 1000; i++ {
			cache.Get(ctx, "concurrent-key")
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			cache.Delete(ctx, "concurrent-key")
			time.Sleep(time.Microsecond)
		}
		done <- true
	}()

	<-done
	<-done
	<-done
}
