package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/Rewind/internal/clock"
)

var (
	epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx   = context.Background()
)

func newTestStorage() (*MemoryStorage, *clock.Virtual) {
	vc := clock.NewVirtual(epoch)
	return NewMemoryStorage(vc), vc
}

func TestMemoryStorage_SetGet(t *testing.T) {
	s, _ := newTestStorage()

	if err := s.Set(ctx, "key1", []byte("hello"), 0); err != nil {
		t.Fatal(err)
	}

	val, err := s.Get(ctx, "key1")
	if err != nil {
		t.Fatal(err)
	}
	if string(val) != "hello" {
		t.Errorf("Get() = %q, want %q", val, "hello")
	}
}

func TestMemoryStorage_GetMissing(t *testing.T) {
	s, _ := newTestStorage()

	val, err := s.Get(ctx, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if val != nil {
		t.Errorf("Get(missing) = %v, want nil", val)
	}
}

func TestMemoryStorage_Expiration(t *testing.T) {
	s, vc := newTestStorage()

	if err := s.Set(ctx, "key1", []byte("value"), 10*time.Second); err != nil {
		t.Fatal(err)
	}

	if val, _ := s.Get(ctx, "key1"); val == nil {
		t.Fatal("key should exist before expiration")
	}

	// Expiry is inclusive of the deadline.
	vc.Advance(10 * time.Second)

	if val, _ := s.Get(ctx, "key1"); val != nil {
		t.Errorf("key should be expired, got %q", val)
	}
}

func TestMemoryStorage_NoExpiration(t *testing.T) {
	s, vc := newTestStorage()

	s.Set(ctx, "key1", []byte("forever"), 0)
	vc.Advance(24 * 365 * time.Hour)

	val, _ := s.Get(ctx, "key1")
	if string(val) != "forever" {
		t.Errorf("key with no expiration should persist, got %q", val)
	}
}

func TestMemoryStorage_Delete(t *testing.T) {
	s, _ := newTestStorage()

	s.Set(ctx, "key1", []byte("value"), 0)
	if err := s.Delete(ctx, "key1"); err != nil {
		t.Fatal(err)
	}
	if val, _ := s.Get(ctx, "key1"); val != nil {
		t.Error("key should be deleted")
	}
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete(missing) should not error, got %v", err)
	}
}

func TestMemoryStorage_SetIfAbsent(t *testing.T) {
	s, _ := newTestStorage()

	ok, err := s.SetIfAbsent(ctx, "bind", []byte("first"), 0)
	if err != nil || !ok {
		t.Fatalf("first SetIfAbsent = %v, %v; want true, nil", ok, err)
	}

	ok, err = s.SetIfAbsent(ctx, "bind", []byte("second"), 0)
	if err != nil || ok {
		t.Fatalf("second SetIfAbsent = %v, %v; want false, nil", ok, err)
	}

	val, _ := s.Get(ctx, "bind")
	if string(val) != "first" {
		t.Errorf("Get() = %q, want first value kept", val)
	}
}

func TestMemoryStorage_SetIfAbsentAfterExpiry(t *testing.T) {
	s, vc := newTestStorage()

	s.SetIfAbsent(ctx, "bind", []byte("old"), time.Minute)
	vc.Advance(2 * time.Minute)

	ok, _ := s.SetIfAbsent(ctx, "bind", []byte("new"), 0)
	if !ok {
		t.Fatal("SetIfAbsent should succeed once the old value expired")
	}
}

func TestMemoryStorage_SetIfAbsentConcurrent(t *testing.T) {
	s, _ := newTestStorage()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.SetIfAbsent(ctx, "bind", []byte("x"), 0); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("%d goroutines won SetIfAbsent, want 1", wins.Load())
	}
}

func TestMemoryStorage_Cleanup(t *testing.T) {
	s, vc := newTestStorage()

	s.Set(ctx, "expire1", []byte("v"), 5*time.Second)
	s.Set(ctx, "expire2", []byte("v"), 10*time.Second)
	s.Set(ctx, "persist", []byte("v"), 0)

	vc.Advance(7 * time.Second)
	s.Cleanup()
	if s.Len() != 2 {
		t.Errorf("Len() after cleanup = %d, want 2", s.Len())
	}

	vc.Advance(5 * time.Second)
	s.Cleanup()
	if s.Len() != 1 {
		t.Errorf("Len() after second cleanup = %d, want 1", s.Len())
	}
}

func TestMemoryStorage_StartCleanup(t *testing.T) {
	s, vc := newTestStorage()
	defer s.Close()

	s.Set(ctx, "expire", []byte("v"), time.Second)
	s.StartCleanup(time.Minute)

	// Wait for the loop to register its timer before moving time.
	deadline := time.Now().Add(2 * time.Second)
	for vc.Pending() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	vc.Advance(time.Minute)

	for s.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after background cleanup", s.Len())
	}
}

func TestMemoryStorage_GetReturnsCopy(t *testing.T) {
	s, _ := newTestStorage()

	s.Set(ctx, "key1", []byte("original"), 0)
	val, _ := s.Get(ctx, "key1")
	val[0] = 'X'

	val2, _ := s.Get(ctx, "key1")
	if string(val2) != "original" {
		t.Errorf("Get() returned mutable reference, got %q", val2)
	}
}

func TestMemoryStorage_ImplementsStorage(t *testing.T) {
	var _ Storage = NewMemoryStorage(clock.NewReal())
}
