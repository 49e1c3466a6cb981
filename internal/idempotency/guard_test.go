package idempotency

import (
	"context"
	"testing"
	"time"
)

func TestKeyFormats(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"job step", Key("j1", "script_gen"), "idemp:j1:script_gen"},
		{"variant step", VariantKey("j1", "tts", 2), "idemp:j1:tts:v2"},
		{"first variant", VariantKey("abc", "finalize", 1), "idemp:abc:finalize:v1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Fatalf("key = %q, want %q", tc.got, tc.want)
			}
		})
	}
}

func TestGuardAcquireIsExclusive(t *testing.T) {
	ctx := context.Background()
	guard := NewGuard(NewMemoryStore(), time.Minute)

	first, err := guard.TryAcquire(ctx, "idemp:j1:tts:v1")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if !first {
		t.Fatal("first acquire should succeed")
	}

	second, err := guard.TryAcquire(ctx, "idemp:j1:tts:v1")
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if second {
		t.Fatal("second acquire should fail while the lease is held")
	}

	// A different key is unaffected.
	other, err := guard.TryAcquire(ctx, "idemp:j1:tts:v2")
	if err != nil {
		t.Fatalf("other acquire: %v", err)
	}
	if !other {
		t.Fatal("acquire on an unrelated key should succeed")
	}
}

func TestGuardReleaseAllowsReacquire(t *testing.T) {
	ctx := context.Background()
	guard := NewGuard(NewMemoryStore(), time.Minute)

	if ok, _ := guard.TryAcquire(ctx, "idemp:j1:video:v1"); !ok {
		t.Fatal("initial acquire should succeed")
	}
	if err := guard.Release(ctx, "idemp:j1:video:v1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := guard.TryAcquire(ctx, "idemp:j1:video:v1"); !ok {
		t.Fatal("acquire after release should succeed")
	}
}

func TestGuardReleaseAbsentIsNoop(t *testing.T) {
	guard := NewGuard(NewMemoryStore(), time.Minute)
	if err := guard.Release(context.Background(), "idemp:missing:script_gen"); err != nil {
		t.Fatalf("release of absent lease: %v", err)
	}
}

func TestGuardLeaseExpires(t *testing.T) {
	ctx := context.Background()
	guard := NewGuard(NewMemoryStore(), 10*time.Millisecond)

	if ok, _ := guard.TryAcquire(ctx, "idemp:j1:script_gen"); !ok {
		t.Fatal("initial acquire should succeed")
	}

	time.Sleep(25 * time.Millisecond)

	ok, err := guard.TryAcquire(ctx, "idemp:j1:script_gen")
	if err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}
	if !ok {
		t.Fatal("acquire after TTL expiry should succeed")
	}
}
