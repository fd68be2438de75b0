package dictation

import (
	"sync"
	"testing"
	"time"
)

func TestArbiter_ExclusiveAcquire(t *testing.T) {
	t.Parallel()
	a := NewArbiter(WithIdleTimeout(0))

	if err := a.Acquire(SourceLocal); err != nil {
		t.Fatalf("local acquire on free lock: %v", err)
	}
	if err := a.Acquire("remote-abc123"); err != ErrSourceBusy {
		t.Fatalf("remote acquire while local holds = %v, want ErrSourceBusy", err)
	}
	if got := a.Current(); got != SourceLocal {
		t.Errorf("Current() = %q, want %q", got, SourceLocal)
	}

	a.Release(SourceLocal)
	if err := a.Acquire("remote-abc123"); err != nil {
		t.Fatalf("remote acquire after local release: %v", err)
	}
	if err := a.Acquire(SourceLocal); err != ErrSourceBusy {
		t.Fatalf("local acquire while remote holds = %v, want ErrSourceBusy", err)
	}
}

func TestArbiter_ReacquireBySameHolder(t *testing.T) {
	t.Parallel()
	a := NewArbiter(WithIdleTimeout(0))

	if err := a.Acquire(SourceLocal); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := a.Acquire(SourceLocal); err != nil {
		t.Fatalf("re-acquire by holder: %v", err)
	}
}

func TestArbiter_ReleaseIsIdempotent(t *testing.T) {
	t.Parallel()
	a := NewArbiter(WithIdleTimeout(0))

	a.Release(SourceLocal) // nothing held

	if err := a.Acquire("remote-xyz"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	a.Release(SourceLocal) // held by someone else
	if got := a.Current(); got != "remote-xyz" {
		t.Errorf("Current() after foreign release = %q, want %q", got, "remote-xyz")
	}

	a.Release("remote-xyz")
	a.Release("remote-xyz")
	if got := a.Current(); got != "" {
		t.Errorf("Current() after release = %q, want empty", got)
	}
}

func TestArbiter_IdleTimeoutAutoReleases(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		expired string
	)
	a := NewArbiter(
		WithIdleTimeout(20*time.Millisecond),
		WithExpireFunc(func(sourceID string) {
			mu.Lock()
			expired = sourceID
			mu.Unlock()
		}),
	)

	if err := a.Acquire("remote-stale"); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for a.Current() != "" {
		select {
		case <-deadline:
			t.Fatal("lock not auto-released after idle timeout")
		case <-time.After(5 * time.Millisecond):
		}
	}

	mu.Lock()
	got := expired
	mu.Unlock()
	if got != "remote-stale" {
		t.Errorf("expire callback got %q, want %q", got, "remote-stale")
	}

	if err := a.Acquire(SourceLocal); err != nil {
		t.Fatalf("acquire after auto-release: %v", err)
	}
}

func TestArbiter_TouchRenewsTimeout(t *testing.T) {
	t.Parallel()
	a := NewArbiter(WithIdleTimeout(60 * time.Millisecond))

	if err := a.Acquire(SourceLocal); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Keep touching past the original deadline; the lock must survive.
	for i := 0; i < 5; i++ {
		time.Sleep(25 * time.Millisecond)
		a.Touch(SourceLocal)
	}
	if got := a.Current(); got != SourceLocal {
		t.Fatalf("lock lost despite Touch, Current() = %q", got)
	}
	a.Release(SourceLocal)
}

func TestArbiter_TouchIgnoresNonHolder(t *testing.T) {
	t.Parallel()
	a := NewArbiter(WithIdleTimeout(0))

	if err := a.Acquire(SourceLocal); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	a.Touch("remote-other")
	if got := a.Current(); got != SourceLocal {
		t.Errorf("Current() = %q, want %q", got, SourceLocal)
	}
}
