package signals

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sibs/pkg/runtime/actor"
)

func TestEmitBeforeWait(t *testing.T) {
	b := New()
	defer b.Shutdown()
	ctx := context.Background()

	if err := b.Emit(ctx, "X"); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := b.Emit(ctx, "X"); err != nil {
		t.Fatalf("second emit: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- b.Wait(ctx, "X") }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("wait: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("wait after emit did not return")
	}

	if n, _ := b.Waiters(ctx, "X"); n != 0 {
		t.Errorf("expected no waiters, got %d", n)
	}
}

func TestWaitersAreReleasedByEmit(t *testing.T) {
	b := New()
	defer b.Shutdown()
	ctx := context.Background()

	const parked = 3
	var wg sync.WaitGroup
	for i := 0; i < parked; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.Wait(ctx, "S"); err != nil {
				t.Errorf("wait: %v", err)
			}
		}()
	}

	deadline := time.Now().Add(time.Second)
	for {
		n, _ := b.Waiters(ctx, "S")
		if n == parked {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d waiters, got %d", parked, n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if emitted, _ := b.Emitted(ctx, "S"); emitted {
		t.Fatalf("signal should not be emitted yet")
	}
	_ = b.Emit(ctx, "S")
	wg.Wait()

	if n, _ := b.Waiters(ctx, "S"); n != 0 {
		t.Errorf("expected waiters to drain, got %d", n)
	}
}

func TestSignalsAreIndependent(t *testing.T) {
	b := New()
	defer b.Shutdown()

	_ = b.Emit(context.Background(), "A")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := b.Wait(ctx, "B"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected B to stay pending, got %v", err)
	}
	if n, _ := b.Waiters(context.Background(), "B"); n != 0 {
		t.Errorf("timed out waiter should be gone, got %d", n)
	}
}

func TestShutdownReleasesWaiters(t *testing.T) {
	b := New()

	done := make(chan error, 1)
	go func() { done <- b.Wait(context.Background(), "never") }()

	time.Sleep(20 * time.Millisecond)
	b.Shutdown()

	select {
	case err := <-done:
		if !errors.Is(err, actor.ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("waiter was not released")
	}
}
