package loops

import (
	"context"
	"errors"
	"testing"

	"sibs/pkg/runtime/actor"

	"github.com/google/uuid"
)

func TestBreakStopsInnermostOnly(t *testing.T) {
	l := New()
	defer l.Shutdown()
	ctx := context.Background()

	_ = l.Open(ctx, uuid.New())
	_ = l.Open(ctx, uuid.New())

	if err := l.RequestBreak(ctx); err != nil {
		t.Fatalf("break: %v", err)
	}
	if stopped, _ := l.IsStopped(ctx); !stopped {
		t.Errorf("inner loop should be stopped")
	}

	if err := l.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if stopped, _ := l.IsStopped(ctx); stopped {
		t.Errorf("outer loop should still be running")
	}
	if stopped, _ := l.NextIteration(ctx); stopped {
		t.Errorf("outer loop should keep iterating")
	}
}

func TestContinueLastsOneIteration(t *testing.T) {
	l := New()
	defer l.Shutdown()
	ctx := context.Background()

	_ = l.Open(ctx, uuid.New())
	_ = l.RequestContinue(ctx)

	if stopped, _ := l.IsStopped(ctx); !stopped {
		t.Errorf("rest of the iteration should be skipped")
	}
	if stopped, _ := l.NextIteration(ctx); stopped {
		t.Errorf("continue must not end the loop")
	}
	if stopped, _ := l.IsStopped(ctx); stopped {
		t.Errorf("next iteration should run")
	}

	// break wins over a pending continue
	_ = l.RequestBreak(ctx)
	_ = l.RequestContinue(ctx)
	if stopped, _ := l.NextIteration(ctx); !stopped {
		t.Errorf("expected loop to be stopped")
	}
}

func TestEmptyStack(t *testing.T) {
	l := New()
	defer l.Shutdown()
	ctx := context.Background()

	if err := l.RequestBreak(ctx); !errors.Is(err, ErrEmptyStack) {
		t.Errorf("expected ErrEmptyStack for break, got %v", err)
	}
	if err := l.Close(ctx); !errors.Is(err, ErrEmptyStack) {
		t.Errorf("expected ErrEmptyStack for close, got %v", err)
	}
	if stopped, err := l.IsStopped(ctx); stopped || err != nil {
		t.Errorf("nothing is stopped outside a loop, got %v (%v)", stopped, err)
	}
}

func TestShutdownController(t *testing.T) {
	l := New()
	l.Shutdown()

	if err := l.Open(context.Background(), uuid.New()); !errors.Is(err, actor.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestCallIsABarrier(t *testing.T) {
	l := New()
	defer l.Shutdown()
	ctx := context.Background()

	_ = l.Open(ctx, uuid.New())
	if err := l.OpenCall(ctx, uuid.New()); err != nil {
		t.Fatalf("open call: %v", err)
	}

	if err := l.RequestBreak(ctx); !errors.Is(err, ErrEmptyStack) {
		t.Errorf("expected ErrEmptyStack for break, got %v", err)
	}
	if err := l.RequestContinue(ctx); !errors.Is(err, ErrEmptyStack) {
		t.Errorf("expected ErrEmptyStack for continue, got %v", err)
	}
	if stopped, err := l.IsStopped(ctx); stopped || err != nil {
		t.Errorf("a call body is never stopped, got %v (%v)", stopped, err)
	}

	// loops of the callee still work
	_ = l.Open(ctx, uuid.New())
	if err := l.RequestBreak(ctx); err != nil {
		t.Fatalf("break: %v", err)
	}
	_ = l.Close(ctx)

	if err := l.Close(ctx); err != nil {
		t.Fatalf("close call: %v", err)
	}
	if stopped, _ := l.NextIteration(ctx); stopped {
		t.Errorf("caller loop should keep running")
	}
}
