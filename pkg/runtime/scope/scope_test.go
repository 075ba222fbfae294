package scope

import (
	"context"
	"errors"
	"testing"

	"sibs/pkg/runtime/actor"
	"sibs/pkg/value"

	"github.com/google/uuid"
)

func newScope(t *testing.T) (*Scope, context.Context) {
	t.Helper()
	sc := New()
	t.Cleanup(sc.Shutdown)

	ctx := context.Background()
	if err := sc.Enter(ctx, uuid.New()); err != nil {
		t.Fatalf("enter: %v", err)
	}
	return sc, ctx
}

func mustGet(t *testing.T, sc *Scope, name string) value.RtValue {
	t.Helper()
	v, ok, err := sc.GetVariable(context.Background(), name)
	if err != nil || !ok {
		t.Fatalf("get %s: ok=%v err=%v", name, ok, err)
	}
	return v
}

func TestRoundTrip(t *testing.T) {
	sc, ctx := newScope(t)

	values := []value.RtValue{
		value.Num(42),
		value.Str("hello"),
		value.Bool(true),
		value.Vec(value.Num(1), value.Str("x")),
		value.NewRange(1, 3),
	}
	for _, v := range values {
		if err := sc.SetVariable(ctx, "v", v, value.TyAny); err != nil {
			t.Fatalf("set %s: %v", v, err)
		}
		if got := mustGet(t, sc, "v"); !value.Equal(got, v) {
			t.Errorf("expected %s, got %s", v, got)
		}
	}
}

func TestInnerFrameIsInvisibleAfterLeave(t *testing.T) {
	sc, ctx := newScope(t)

	inner := uuid.New()
	if err := sc.Enter(ctx, inner); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if err := sc.SetVariable(ctx, "x", value.Num(1), value.TyAny); err != nil {
		t.Fatalf("set: %v", err)
	}
	left, err := sc.Leave(ctx)
	if err != nil || left != inner {
		t.Fatalf("expected to leave %s, got %s (%v)", inner, left, err)
	}

	if _, ok, _ := sc.GetVariable(ctx, "x"); ok {
		t.Errorf("x should not be visible after leaving its frame")
	}
}

func TestShadowingAndAssignment(t *testing.T) {
	sc, ctx := newScope(t)

	_ = sc.SetVariable(ctx, "n", value.Num(0), value.TyAny)
	_ = sc.Enter(ctx, uuid.New())

	// assignment reaches the outer frame
	if err := sc.AssignVariable(ctx, "n", value.Num(5)); err != nil {
		t.Fatalf("assign: %v", err)
	}
	// a declaration shadows it
	_ = sc.SetVariable(ctx, "n", value.Str("inner"), value.TyAny)
	if got := mustGet(t, sc, "n"); got.Str != "inner" {
		t.Errorf("expected shadowed value, got %s", got)
	}

	_, _ = sc.Leave(ctx)
	if got := mustGet(t, sc, "n"); got.Num != 5 {
		t.Errorf("expected outer value 5, got %s", got)
	}
}

func TestAssignmentErrors(t *testing.T) {
	sc, ctx := newScope(t)

	if err := sc.AssignVariable(ctx, "missing", value.Num(1)); !errors.Is(err, ErrUndefinedVariable) {
		t.Errorf("expected ErrUndefinedVariable, got %v", err)
	}

	_ = sc.SetVariable(ctx, "n", value.Num(1), value.TyAny)
	if err := sc.AssignVariable(ctx, "n", value.Str("x")); !errors.Is(err, value.ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
	if err := sc.SetVariable(ctx, "s", value.Num(1), value.TyStr); !errors.Is(err, value.ErrTypeMismatch) {
		t.Errorf("expected declared type to be enforced, got %v", err)
	}

	_ = sc.SetVariable(ctx, "a", value.Num(1), value.TyAny)
	if got := mustGet(t, sc, "a"); got.Num != 1 {
		t.Errorf("unexpected value %s", got)
	}
}

func TestParentValueSlot(t *testing.T) {
	sc, ctx := newScope(t)

	if _, ok, _ := sc.WithdrawParentValue(ctx); ok {
		t.Fatalf("slot should start empty")
	}
	if err := sc.SetParentValue(ctx, value.Num(1)); err != nil {
		t.Fatalf("set parent: %v", err)
	}
	if err := sc.SetParentValue(ctx, value.Num(2)); !errors.Is(err, ErrParentOccupied) {
		t.Errorf("expected ErrParentOccupied, got %v", err)
	}

	v, ok, err := sc.WithdrawParentValue(ctx)
	if err != nil || !ok || v.Num != 1 {
		t.Fatalf("expected to withdraw 1, got %s ok=%v err=%v", v, ok, err)
	}
	if _, ok, _ := sc.WithdrawParentValue(ctx); ok {
		t.Errorf("value must be withdrawn only once")
	}

	_ = sc.SetParentValue(ctx, value.Num(3))
	if err := sc.DropParentValue(ctx); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, ok, _ := sc.WithdrawParentValue(ctx); ok {
		t.Errorf("slot should be empty after drop")
	}
}

func TestSnapshotAndDepth(t *testing.T) {
	sc, ctx := newScope(t)

	_ = sc.SetVariable(ctx, "a", value.Num(1), value.TyAny)
	_ = sc.SetVariable(ctx, "b", value.Num(1), value.TyAny)
	_ = sc.Enter(ctx, uuid.New())
	_ = sc.SetVariable(ctx, "b", value.Num(2), value.TyAny)

	vars, err := sc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(vars) != 2 || vars["a"].Value.Num != 1 || vars["b"].Value.Num != 2 {
		t.Errorf("unexpected snapshot %v", vars)
	}

	if depth, _ := sc.Depth(ctx); depth != 2 {
		t.Errorf("expected depth 2, got %d", depth)
	}
}

func TestLeaveWithoutFrame(t *testing.T) {
	sc := New()
	defer sc.Shutdown()

	if _, err := sc.Leave(context.Background()); !errors.Is(err, ErrNoFrame) {
		t.Errorf("expected ErrNoFrame, got %v", err)
	}
	if err := sc.SetVariable(context.Background(), "x", value.Num(1), value.TyAny); !errors.Is(err, ErrNoFrame) {
		t.Errorf("expected ErrNoFrame, got %v", err)
	}
}

func TestClosedScope(t *testing.T) {
	sc := New()
	sc.Shutdown()

	if err := sc.Enter(context.Background(), uuid.New()); !errors.Is(err, actor.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestCallFrameHidesCallerVariables(t *testing.T) {
	sc, ctx := newScope(t)

	_ = sc.SetVariable(ctx, "x", value.Num(1), value.TyAny)
	if err := sc.EnterCall(ctx, uuid.New()); err != nil {
		t.Fatalf("enter call: %v", err)
	}

	if _, ok, _ := sc.GetVariable(ctx, "x"); ok {
		t.Errorf("x of the caller should not be visible")
	}
	if err := sc.AssignVariable(ctx, "x", value.Num(99)); !errors.Is(err, ErrUndefinedVariable) {
		t.Errorf("expected ErrUndefinedVariable, got %v", err)
	}

	// blocks inside the call still see the call's own variables
	_ = sc.SetVariable(ctx, "y", value.Num(2), value.TyAny)
	_ = sc.Enter(ctx, uuid.New())
	if got := mustGet(t, sc, "y"); got.Num != 2 {
		t.Errorf("expected 2, got %s", got)
	}
	if vars, _ := sc.Snapshot(ctx); len(vars) != 1 {
		t.Errorf("snapshot should stop at the call frame, got %v", vars)
	}
	_, _ = sc.Leave(ctx)

	_, _ = sc.Leave(ctx)
	if got := mustGet(t, sc, "x"); got.Num != 1 {
		t.Errorf("caller variable changed to %s", got)
	}
}
