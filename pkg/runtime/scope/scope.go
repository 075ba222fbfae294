// Package scope implements the variable environment manager: a stack of
// frames keyed by the UUID of the block that opened them, plus the one-slot
// parent value used by chained method calls. A frame opened for a function
// call is a barrier: lookups and assignments never reach the caller's
// frames below it.
package scope

import (
	"context"
	"errors"
	"fmt"

	"sibs/pkg/runtime/actor"
	"sibs/pkg/stack"
	"sibs/pkg/value"

	"github.com/google/uuid"
)

var (
	ErrNoFrame           = errors.New("no scope frame is open")
	ErrUndefinedVariable = errors.New("undefined variable")
	ErrParentOccupied    = errors.New("parent value is already set")
)

// Variable is a stored value together with the type the slot was declared
// with, or inferred from its first value.
type Variable struct {
	Value value.RtValue
	Ty    value.Ty
}

type frame struct {
	id      uuid.UUID
	vars    map[string]Variable
	barrier bool
}

type state struct {
	frames *stack.Stack[*frame]
	parent *value.RtValue
}

type request interface {
	handle(s *state)
}

// Scope is the handle to one scope manager.
type Scope struct {
	mb *actor.Mailbox[request]
}

// New starts a scope manager with no open frames.
func New() *Scope {
	s := &state{frames: stack.NewStack[*frame]()}
	return &Scope{mb: actor.New("scope", func(r request) { r.handle(s) })}
}

// Shutdown stops the manager. Pending and later requests fail with
// actor.ErrUnavailable.
func (sc *Scope) Shutdown() {
	sc.mb.Close()
}

type enterReq struct {
	id      uuid.UUID
	barrier bool
	reply   chan<- struct{}
}

func (r enterReq) handle(s *state) {
	s.frames.Push(&frame{id: r.id, vars: map[string]Variable{}, barrier: r.barrier})
	r.reply <- struct{}{}
}

func (sc *Scope) enter(ctx context.Context, id uuid.UUID, barrier bool) error {
	_, err := actor.Ask(ctx, sc.mb, func(reply chan<- struct{}) request {
		return enterReq{id: id, barrier: barrier, reply: reply}
	})
	return err
}

// Enter opens a frame owned by the block with the given UUID.
func (sc *Scope) Enter(ctx context.Context, id uuid.UUID) error {
	return sc.enter(ctx, id, false)
}

// EnterCall opens the frame of a function call. Variables of the frames
// below it are invisible until it is left.
func (sc *Scope) EnterCall(ctx context.Context, id uuid.UUID) error {
	return sc.enter(ctx, id, true)
}

type leaveReq struct {
	reply chan<- actor.Result[uuid.UUID]
}

func (r leaveReq) handle(s *state) {
	f, ok := s.frames.Pop()
	if !ok {
		r.reply <- actor.Result[uuid.UUID]{Err: ErrNoFrame}
		return
	}
	r.reply <- actor.Result[uuid.UUID]{Val: f.id}
}

// Leave drops the innermost frame and returns the UUID it was opened with.
func (sc *Scope) Leave(ctx context.Context) (uuid.UUID, error) {
	return actor.AskErr(ctx, sc.mb, func(reply chan<- actor.Result[uuid.UUID]) request {
		return leaveReq{reply: reply}
	})
}

type setReq struct {
	name  string
	v     value.RtValue
	ty    value.Ty
	reply chan<- error
}

func (r setReq) handle(s *state) {
	f, ok := s.frames.Peek()
	if !ok {
		r.reply <- ErrNoFrame
		return
	}

	ty := r.ty
	if ty == value.TyAny && !r.v.IsVoid() {
		ty = value.TyOf(r.v)
	}
	if err := ty.Check(r.v); err != nil {
		r.reply <- fmt.Errorf("variable %q: %w", r.name, err)
		return
	}

	f.vars[r.name] = Variable{Value: r.v, Ty: ty}
	r.reply <- nil
}

// SetVariable declares name in the current frame, overwriting any variable
// of the same name in that frame. With value.TyAny the slot takes the type
// of v.
func (sc *Scope) SetVariable(ctx context.Context, name string, v value.RtValue, ty value.Ty) error {
	return askErr(ctx, sc.mb, func(reply chan<- error) request {
		return setReq{name: name, v: v, ty: ty, reply: reply}
	})
}

type assignReq struct {
	name  string
	v     value.RtValue
	reply chan<- error
}

func (r assignReq) handle(s *state) {
	var err error = fmt.Errorf("%w %q", ErrUndefinedVariable, r.name)

	s.frames.Walk(func(f *frame) bool {
		current, ok := f.vars[r.name]
		if !ok {
			return !f.barrier
		}
		if cerr := current.Ty.Check(r.v); cerr != nil {
			err = fmt.Errorf("variable %q: %w", r.name, cerr)
			return false
		}
		f.vars[r.name] = Variable{Value: r.v, Ty: current.Ty}
		err = nil
		return false
	})

	r.reply <- err
}

// AssignVariable overwrites the innermost visible variable called name.
// The new value must fit the type the variable was declared with.
func (sc *Scope) AssignVariable(ctx context.Context, name string, v value.RtValue) error {
	return askErr(ctx, sc.mb, func(reply chan<- error) request {
		return assignReq{name: name, v: v, reply: reply}
	})
}

type lookup struct {
	v  Variable
	ok bool
}

type getReq struct {
	name  string
	reply chan<- lookup
}

func (r getReq) handle(s *state) {
	var res lookup
	s.frames.Walk(func(f *frame) bool {
		res.v, res.ok = f.vars[r.name]
		return !res.ok && !f.barrier
	})
	r.reply <- res
}

// GetVariable searches the frames from the innermost outwards, stopping at
// the innermost call frame.
func (sc *Scope) GetVariable(ctx context.Context, name string) (value.RtValue, bool, error) {
	res, err := actor.Ask(ctx, sc.mb, func(reply chan<- lookup) request {
		return getReq{name: name, reply: reply}
	})
	return res.v.Value, res.ok, err
}

type setParentReq struct {
	v     value.RtValue
	reply chan<- error
}

func (r setParentReq) handle(s *state) {
	if s.parent != nil {
		r.reply <- ErrParentOccupied
		return
	}
	v := r.v
	s.parent = &v
	r.reply <- nil
}

// SetParentValue stashes the receiver of a chained call. The slot must be empty.
func (sc *Scope) SetParentValue(ctx context.Context, v value.RtValue) error {
	return askErr(ctx, sc.mb, func(reply chan<- error) request {
		return setParentReq{v: v, reply: reply}
	})
}

type withdrawReq struct {
	drop  bool
	reply chan<- lookup
}

func (r withdrawReq) handle(s *state) {
	var res lookup
	if s.parent != nil {
		res = lookup{v: Variable{Value: *s.parent}, ok: !r.drop}
		s.parent = nil
	}
	r.reply <- res
}

// WithdrawParentValue takes the stashed receiver out of the slot, if any.
func (sc *Scope) WithdrawParentValue(ctx context.Context) (value.RtValue, bool, error) {
	res, err := actor.Ask(ctx, sc.mb, func(reply chan<- lookup) request {
		return withdrawReq{reply: reply}
	})
	return res.v.Value, res.ok, err
}

// DropParentValue empties the slot whether or not it holds a value.
func (sc *Scope) DropParentValue(ctx context.Context) error {
	_, err := actor.Ask(ctx, sc.mb, func(reply chan<- lookup) request {
		return withdrawReq{drop: true, reply: reply}
	})
	return err
}

type snapshotReq struct {
	reply chan<- map[string]Variable
}

func (r snapshotReq) handle(s *state) {
	frames := s.frames.Array()
	start := 0
	for n, f := range frames {
		if f.barrier {
			start = n
		}
	}

	vars := map[string]Variable{}
	// bottom first so inner frames shadow outer ones
	for _, f := range frames[start:] {
		for name, v := range f.vars {
			vars[name] = v
		}
	}
	r.reply <- vars
}

// Snapshot returns every visible variable, as seen from the innermost frame.
func (sc *Scope) Snapshot(ctx context.Context) (map[string]Variable, error) {
	return actor.Ask(ctx, sc.mb, func(reply chan<- map[string]Variable) request {
		return snapshotReq{reply: reply}
	})
}

type depthReq struct {
	reply chan<- int
}

func (r depthReq) handle(s *state) {
	r.reply <- s.frames.Size()
}

// Depth returns the number of open frames.
func (sc *Scope) Depth(ctx context.Context) (int, error) {
	return actor.Ask(ctx, sc.mb, func(reply chan<- int) request {
		return depthReq{reply: reply}
	})
}

func askErr(ctx context.Context, mb *actor.Mailbox[request], mk func(reply chan<- error) request) error {
	err, aerr := actor.Ask(ctx, mb, mk)
	if aerr != nil {
		return aerr
	}
	return err
}
