// Package loops implements the loop controller: one entry per running loop,
// innermost on top, carrying the break/continue state of that loop. A
// function call pushes a barrier entry, so loops of the caller cannot be
// broken out of from inside the callee.
package loops

import (
	"context"
	"errors"

	"sibs/pkg/runtime/actor"
	"sibs/pkg/stack"

	"github.com/google/uuid"
)

// ErrEmptyStack is returned when an operation needs a running loop but none is open.
var ErrEmptyStack = errors.New("no loop is running")

type State int

const (
	Running State = iota
	// Skipping ends the current iteration only
	Skipping
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Skipping:
		return "skipping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type entry struct {
	id      uuid.UUID
	state   State
	barrier bool
}

type request struct {
	op    op
	id    uuid.UUID
	reply chan<- actor.Result[State]
}

type op int

const (
	opOpen op = iota
	opCall
	opClose
	opBreak
	opContinue
	opState
	opNext
)

// Loops is the handle to one loop controller.
type Loops struct {
	mb *actor.Mailbox[request]
}

func New() *Loops {
	entries := stack.NewStack[*entry]()
	return &Loops{mb: actor.New("loops", func(r request) {
		r.reply <- handle(entries, r)
	})}
}

func handle(entries *stack.Stack[*entry], r request) actor.Result[State] {
	switch r.op {
	case opOpen, opCall:
		entries.Push(&entry{id: r.id, state: Running, barrier: r.op == opCall})
		return actor.Result[State]{Val: Running}
	}

	top, ok := entries.Peek()
	if ok && top.barrier && r.op != opClose {
		ok = false
	}
	if !ok {
		if r.op == opState {
			// outside any loop nothing is ever stopped
			return actor.Result[State]{Val: Running}
		}
		return actor.Result[State]{Err: ErrEmptyStack}
	}

	switch r.op {
	case opClose:
		entries.Pop()
	case opBreak:
		top.state = Stopped
	case opContinue:
		if top.state == Running {
			top.state = Skipping
		}
	case opNext:
		if top.state == Skipping {
			top.state = Running
		}
	}
	return actor.Result[State]{Val: top.state}
}

func (l *Loops) ask(ctx context.Context, o op, id uuid.UUID) (State, error) {
	return actor.AskErr(ctx, l.mb, func(reply chan<- actor.Result[State]) request {
		return request{op: o, id: id, reply: reply}
	})
}

// Open pushes a running entry for the loop with the given UUID.
func (l *Loops) Open(ctx context.Context, id uuid.UUID) error {
	_, err := l.ask(ctx, opOpen, id)
	return err
}

// OpenCall pushes the barrier entry of a function call. Until it is
// closed, break and continue only reach loops opened after it.
func (l *Loops) OpenCall(ctx context.Context, id uuid.UUID) error {
	_, err := l.ask(ctx, opCall, id)
	return err
}

// Close pops the innermost entry whatever its state.
func (l *Loops) Close(ctx context.Context) error {
	_, err := l.ask(ctx, opClose, uuid.Nil)
	return err
}

// RequestBreak stops the innermost loop.
func (l *Loops) RequestBreak(ctx context.Context) error {
	_, err := l.ask(ctx, opBreak, uuid.Nil)
	return err
}

// RequestContinue abandons the rest of the innermost loop's current iteration.
func (l *Loops) RequestContinue(ctx context.Context) error {
	_, err := l.ask(ctx, opContinue, uuid.Nil)
	return err
}

// IsStopped reports whether statements of the innermost loop body should
// stop running, either for good or until the next iteration.
func (l *Loops) IsStopped(ctx context.Context) (bool, error) {
	state, err := l.ask(ctx, opState, uuid.Nil)
	return state != Running, err
}

// NextIteration is called before each iteration. It clears a pending
// continue and reports whether the loop has been broken out of.
func (l *Loops) NextIteration(ctx context.Context) (bool, error) {
	state, err := l.ask(ctx, opNext, uuid.Nil)
	if err != nil {
		return true, err
	}
	return state == Stopped, nil
}

// Shutdown stops the controller; later requests fail with actor.ErrUnavailable.
func (l *Loops) Shutdown() {
	l.mb.Close()
}
