// Package signals implements named broadcast-once signals shared between
// concurrently running tasks.
package signals

import (
	"context"

	"sibs/pkg/runtime/actor"
)

type signal struct {
	ctx     context.Context
	emit    context.CancelFunc
	waiters int
}

type op int

const (
	opEmit op = iota
	opWait
	opLeave
	opWaiters
)

type request struct {
	op    op
	name  string
	reply chan<- reply
}

type reply struct {
	done    <-chan struct{}
	waiters int
	parked  bool
}

// Broker owns the signal table.
type Broker struct {
	mb *actor.Mailbox[request]
}

func New() *Broker {
	table := map[string]*signal{}
	return &Broker{mb: actor.New("signals", func(r request) {
		r.reply <- handle(table, r)
	})}
}

func handle(table map[string]*signal, r request) reply {
	sig, ok := table[r.name]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		sig = &signal{ctx: ctx, emit: cancel}
		table[r.name] = sig
	}

	parked := false
	switch r.op {
	case opEmit:
		sig.emit()
	case opWait:
		select {
		case <-sig.ctx.Done():
		default:
			sig.waiters++
			parked = true
		}
	case opLeave:
		if sig.waiters > 0 {
			sig.waiters--
		}
	}
	return reply{done: sig.ctx.Done(), waiters: sig.waiters, parked: parked}
}

func (b *Broker) ask(ctx context.Context, o op, name string) (reply, error) {
	return actor.Ask(ctx, b.mb, func(r chan<- reply) request {
		return request{op: o, name: name, reply: r}
	})
}

// Emit flips the signal. Emitting an already emitted signal has no effect.
func (b *Broker) Emit(ctx context.Context, name string) error {
	_, err := b.ask(ctx, opEmit, name)
	return err
}

// Wait blocks until name has been emitted, returning immediately if it
// already was. It fails when ctx ends or the broker shuts down first.
func (b *Broker) Wait(ctx context.Context, name string) error {
	r, err := b.ask(ctx, opWait, name)
	if err != nil || !r.parked {
		return err
	}

	select {
	case <-r.done:
	case <-ctx.Done():
		err = ctx.Err()
	case <-b.mb.Done():
		return actor.ErrUnavailable
	}

	if _, lerr := b.ask(context.Background(), opLeave, name); lerr != nil && err == nil {
		err = lerr
	}
	return err
}

// Waiters returns the number of tasks currently parked on name.
func (b *Broker) Waiters(ctx context.Context, name string) (int, error) {
	r, err := b.ask(ctx, opWaiters, name)
	return r.waiters, err
}

// Emitted reports whether name has been emitted.
func (b *Broker) Emitted(ctx context.Context, name string) (bool, error) {
	r, err := b.ask(ctx, opWaiters, name)
	if err != nil {
		return false, err
	}
	select {
	case <-r.done:
		return true, nil
	default:
		return false, nil
	}
}

// Shutdown stops the broker and releases every parked waiter.
func (b *Broker) Shutdown() {
	b.mb.Close()
}
