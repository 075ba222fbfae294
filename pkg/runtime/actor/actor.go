// Package actor provides the mailbox every runtime manager is built on: a
// single goroutine owning the manager state, fed by a FIFO channel of
// requests, each optionally carrying a single-use reply channel.
package actor

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
)

// ErrUnavailable is returned for requests against a closed manager.
var ErrUnavailable = errors.New("manager unavailable")

// Mailbox serializes messages of type M onto one handler goroutine.
type Mailbox[M any] struct {
	name   string
	inbox  chan M
	done   chan struct{}
	closed sync.Once
}

// New starts the owner goroutine of a manager called name.
func New[M any](name string, handle func(M)) *Mailbox[M] {
	return NewBuffered(name, 0, handle)
}

// NewBuffered is New with an inbox holding up to size messages, so that
// senders only wait once size messages are queued.
func NewBuffered[M any](name string, size int, handle func(M)) *Mailbox[M] {
	mb := &Mailbox[M]{
		name:  name,
		inbox: make(chan M, size),
		done:  make(chan struct{}),
	}
	go mb.run(handle)
	return mb
}

func (mb *Mailbox[M]) run(handle func(M)) {
	log.Debug("manager started", "manager", mb.name)
	for {
		select {
		case msg := <-mb.inbox:
			handle(msg)
		case <-mb.done:
			log.Debug("manager stopped", "manager", mb.name)
			return
		}
	}
}

// Name returns the manager name used in logs and errors.
func (mb *Mailbox[M]) Name() string {
	return mb.name
}

// Send delivers msg, blocking until the owner accepts it.
func (mb *Mailbox[M]) Send(ctx context.Context, msg M) error {
	select {
	case <-mb.done:
		return mb.unavailable()
	default:
	}

	select {
	case mb.inbox <- msg:
		return nil
	case <-mb.done:
		return mb.unavailable()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend is Send without waiting on a caller context. Messages posted
// after Close are dropped.
func (mb *Mailbox[M]) TrySend(msg M) bool {
	return mb.Send(context.Background(), msg) == nil
}

// Done is closed once the manager has been shut down.
func (mb *Mailbox[M]) Done() <-chan struct{} {
	return mb.done
}

// Close stops the owner goroutine. It is safe to call more than once.
func (mb *Mailbox[M]) Close() {
	mb.closed.Do(func() { close(mb.done) })
}

func (mb *Mailbox[M]) unavailable() error {
	return &UnavailableError{Manager: mb.name}
}

// UnavailableError names the manager that could not be reached.
type UnavailableError struct {
	Manager string
}

func (e *UnavailableError) Error() string {
	return e.Manager + ": " + ErrUnavailable.Error()
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// Ask sends a request built by mk and waits for its reply. The reply channel
// is buffered so the owner never blocks on an abandoned request.
func Ask[M, R any](ctx context.Context, mb *Mailbox[M], mk func(reply chan<- R) M) (R, error) {
	var zero R
	reply := make(chan R, 1)
	if err := mb.Send(ctx, mk(reply)); err != nil {
		return zero, err
	}

	select {
	case r := <-reply:
		return r, nil
	case <-mb.done:
		// the owner may have answered just before shutting down
		select {
		case r := <-reply:
			return r, nil
		default:
		}
		return zero, mb.unavailable()
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Result pairs a reply value with an error for requests that can fail.
type Result[T any] struct {
	Val T
	Err error
}

// AskErr is Ask for requests replying with a Result.
func AskErr[M, T any](ctx context.Context, mb *Mailbox[M], mk func(reply chan<- Result[T]) M) (T, error) {
	res, err := Ask(ctx, mb, mk)
	if err != nil {
		return res.Val, err
	}
	return res.Val, res.Err
}
