// Package fns is the function registry: embedded (native) functions,
// user-declared functions and closures, looked up by name or UUID and
// invoked through one calling convention.
package fns

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"sibs/pkg/ast"
	"sibs/pkg/runtime/actor"
	"sibs/pkg/value"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("function not found")
	ErrDuplicate  = errors.New("function already registered")
	ErrArgCount   = errors.New("wrong number of arguments")
	ErrArgType    = errors.New("argument type mismatch")
	ErrArgName    = errors.New("unknown argument name")
	ErrReturnType = errors.New("return type mismatch")
)

type Kind int

const (
	Embedded Kind = iota
	User
	Closure
)

func (k Kind) String() string {
	switch k {
	case Embedded:
		return "embedded"
	case User:
		return "user"
	case Closure:
		return "closure"
	default:
		return "unknown"
	}
}

// Host runs AST-backed function bodies. It is implemented by the
// interpreter bound to the calling runtime context.
type Host interface {
	RunBody(ctx context.Context, e *Entity, args []value.RtValue) (value.RtValue, error)
}

// Executor is the native implementation of an embedded function.
type Executor func(ctx context.Context, host Host, args []value.RtValue) (value.RtValue, error)

// Entity is a registered function.
type Entity struct {
	Kind Kind
	// Name is fully qualified (`str::upper`); closures have none
	Name   string
	UUID   uuid.UUID
	Params []ast.Param
	Ret    value.Ty
	// Variadic embedded functions accept any number of arguments of any type
	Variadic bool
	Body     *ast.Block
	Exec     Executor
}

func (e *Entity) String() string {
	if e.Name != "" {
		return e.Name
	}
	return "closure<" + e.UUID.String() + ">"
}

type registry struct {
	byName map[string]*Entity
	byID   map[uuid.UUID]*Entity
}

type request interface {
	handle(r *registry)
}

// Registry is the handle to the function registry manager.
type Registry struct {
	mb *actor.Mailbox[request]
}

func New() *Registry {
	reg := &registry{
		byName: map[string]*Entity{},
		byID:   map[uuid.UUID]*Entity{},
	}
	return &Registry{mb: actor.New("fns", func(r request) { r.handle(reg) })}
}

// Shutdown stops the registry manager.
func (r *Registry) Shutdown() {
	r.mb.Close()
}

type registerReq struct {
	e     *Entity
	reply chan<- error
}

func (q registerReq) handle(r *registry) {
	if q.e.Name != "" {
		if _, ok := r.byName[q.e.Name]; ok {
			q.reply <- fmt.Errorf("%w: %s", ErrDuplicate, q.e.Name)
			return
		}
	}
	if _, ok := r.byID[q.e.UUID]; ok {
		q.reply <- fmt.Errorf("%w: %s", ErrDuplicate, q.e.UUID)
		return
	}

	if q.e.Name != "" {
		r.byName[q.e.Name] = q.e
	}
	r.byID[q.e.UUID] = q.e
	q.reply <- nil
}

// Register adds e, assigning a UUID when it has none. Names and UUIDs
// are registered at most once.
func (r *Registry) Register(ctx context.Context, e *Entity) error {
	if e.UUID == uuid.Nil {
		e.UUID = uuid.New()
	}
	if e.Kind != Closure && e.Name == "" {
		return fmt.Errorf("%s function without a name", e.Kind)
	}
	if e.Kind == Embedded && e.Exec == nil {
		return fmt.Errorf("embedded function %s without executor", e.Name)
	}

	err, aerr := actor.Ask(ctx, r.mb, func(reply chan<- error) request {
		return registerReq{e: e, reply: reply}
	})
	if aerr != nil {
		return aerr
	}
	return err
}

type lookupReq struct {
	name  string
	id    uuid.UUID
	reply chan<- *Entity
}

func (q lookupReq) handle(r *registry) {
	if q.name != "" {
		q.reply <- r.byName[q.name]
		return
	}
	q.reply <- r.byID[q.id]
}

// Lookup resolves a function by its fully qualified name.
func (r *Registry) Lookup(ctx context.Context, name string) (*Entity, bool, error) {
	e, err := actor.Ask(ctx, r.mb, func(reply chan<- *Entity) request {
		return lookupReq{name: name, reply: reply}
	})
	return e, e != nil, err
}

// LookupByID resolves a function, typically a closure, by UUID.
func (r *Registry) LookupByID(ctx context.Context, id uuid.UUID) (*Entity, bool, error) {
	e, err := actor.Ask(ctx, r.mb, func(reply chan<- *Entity) request {
		return lookupReq{id: id, reply: reply}
	})
	return e, e != nil, err
}

type namesReq struct {
	reply chan<- []string
}

func (q namesReq) handle(r *registry) {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	q.reply <- names
}

// Names lists every named function, sorted.
func (r *Registry) Names(ctx context.Context) ([]string, error) {
	return actor.Ask(ctx, r.mb, func(reply chan<- []string) request {
		return namesReq{reply: reply}
	})
}

// Execute binds args to e's parameters and runs it. Embedded functions run
// their executor, user functions and closures run through host.
func (r *Registry) Execute(ctx context.Context, e *Entity, host Host, args []value.RtValue) (value.RtValue, error) {
	bound, err := Bind(e, args)
	if err != nil {
		return value.Void(), err
	}

	var result value.RtValue
	if e.Kind == Embedded {
		result, err = e.Exec(ctx, host, bound)
	} else {
		result, err = host.RunBody(ctx, e, bound)
	}
	if err != nil {
		return value.Void(), err
	}

	if e.Ret != value.TyAny {
		if cerr := e.Ret.Check(result); cerr != nil {
			return value.Void(), fmt.Errorf("%w: %s: %v", ErrReturnType, e, cerr)
		}
	}
	return result, nil
}

// Bind orders args by parameter: positional arguments fill parameters from
// the left, named arguments fill the parameter of the same name. Every
// parameter must be filled exactly once and match its declared type.
func Bind(e *Entity, args []value.RtValue) ([]value.RtValue, error) {
	if e.Variadic {
		bound := make([]value.RtValue, len(args))
		for i, arg := range args {
			bound[i] = arg.Unnamed()
		}
		return bound, nil
	}

	if len(args) != len(e.Params) {
		return nil, fmt.Errorf("%w: %s expects %d, got %d", ErrArgCount, e, len(e.Params), len(args))
	}

	bound := make([]value.RtValue, len(e.Params))
	filled := make([]bool, len(e.Params))
	next := 0

	for _, arg := range args {
		idx := -1
		if arg.Kind == value.KindNamedArgument {
			for i, p := range e.Params {
				if p.Name == arg.Str {
					idx = i
					break
				}
			}
			if idx < 0 {
				return nil, fmt.Errorf("%w: %s has no parameter %q", ErrArgName, e, arg.Str)
			}
		} else {
			for next < len(filled) && filled[next] {
				next++
			}
			idx = next
		}

		if idx >= len(filled) || filled[idx] {
			return nil, fmt.Errorf("%w: %s: parameter bound twice", ErrArgCount, e)
		}

		v := arg.Unnamed()
		param := e.Params[idx]
		if !param.Ty.Accepts(v) {
			return nil, fmt.Errorf("%w: %s: %s expects %s, got %s", ErrArgType, e, param.Name, param.Ty, value.TyOf(v))
		}
		bound[idx] = v
		filled[idx] = true
	}

	return bound, nil
}
