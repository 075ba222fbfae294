package interpreter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"sibs/pkg/ast"
	"sibs/pkg/diag"
	"sibs/pkg/runtime"
	"sibs/pkg/runtime/fns"
	"sibs/pkg/value"

	"github.com/charmbracelet/log"
)

// Interpreter walks a script's syntax tree against one runtime context.
// Task calls and joined expressions get an Interpreter of their own, bound
// to the context created for them.
type Interpreter struct {
	rt        *runtime.Runtime
	script    *ast.Script
	component *ast.Component // component whose task is running, if any
	base      string         // working directory of the root context

	maxSteps int64         // maximum steps (0 = unlimited)
	steps    *atomic.Int64 // nodes interpreted, shared with spawned contexts
}

type Option func(*Interpreter)

// WithMaxSteps sets a maximum number of interpreted nodes before returning ErrMaxStepsExceeded
func WithMaxSteps(n int64) Option {
	return func(i *Interpreter) { i.maxSteps = n }
}

// NewInterpreter creates an interpreter for script running in rt
func NewInterpreter(rt *runtime.Runtime, script *ast.Script, opts ...Option) *Interpreter {
	if script == nil {
		script = &ast.Script{}
	}

	it := &Interpreter{
		rt:     rt,
		script: script,
		base:   rt.GetRtParameters().Cwd,
		steps:  &atomic.Int64{},
	}
	for _, o := range opts {
		o(it)
	}

	return it
}

// spawn returns an interpreter sharing everything but the runtime context
func (i *Interpreter) spawn(rt *runtime.Runtime, component *ast.Component) *Interpreter {
	return &Interpreter{
		rt:        rt,
		script:    i.script,
		component: component,
		base:      i.base,
		maxSteps:  i.maxSteps,
		steps:     i.steps,
	}
}

// Runtime returns the runtime context the interpreter is bound to
func (i *Interpreter) Runtime() *runtime.Runtime {
	return i.rt
}

// Steps returns the number of nodes interpreted so far
func (i *Interpreter) Steps() int64 {
	return i.steps.Load()
}

// Load registers the script's functions. Global functions are registered
// under their own name, component functions as `component::name`.
func (i *Interpreter) Load(ctx context.Context) error {
	reg := i.rt.Fns()

	for _, fn := range i.script.Fns {
		if err := reg.Register(ctx, userFn(fn.Name, fn)); err != nil {
			return diag.Link(fn.Span(), err)
		}
	}
	for _, c := range i.script.Components {
		for _, fn := range c.Fns {
			if err := reg.Register(ctx, userFn(c.Name+"::"+fn.Name, fn)); err != nil {
				return diag.Link(fn.Span(), err)
			}
		}
	}
	return nil
}

func userFn(name string, fn *ast.FnDecl) *fns.Entity {
	return &fns.Entity{
		Kind:   fns.User,
		Name:   name,
		UUID:   fn.ID(),
		Params: fn.Params,
		Ret:    fn.Ret,
		Body:   fn.Body,
	}
}

// Run interprets the script entry point: the bare block of the script, or
// the component task named by the runtime parameters.
func (i *Interpreter) Run(ctx context.Context) (value.RtValue, error) {
	if i.script.Main != nil {
		return caught(i.Interpret(ctx, i.script.Main))
	}

	params := i.rt.GetRtParameters()
	if params.Component == "" || params.Task == "" {
		return value.Void(), fmt.Errorf("%w: a component and task must be selected", ErrNoEntry)
	}

	comp, task, err := i.findTask(params.Component, params.Task)
	if err != nil {
		return value.Void(), err
	}

	args := make([]value.RtValue, len(params.Args))
	for n, raw := range params.Args {
		ty := value.TyAny
		if n < len(task.Params) {
			ty = task.Params[n].Ty
		}
		if args[n], err = argValue(raw, ty); err != nil {
			return value.Void(), diag.Link(task.Span(), err)
		}
	}

	i.component = comp
	return i.runTask(ctx, comp, task, args)
}

func (i *Interpreter) findTask(component, name string) (*ast.Component, *ast.Task, error) {
	comp, ok := i.script.FindComponent(component)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownComponent, component)
	}
	task, ok := comp.FindTask(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s:%s", ErrUnknownTask, component, name)
	}
	return comp, task, nil
}

// argValue converts a command line argument to the declared parameter type
func argValue(raw string, ty value.Ty) (value.RtValue, error) {
	switch ty {
	case value.TyNum:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return value.Void(), fmt.Errorf("%w: %q is not a number", value.ErrTypeMismatch, raw)
		}
		return value.Num(n), nil
	case value.TyBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return value.Void(), fmt.Errorf("%w: %q is not a bool", value.ErrTypeMismatch, raw)
		}
		return value.Bool(b), nil
	case value.TyPath:
		return value.Path(raw), nil
	default:
		return value.Str(raw), nil
	}
}

// runTask binds args to the task parameters in a fresh frame and runs its body
func (i *Interpreter) runTask(ctx context.Context, comp *ast.Component, task *ast.Task, args []value.RtValue) (value.RtValue, error) {
	owner := comp.Name + ":" + task.Name
	entity := &fns.Entity{Kind: fns.User, Name: owner, UUID: task.ID(), Params: task.Params, Ret: value.TyAny, Body: task.Body}

	bound, err := fns.Bind(entity, args)
	if err != nil {
		return value.Void(), diag.Link(task.Span(), err)
	}

	journal := i.rt.Journal()
	journal.Info(owner, "task started")

	v, err := i.RunBody(ctx, entity, bound)
	if err != nil {
		journal.Err(owner, "task failed", "error", err)
		return value.Void(), err
	}

	journal.Debug(owner, "task finished", "result", v.String())
	return v, nil
}

// RunBody runs a user function, closure or task body: parameters are bound
// in a frame of their own, and a `return` inside the body ends the call.
// Functions and tasks see only their own variables; closures also see the
// variables visible at the call site. Loops of the caller are out of reach
// of break and continue in either case.
func (i *Interpreter) RunBody(ctx context.Context, e *fns.Entity, args []value.RtValue) (v value.RtValue, err error) {
	ctl := i.rt.Loops()
	if err := ctl.OpenCall(ctx, e.UUID); err != nil {
		return value.Void(), err
	}
	defer func() {
		if cerr := ctl.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()

	sc := i.rt.Scope()
	enter := sc.EnterCall
	if e.Kind == fns.Closure {
		enter = sc.Enter
	}
	if err := enter(ctx, e.UUID); err != nil {
		return value.Void(), err
	}
	defer func() {
		if _, lerr := sc.Leave(context.WithoutCancel(ctx)); lerr != nil && err == nil {
			err = lerr
		}
	}()

	for n, p := range e.Params {
		if err := sc.SetVariable(ctx, p.Name, args[n], p.Ty); err != nil {
			return value.Void(), err
		}
	}

	return caught(i.Interpret(ctx, e.Body))
}

// Eval interprets statements in the current frame, so that declarations
// outlive the call. Used by the interactive prompt.
func (i *Interpreter) Eval(ctx context.Context, block *ast.Block) (value.RtValue, error) {
	return caught(i.statements(ctx, block.Stmts))
}

// Interpret evaluates node, linking any error to the node's source span
func (i *Interpreter) Interpret(ctx context.Context, node ast.Node) (value.RtValue, error) {
	if err := ctx.Err(); err != nil {
		return value.Void(), diag.Link(node.Span(), err)
	}

	steps := i.steps.Add(1)
	if i.maxSteps > 0 && steps > i.maxSteps {
		return value.Void(), diag.Link(node.Span(), ErrMaxStepsExceeded)
	}

	v, err := i.step(ctx, node)
	if err != nil {
		var ret *returnSignal
		if errors.As(err, &ret) {
			return v, err
		}
		var linked *diag.LinkedError
		if !errors.As(err, &linked) {
			log.Debug("interpretation failed", "node", fmt.Sprintf("%T", node), "at", node.Span(), "error", err)
		}
		return value.Void(), diag.Link(node.Span(), err)
	}
	return v, nil
}

// Workdir is the directory commands run in: the running component's
// directory, resolved against the root working directory
func (i *Interpreter) Workdir() string {
	return componentDir(i.base, i.component)
}

func componentDir(base string, comp *ast.Component) string {
	if comp == nil || comp.Cwd == "" {
		return base
	}
	if filepath.IsAbs(comp.Cwd) {
		return comp.Cwd
	}
	return filepath.Join(base, comp.Cwd)
}
