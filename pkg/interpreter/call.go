package interpreter

import (
	"context"
	"errors"
	"fmt"

	"sibs/pkg/ast"
	"sibs/pkg/runtime"
	"sibs/pkg/runtime/fns"
	"sibs/pkg/value"

	"golang.org/x/sync/errgroup"
)

// call evaluates a function or method call. For `recv.name(args)` the
// receiver is evaluated first, then the arguments; the receiver is stashed
// in the parent value slot right before the call and withdrawn by it as the
// leading argument. The slot is empty again when call returns.
func (i *Interpreter) call(ctx context.Context, n *ast.Call) (value.RtValue, error) {
	sc := i.rt.Scope()

	var recv value.RtValue
	if n.Receiver != nil {
		var err error
		if recv, err = i.Interpret(ctx, n.Receiver); err != nil {
			return value.Void(), err
		}
	}

	args, err := i.evalAll(ctx, n.Args)
	if err != nil {
		return value.Void(), err
	}

	if n.Receiver != nil {
		if err := sc.SetParentValue(ctx, recv); err != nil {
			return value.Void(), err
		}
		defer sc.DropParentValue(context.WithoutCancel(ctx))
	}

	return i.invoke(ctx, n, args)
}

func (i *Interpreter) invoke(ctx context.Context, n *ast.Call, args []value.RtValue) (value.RtValue, error) {
	var recv *value.RtValue
	if n.Receiver != nil {
		v, ok, err := i.rt.Scope().WithdrawParentValue(ctx)
		if err != nil {
			return value.Void(), err
		}
		if !ok {
			return value.Void(), fmt.Errorf("method %s called without a receiver", n.Name)
		}
		recv = &v
		args = append([]value.RtValue{v}, args...)
	}

	entity, err := i.resolve(ctx, n.Name, recv)
	if err != nil {
		return value.Void(), err
	}
	return i.rt.Fns().Execute(ctx, entity, i, args)
}

// resolve finds the function a call refers to. Plain calls first look for a
// variable holding a closure. Method calls try the module of the receiver
// kind, e.g. `str::upper` for a string receiver. Both then try the running
// component's functions and finally the global name.
func (i *Interpreter) resolve(ctx context.Context, name string, recv *value.RtValue) (*fns.Entity, error) {
	reg := i.rt.Fns()

	var candidates []string
	if recv != nil {
		for _, module := range methodModules(*recv) {
			candidates = append(candidates, module+"::"+name)
		}
	} else if v, ok, err := i.rt.Scope().GetVariable(ctx, name); err != nil {
		return nil, err
	} else if ok {
		if v.Kind != value.KindClosure {
			return nil, fmt.Errorf("%w: %s holds %s", ErrNotCallable, name, v.Kind)
		}
		e, found, err := reg.LookupByID(ctx, v.Closure)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: closure %s", fns.ErrNotFound, v.Closure)
		}
		return e, nil
	}

	if i.component != nil {
		candidates = append(candidates, i.component.Name+"::"+name)
	}
	candidates = append(candidates, name)

	for _, candidate := range candidates {
		e, ok, err := reg.Lookup(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if ok {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", fns.ErrNotFound, name)
}

func methodModules(v value.RtValue) []string {
	switch v.Kind {
	case value.KindStr:
		return []string{"str"}
	case value.KindPathBuf:
		return []string{"path", "str"}
	case value.KindVec:
		return []string{"vec"}
	case value.KindExecuteResult:
		return []string{"process"}
	default:
		return []string{v.Kind.String()}
	}
}

// closure registers the closure literal on first evaluation and yields a
// reference to it by UUID
func (i *Interpreter) closure(ctx context.Context, n *ast.Closure) (value.RtValue, error) {
	reg := i.rt.Fns()

	_, ok, err := reg.LookupByID(ctx, n.ID())
	if err != nil {
		return value.Void(), err
	}
	if !ok {
		err := reg.Register(ctx, &fns.Entity{
			Kind:   fns.Closure,
			UUID:   n.ID(),
			Params: n.Params,
			Ret:    value.TyAny,
			Body:   n.Body,
		})
		// a joined sibling may have registered it first
		if err != nil && !errors.Is(err, fns.ErrDuplicate) {
			return value.Void(), err
		}
	}
	return value.Closure(n.ID()), nil
}

// taskCall runs another component's task in a context of its own
func (i *Interpreter) taskCall(ctx context.Context, n *ast.TaskCall) (value.RtValue, error) {
	comp, task, err := i.findTask(n.Component, n.Task)
	if err != nil {
		return value.Void(), err
	}

	args, err := i.evalAll(ctx, n.Args)
	if err != nil {
		return value.Void(), err
	}

	raw := make([]string, len(args))
	for k, arg := range args {
		raw[k] = arg.Unnamed().String()
	}

	child, err := i.rt.CreateContext(runtime.RtParameters{
		Component: comp.Name,
		Task:      task.Name,
		Args:      raw,
		Cwd:       componentDir(i.base, comp),
	})
	if err != nil {
		return value.Void(), err
	}
	defer child.Destroy()

	return i.spawn(child, comp).runTask(ctx, comp, task, args)
}

// join evaluates every item concurrently, each in a fork of the current
// context, and collects the results in item order. The first failure
// cancels the remaining items.
func (i *Interpreter) join(ctx context.Context, n *ast.Join) (value.RtValue, error) {
	forks := make([]*runtime.Runtime, 0, len(n.Items))
	defer func() {
		for _, fork := range forks {
			fork.Destroy()
		}
	}()

	for range n.Items {
		fork, err := i.rt.Fork()
		if err != nil {
			return value.Void(), err
		}
		forks = append(forks, fork)
	}

	results := make([]value.RtValue, len(n.Items))
	g, gctx := errgroup.WithContext(ctx)
	for k, item := range n.Items {
		k, item := k, item
		sub := i.spawn(forks[k], i.component)
		g.Go(func() error {
			v, err := sub.Interpret(gctx, item)
			results[k] = v
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return value.Void(), err
	}
	return value.Vec(results...), nil
}
