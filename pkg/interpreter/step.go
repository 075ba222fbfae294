package interpreter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sibs/pkg/ast"
	"sibs/pkg/runtime/loops"
	"sibs/pkg/value"

	"github.com/google/uuid"
)

// step dispatches on the node kind
func (i *Interpreter) step(ctx context.Context, node ast.Node) (value.RtValue, error) {
	switch n := node.(type) {
	case *ast.Script:
		return i.Run(ctx)

	case *ast.Block:
		return i.block(ctx, n)

	case *ast.Literal:
		return n.Val, nil

	case *ast.Operator:
		return n.Val, nil

	case *ast.Ident:
		return i.variable(ctx, n.Name)

	case *ast.Interpolated:
		s, err := i.interpolate(ctx, n.Parts)
		if err != nil {
			return value.Void(), err
		}
		return value.Str(s), nil

	case *ast.Command:
		return i.command(ctx, n)

	case *ast.VecLit:
		items, err := i.evalAll(ctx, n.Items)
		if err != nil {
			return value.Void(), err
		}
		return value.Vec(items...), nil

	case *ast.RangeExpr:
		return i.rangeExpr(ctx, n)

	case *ast.NamedArg:
		v, err := i.Interpret(ctx, n.Value)
		if err != nil {
			return value.Void(), err
		}
		return value.Named(n.Name, v), nil

	case *ast.Let:
		v, err := i.Interpret(ctx, n.Value)
		if err != nil {
			return value.Void(), err
		}
		return value.Void(), i.rt.Scope().SetVariable(ctx, n.Name, v.Unnamed(), n.Ty)

	case *ast.Assign:
		return i.assign(ctx, n)

	case *ast.Binary:
		return i.binary(ctx, n)

	case *ast.Logical:
		return i.logical(ctx, n)

	case *ast.Not:
		v, err := i.Interpret(ctx, n.Expr)
		if err != nil {
			return value.Void(), err
		}
		return value.Not(v)

	case *ast.Neg:
		v, err := i.Interpret(ctx, n.Expr)
		if err != nil {
			return value.Void(), err
		}
		return value.Negate(v)

	case *ast.Index:
		target, err := i.Interpret(ctx, n.Target)
		if err != nil {
			return value.Void(), err
		}
		idx, err := i.Interpret(ctx, n.Idx)
		if err != nil {
			return value.Void(), err
		}
		return value.Index(target, idx)

	case *ast.If:
		return i.ifElse(ctx, n)

	case *ast.While:
		return i.loop(ctx, n.ID(), func() (bool, error) {
			return i.condition(ctx, n.Cond)
		}, func() (value.RtValue, error) {
			return i.Interpret(ctx, n.Body)
		})

	case *ast.Loop:
		return i.loop(ctx, n.ID(), nil, func() (value.RtValue, error) {
			return i.Interpret(ctx, n.Body)
		})

	case *ast.For:
		return i.forRange(ctx, n)

	case *ast.Each:
		return i.each(ctx, n)

	case *ast.Break:
		if err := i.rt.Loops().RequestBreak(ctx); err != nil {
			return value.Void(), outsideLoop(err, ErrBreakOutsideLoop)
		}
		return value.Void(), nil

	case *ast.Continue:
		if err := i.rt.Loops().RequestContinue(ctx); err != nil {
			return value.Void(), outsideLoop(err, ErrContinueOutsideLoop)
		}
		return value.Void(), nil

	case *ast.Return:
		ret := value.Void()
		if n.Value != nil {
			v, err := i.Interpret(ctx, n.Value)
			if err != nil {
				return value.Void(), err
			}
			ret = v
		}
		return ret, &returnSignal{val: ret}

	case *ast.Call:
		return i.call(ctx, n)

	case *ast.Closure:
		return i.closure(ctx, n)

	case *ast.TaskCall:
		return i.taskCall(ctx, n)

	case *ast.Join:
		return i.join(ctx, n)

	default:
		return value.Void(), fmt.Errorf("cannot interpret %T", node)
	}
}

func outsideLoop(err, sentinel error) error {
	if errors.Is(err, loops.ErrEmptyStack) {
		return sentinel
	}
	return err
}

// block runs stmts in a frame of its own, which is left on every exit path
func (i *Interpreter) block(ctx context.Context, b *ast.Block) (v value.RtValue, err error) {
	sc := i.rt.Scope()
	if err := sc.Enter(ctx, b.ID()); err != nil {
		return value.Void(), err
	}
	defer func() {
		if _, lerr := sc.Leave(context.WithoutCancel(ctx)); lerr != nil && err == nil {
			err = lerr
		}
	}()

	return i.statements(ctx, b.Stmts)
}

// statements runs stmts in order until one fails or the innermost loop
// asks to stop, and returns the value of the last statement run
func (i *Interpreter) statements(ctx context.Context, stmts []ast.Node) (value.RtValue, error) {
	last := value.Void()
	for _, stmt := range stmts {
		stopped, err := i.rt.Loops().IsStopped(ctx)
		if err != nil {
			return value.Void(), err
		}
		if stopped {
			break
		}

		last, err = i.Interpret(ctx, stmt)
		if err != nil {
			return last, err
		}
	}
	return last, nil
}

// loop opens a loop entry and runs body while cond holds and no break was
// requested. A nil cond loops until break.
func (i *Interpreter) loop(ctx context.Context, id uuid.UUID, cond func() (bool, error), body func() (value.RtValue, error)) (v value.RtValue, err error) {
	ctl := i.rt.Loops()
	if err := ctl.Open(ctx, id); err != nil {
		return value.Void(), err
	}
	defer func() {
		if cerr := ctl.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()

	last := value.Void()
	for {
		stopped, err := ctl.NextIteration(ctx)
		if err != nil {
			return value.Void(), err
		}
		if stopped {
			return last, nil
		}

		if cond != nil {
			ok, err := cond()
			if err != nil {
				return value.Void(), err
			}
			if !ok {
				return last, nil
			}
		}

		last, err = body()
		if err != nil {
			return last, err
		}
	}
}

func (i *Interpreter) condition(ctx context.Context, node ast.Node) (bool, error) {
	v, err := i.Interpret(ctx, node)
	if err != nil {
		return false, err
	}
	return v.AsBool()
}

func (i *Interpreter) forRange(ctx context.Context, n *ast.For) (value.RtValue, error) {
	over, err := i.Interpret(ctx, n.Over)
	if err != nil {
		return value.Void(), err
	}
	r, err := over.AsRange()
	if err != nil {
		return value.Void(), err
	}

	cursor := r.Cursor()
	var current int64
	return i.loop(ctx, n.ID(), func() (bool, error) {
		var ok bool
		current, ok = cursor()
		return ok, nil
	}, func() (value.RtValue, error) {
		return i.iteration(ctx, n.ID(), n.Body, map[string]value.RtValue{
			n.Var: value.Num(float64(current)),
		})
	})
}

func (i *Interpreter) each(ctx context.Context, n *ast.Each) (value.RtValue, error) {
	over, err := i.Interpret(ctx, n.Over)
	if err != nil {
		return value.Void(), err
	}
	items, err := over.AsVec()
	if err != nil {
		return value.Void(), err
	}

	idx := 0
	return i.loop(ctx, n.ID(), func() (bool, error) {
		return idx < len(items), nil
	}, func() (value.RtValue, error) {
		vars := map[string]value.RtValue{n.Item: items[idx]}
		if n.Index != "" {
			vars[n.Index] = value.Num(float64(idx))
		}
		idx++
		return i.iteration(ctx, n.ID(), n.Body, vars)
	})
}

// iteration binds the loop variables in a frame around one run of body
func (i *Interpreter) iteration(ctx context.Context, id uuid.UUID, body *ast.Block, vars map[string]value.RtValue) (v value.RtValue, err error) {
	sc := i.rt.Scope()
	if err := sc.Enter(ctx, id); err != nil {
		return value.Void(), err
	}
	defer func() {
		if _, lerr := sc.Leave(context.WithoutCancel(ctx)); lerr != nil && err == nil {
			err = lerr
		}
	}()

	for name, v := range vars {
		if err := sc.SetVariable(ctx, name, v, value.TyAny); err != nil {
			return value.Void(), err
		}
	}
	return i.Interpret(ctx, body)
}

func (i *Interpreter) ifElse(ctx context.Context, n *ast.If) (value.RtValue, error) {
	ok, err := i.condition(ctx, n.Cond)
	if err != nil {
		return value.Void(), err
	}
	if ok {
		return i.block(ctx, n.Then)
	}
	if n.Else != nil {
		return i.Interpret(ctx, n.Else)
	}
	return value.Void(), nil
}

func (i *Interpreter) variable(ctx context.Context, name string) (value.RtValue, error) {
	v, ok, err := i.rt.Scope().GetVariable(ctx, name)
	if err != nil {
		return value.Void(), err
	}
	if !ok {
		return value.Void(), fmt.Errorf("%w %q", ErrUndefinedVariable, name)
	}
	return v, nil
}

func (i *Interpreter) assign(ctx context.Context, n *ast.Assign) (value.RtValue, error) {
	v, err := i.Interpret(ctx, n.Value)
	if err != nil {
		return value.Void(), err
	}
	v = v.Unnamed()

	if n.Op != nil {
		current, err := i.variable(ctx, n.Name)
		if err != nil {
			return value.Void(), err
		}
		if v, err = value.Arith(value.BinaryOperator(n.Op.Val.Op), current, v); err != nil {
			return value.Void(), err
		}
	}

	return value.Void(), i.rt.Scope().AssignVariable(ctx, n.Name, v)
}

func (i *Interpreter) binary(ctx context.Context, n *ast.Binary) (value.RtValue, error) {
	left, err := i.Interpret(ctx, n.Left)
	if err != nil {
		return value.Void(), err
	}
	right, err := i.Interpret(ctx, n.Right)
	if err != nil {
		return value.Void(), err
	}
	op, err := i.Interpret(ctx, n.Op)
	if err != nil {
		return value.Void(), err
	}

	switch op.Kind {
	case value.KindBinaryOperator:
		return value.Arith(value.BinaryOperator(op.Op), left, right)
	case value.KindComparisonOperator:
		return value.Compare(value.ComparisonOperator(op.Op), left, right)
	default:
		return value.Void(), fmt.Errorf("%w: %s", value.ErrUnknownOperator, op.Kind)
	}
}

// logical evaluates the right operand only when the left one does not
// decide the result
func (i *Interpreter) logical(ctx context.Context, n *ast.Logical) (value.RtValue, error) {
	left, err := i.condition(ctx, n.Left)
	if err != nil {
		return value.Void(), err
	}

	switch value.LogicalOperator(n.Op.Val.Op) {
	case value.OpAnd:
		if !left {
			return value.Bool(false), nil
		}
	case value.OpOr:
		if left {
			return value.Bool(true), nil
		}
	default:
		return value.Void(), fmt.Errorf("%w: %s", value.ErrUnknownOperator, n.Op.Val)
	}

	right, err := i.condition(ctx, n.Right)
	if err != nil {
		return value.Void(), err
	}
	return value.Bool(right), nil
}

func (i *Interpreter) rangeExpr(ctx context.Context, n *ast.RangeExpr) (value.RtValue, error) {
	from, err := i.Interpret(ctx, n.From)
	if err != nil {
		return value.Void(), err
	}
	to, err := i.Interpret(ctx, n.To)
	if err != nil {
		return value.Void(), err
	}

	lo, err := from.AsInt()
	if err != nil {
		return value.Void(), err
	}
	hi, err := to.AsInt()
	if err != nil {
		return value.Void(), err
	}
	return value.NewRange(lo, hi), nil
}

func (i *Interpreter) interpolate(ctx context.Context, parts []ast.Node) (string, error) {
	var sb strings.Builder
	for _, part := range parts {
		v, err := i.Interpret(ctx, part)
		if err != nil {
			return "", err
		}
		sb.WriteString(v.Unnamed().String())
	}
	return sb.String(), nil
}

func (i *Interpreter) evalAll(ctx context.Context, nodes []ast.Node) ([]value.RtValue, error) {
	values := make([]value.RtValue, 0, len(nodes))
	for _, node := range nodes {
		v, err := i.Interpret(ctx, node)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}
