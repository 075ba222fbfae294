package embedded

import (
	"context"
	"fmt"
	"strings"

	"sibs/pkg/ast"
	"sibs/pkg/value"
)

func coreFns() []def {
	return []def{
		{
			name:     "print",
			variadic: true,
			ret:      value.TyVoid,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				parts := make([]string, len(args))
				for i, arg := range args {
					parts[i] = arg.String()
				}
				_, err := fmt.Fprintln(h.Runtime().Out(), strings.Join(parts, " "))
				return value.Void(), err
			},
		},
	}
}

func signalFns() []def {
	name := []ast.Param{param("name", value.TyStr)}
	return []def{
		{
			name:   "signals::emit",
			params: name,
			ret:    value.TyVoid,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				return value.Void(), h.Runtime().Signals().Emit(ctx, args[0].Str)
			},
		},
		{
			name:   "signals::wait",
			params: name,
			ret:    value.TyVoid,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				return value.Void(), h.Runtime().Signals().Wait(ctx, args[0].Str)
			},
		},
		{
			name:   "signals::waiters",
			params: name,
			ret:    value.TyNum,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				n, err := h.Runtime().Signals().Waiters(ctx, args[0].Str)
				return value.Num(float64(n)), err
			},
		},
	}
}
