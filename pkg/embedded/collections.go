package embedded

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"sibs/pkg/ast"
	"sibs/pkg/value"
)

type strFn func(s string, args []value.RtValue) (value.RtValue, error)

// onStr adapts a function whose first argument is a str (or path) value
func onStr(fn strFn) func(context.Context, Host, []value.RtValue) (value.RtValue, error) {
	return func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
		s, err := args[0].AsStr()
		if err != nil {
			return value.Void(), err
		}
		return fn(s, args[1:])
	}
}

func strFns() []def {
	s := param("s", value.TyAny)
	return []def{
		{
			name:   "str::len",
			params: []ast.Param{s},
			ret:    value.TyNum,
			exec: onStr(func(s string, _ []value.RtValue) (value.RtValue, error) {
				return value.Num(float64(utf8.RuneCountInString(s))), nil
			}),
		},
		{
			name:   "str::upper",
			params: []ast.Param{s},
			ret:    value.TyStr,
			exec: onStr(func(s string, _ []value.RtValue) (value.RtValue, error) {
				return value.Str(strings.ToUpper(s)), nil
			}),
		},
		{
			name:   "str::lower",
			params: []ast.Param{s},
			ret:    value.TyStr,
			exec: onStr(func(s string, _ []value.RtValue) (value.RtValue, error) {
				return value.Str(strings.ToLower(s)), nil
			}),
		},
		{
			name:   "str::trim",
			params: []ast.Param{s},
			ret:    value.TyStr,
			exec: onStr(func(s string, _ []value.RtValue) (value.RtValue, error) {
				return value.Str(strings.TrimSpace(s)), nil
			}),
		},
		{
			name:   "str::contains",
			params: []ast.Param{s, param("sub", value.TyStr)},
			ret:    value.TyBool,
			exec: onStr(func(s string, args []value.RtValue) (value.RtValue, error) {
				return value.Bool(strings.Contains(s, args[0].Str)), nil
			}),
		},
		{
			name:   "str::split",
			params: []ast.Param{s, param("sep", value.TyStr)},
			ret:    value.TyVec,
			exec: onStr(func(s string, args []value.RtValue) (value.RtValue, error) {
				parts := strings.Split(s, args[0].Str)
				items := make([]value.RtValue, len(parts))
				for i, part := range parts {
					items[i] = value.Str(part)
				}
				return value.Vec(items...), nil
			}),
		},
	}
}

func vecFns() []def {
	v := param("v", value.TyVec)
	return []def{
		{
			name:   "vec::len",
			params: []ast.Param{v},
			ret:    value.TyNum,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				return value.Num(float64(len(args[0].Vec))), nil
			},
		},
		{
			name:   "vec::push",
			params: []ast.Param{v, param("item", value.TyAny)},
			ret:    value.TyVec,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				return value.Vec(append(append([]value.RtValue(nil), args[0].Vec...), args[1])...), nil
			},
		},
		{
			name:   "vec::get",
			params: []ast.Param{v, param("idx", value.TyNum)},
			ret:    value.TyAny,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				item, err := value.Index(args[0], args[1])
				if err != nil {
					return value.Void(), fmt.Errorf("vec::get: %w", err)
				}
				return item, nil
			},
		},
	}
}
