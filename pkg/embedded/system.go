package embedded

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"sibs/pkg/ast"
	"sibs/pkg/value"
)

// resolve makes p absolute against the caller's working directory
func resolve(h Host, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(h.Workdir(), p)
}

func pathFns() []def {
	return []def{
		{
			name:   "path::join",
			params: []ast.Param{param("base", value.TyAny), param("part", value.TyStr)},
			ret:    value.TyPath,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				base, err := args[0].AsStr()
				if err != nil {
					return value.Void(), err
				}
				return value.Path(filepath.Join(base, args[1].Str)), nil
			},
		},
		{
			name:   "path::exists",
			params: []ast.Param{param("p", value.TyAny)},
			ret:    value.TyBool,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				p, err := args[0].AsStr()
				if err != nil {
					return value.Void(), err
				}
				_, err = os.Stat(resolve(h, p))
				if errors.Is(err, fs.ErrNotExist) {
					return value.Bool(false), nil
				}
				return value.Bool(err == nil), err
			},
		},
		{
			name: "path::cwd",
			ret:  value.TyPath,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				return value.Path(h.Workdir()), nil
			},
		},
	}
}

func processFns() []def {
	result := []ast.Param{param("result", value.TyExecuteResult)}
	return []def{
		{
			name:   "process::exec",
			params: []ast.Param{param("command", value.TyStr)},
			ret:    value.TyExecuteResult,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				return h.Spawn(ctx, args[0].Str)
			},
		},
		{
			name:   "process::success",
			params: result,
			ret:    value.TyBool,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				return value.Bool(args[0].Exec.Success()), nil
			},
		},
		{
			name:   "process::code",
			params: result,
			ret:    value.TyNum,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				return value.Num(float64(args[0].Exec.Code)), nil
			},
		},
		{
			name:   "process::stdout",
			params: result,
			ret:    value.TyStr,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				return value.Str(args[0].Exec.Stdout), nil
			},
		},
	}
}

func sysFns() []def {
	return []def{
		{
			name:   "env::var",
			params: []ast.Param{param("name", value.TyStr)},
			ret:    value.TyAny,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				if v, ok := os.LookupEnv(args[0].Str); ok {
					return value.Str(v), nil
				}
				return value.Void(), nil
			},
		},
		{
			name:   "time::sleep",
			params: []ast.Param{param("ms", value.TyNum)},
			ret:    value.TyVoid,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				timer := time.NewTimer(time.Duration(args[0].Num * float64(time.Millisecond)))
				defer timer.Stop()
				select {
				case <-timer.C:
					return value.Void(), nil
				case <-ctx.Done():
					return value.Void(), ctx.Err()
				}
			},
		},
		{
			name: "rt::args",
			ret:  value.TyVec,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				params := h.Runtime().GetRtParameters()
				items := make([]value.RtValue, len(params.Args))
				for i, arg := range params.Args {
					items[i] = value.Str(arg)
				}
				return value.Vec(items...), nil
			},
		},
		{
			name: "rt::component",
			ret:  value.TyStr,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				return value.Str(h.Runtime().GetRtParameters().Component), nil
			},
		},
		{
			name: "rt::task",
			ret:  value.TyStr,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				return value.Str(h.Runtime().GetRtParameters().Task), nil
			},
		},
	}
}
