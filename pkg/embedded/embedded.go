// Package embedded holds the native functions available to every script,
// grouped in modules named by the prefix of their qualified name
// (`str::upper`, `signals::wait`, ...).
package embedded

import (
	"context"
	"fmt"

	"sibs/pkg/ast"
	"sibs/pkg/runtime"
	"sibs/pkg/runtime/fns"
	"sibs/pkg/value"
)

// Host is what native functions need from the interpreter calling them.
type Host interface {
	fns.Host
	Runtime() *runtime.Runtime
	Workdir() string
	Spawn(ctx context.Context, line string) (value.RtValue, error)
}

type def struct {
	name     string
	params   []ast.Param
	ret      value.Ty
	variadic bool
	exec     func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error)
}

func param(name string, ty value.Ty) ast.Param {
	return ast.Param{Name: name, Ty: ty}
}

func modules() [][]def {
	return [][]def{
		coreFns(),
		signalFns(),
		strFns(),
		vecFns(),
		pathFns(),
		processFns(),
		sysFns(),
		gitFns(),
	}
}

// Register adds every embedded function to reg.
func Register(ctx context.Context, reg *fns.Registry) error {
	for _, module := range modules() {
		for _, d := range module {
			exec := d.exec
			e := &fns.Entity{
				Kind:     fns.Embedded,
				Name:     d.name,
				Params:   d.params,
				Ret:      d.ret,
				Variadic: d.variadic,
				Exec: func(ctx context.Context, host fns.Host, args []value.RtValue) (value.RtValue, error) {
					h, ok := host.(Host)
					if !ok {
						return value.Void(), fmt.Errorf("%s: unsupported host %T", d.name, host)
					}
					return exec(ctx, h, args)
				},
			}
			if err := reg.Register(ctx, e); err != nil {
				return err
			}
		}
	}
	return nil
}

// Names lists the qualified names of all embedded functions.
func Names() []string {
	var names []string
	for _, module := range modules() {
		for _, d := range module {
			names = append(names, d.name)
		}
	}
	return names
}
