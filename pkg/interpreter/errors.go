package interpreter

import (
	"errors"

	"sibs/pkg/runtime/fns"
	"sibs/pkg/runtime/scope"
	"sibs/pkg/value"
)

var (
	ErrUndefinedVariable   = scope.ErrUndefinedVariable
	ErrReturnType          = fns.ErrReturnType
	ErrBreakOutsideLoop    = errors.New("break outside of a loop")
	ErrContinueOutsideLoop = errors.New("continue outside of a loop")
	ErrUnknownComponent    = errors.New("unknown component")
	ErrUnknownTask         = errors.New("unknown task")
	ErrNoEntry             = errors.New("no entry point")
	ErrNotCallable         = errors.New("value is not callable")
	ErrMaxStepsExceeded    = errors.New("maximum steps exceeded")
)

// returnSignal unwinds the interpretation of a function body up to the call
// boundary, carrying the returned value.
type returnSignal struct {
	val value.RtValue
}

func (r *returnSignal) Error() string {
	return "return outside of a function"
}

// caught returns the value carried by a return signal, if err is one.
func caught(v value.RtValue, err error) (value.RtValue, error) {
	var ret *returnSignal
	if errors.As(err, &ret) {
		return ret.val, nil
	}
	return v, err
}
