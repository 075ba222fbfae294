package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type Kind int

const (
	KindVoid Kind = iota
	KindBool
	KindNum
	KindStr
	KindPathBuf
	KindVec
	KindRange
	KindClosure
	KindNamedArgument
	KindExecuteResult
	KindBinaryOperator
	KindComparisonOperator
	KindLogicalOperator
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindNum:
		return "num"
	case KindStr:
		return "str"
	case KindPathBuf:
		return "path"
	case KindVec:
		return "vec"
	case KindRange:
		return "range"
	case KindClosure:
		return "closure"
	case KindNamedArgument:
		return "named_argument"
	case KindExecuteResult:
		return "execute_result"
	case KindBinaryOperator:
		return "binary_operator"
	case KindComparisonOperator:
		return "comparison_operator"
	case KindLogicalOperator:
		return "logical_operator"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Range is an inclusive numeric range.
type Range struct {
	From int64
	To   int64
}

// Len returns the number of values the range yields.
func (r Range) Len() int64 {
	if r.To < r.From {
		return 0
	}
	return r.To - r.From + 1
}

// Cursor returns a function yielding the values of the range in order.
// It stops at To without stepping past it, so bounds at the edge of int64
// do not wrap around.
func (r Range) Cursor() func() (int64, bool) {
	next, done := r.From, r.From > r.To
	return func() (int64, bool) {
		if done {
			return 0, false
		}
		current := next
		if current == r.To {
			done = true
		} else {
			next++
		}
		return current, true
	}
}

type SpawnStatus int

const (
	StatusSuccess SpawnStatus = iota
	StatusFailed
	StatusCancelled
)

func (s SpawnStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ExecuteResult is the outcome of a shelled-out process.
type ExecuteResult struct {
	Command string
	Status  SpawnStatus
	Code    int
	Stdout  string
}

// Success reports whether the process exited cleanly.
func (r *ExecuteResult) Success() bool {
	return r != nil && r.Status == StatusSuccess
}

// RtValue is a runtime value. Kind selects which payload field is meaningful.
type RtValue struct {
	Kind    Kind
	Bool    bool
	Num     float64
	Str     string // str, path and named argument name
	Vec     []RtValue
	Range   Range
	Closure uuid.UUID
	Inner   *RtValue // boxed named argument value
	Exec    *ExecuteResult
	Op      int // operator variants
}

func Void() RtValue { return RtValue{Kind: KindVoid} }

func Bool(b bool) RtValue { return RtValue{Kind: KindBool, Bool: b} }

func Num(f float64) RtValue { return RtValue{Kind: KindNum, Num: f} }

func Str(s string) RtValue { return RtValue{Kind: KindStr, Str: s} }

func Path(p string) RtValue { return RtValue{Kind: KindPathBuf, Str: p} }

func Vec(items ...RtValue) RtValue {
	return RtValue{Kind: KindVec, Vec: append([]RtValue(nil), items...)}
}

func NewRange(from, to int64) RtValue {
	return RtValue{Kind: KindRange, Range: Range{From: from, To: to}}
}

func Closure(id uuid.UUID) RtValue { return RtValue{Kind: KindClosure, Closure: id} }

// Named boxes v as a named argument.
func Named(name string, v RtValue) RtValue {
	inner := v
	return RtValue{Kind: KindNamedArgument, Str: name, Inner: &inner}
}

func Execute(res ExecuteResult) RtValue {
	return RtValue{Kind: KindExecuteResult, Exec: &res}
}

func BinaryOp(op BinaryOperator) RtValue {
	return RtValue{Kind: KindBinaryOperator, Op: int(op)}
}

func ComparisonOp(op ComparisonOperator) RtValue {
	return RtValue{Kind: KindComparisonOperator, Op: int(op)}
}

func LogicalOp(op LogicalOperator) RtValue {
	return RtValue{Kind: KindLogicalOperator, Op: int(op)}
}

// IsVoid reports whether v carries no value.
func (v RtValue) IsVoid() bool {
	return v.Kind == KindVoid
}

// AsBool returns the boolean payload. Only bool values qualify.
func (v RtValue) AsBool() (bool, error) {
	if v.Kind != KindBool {
		return false, mismatch(KindBool, v)
	}
	return v.Bool, nil
}

// AsNum returns the numeric payload.
func (v RtValue) AsNum() (float64, error) {
	if v.Kind != KindNum {
		return 0, mismatch(KindNum, v)
	}
	return v.Num, nil
}

// AsInt returns the numeric payload as an integer, rejecting fractions.
func (v RtValue) AsInt() (int64, error) {
	n, err := v.AsNum()
	if err != nil {
		return 0, err
	}
	i := int64(n)
	if float64(i) != n {
		return 0, fmt.Errorf("%w: expected integer, found %v", ErrTypeMismatch, n)
	}
	return i, nil
}

// AsStr returns the textual payload of str and path values.
func (v RtValue) AsStr() (string, error) {
	if v.Kind != KindStr && v.Kind != KindPathBuf {
		return "", mismatch(KindStr, v)
	}
	return v.Str, nil
}

// AsVec returns the elements of a vec value.
func (v RtValue) AsVec() ([]RtValue, error) {
	if v.Kind != KindVec {
		return nil, mismatch(KindVec, v)
	}
	return v.Vec, nil
}

// AsRange returns the bounds of a range value.
func (v RtValue) AsRange() (Range, error) {
	if v.Kind != KindRange {
		return Range{}, mismatch(KindRange, v)
	}
	return v.Range, nil
}

// AsExecuteResult returns the process outcome payload.
func (v RtValue) AsExecuteResult() (*ExecuteResult, error) {
	if v.Kind != KindExecuteResult || v.Exec == nil {
		return nil, mismatch(KindExecuteResult, v)
	}
	return v.Exec, nil
}

// Unnamed strips a named argument wrapper, if any.
func (v RtValue) Unnamed() RtValue {
	if v.Kind == KindNamedArgument && v.Inner != nil {
		return *v.Inner
	}
	return v
}

// String renders the value as a string.
func (v RtValue) String() string {
	switch v.Kind {
	case KindVoid:
		return "void"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNum:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindStr, KindPathBuf:
		return v.Str
	case KindVec:
		parts := make([]string, len(v.Vec))
		for i, item := range v.Vec {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindRange:
		return fmt.Sprintf("%d..%d", v.Range.From, v.Range.To)
	case KindClosure:
		return "closure<" + v.Closure.String() + ">"
	case KindNamedArgument:
		if v.Inner == nil {
			return v.Str + ": void"
		}
		return v.Str + ": " + v.Inner.String()
	case KindExecuteResult:
		if v.Exec == nil {
			return "execute_result<nil>"
		}
		return fmt.Sprintf("%s (%s, code %d)", v.Exec.Command, v.Exec.Status, v.Exec.Code)
	case KindBinaryOperator:
		return BinaryOperator(v.Op).String()
	case KindComparisonOperator:
		return ComparisonOperator(v.Op).String()
	case KindLogicalOperator:
		return LogicalOperator(v.Op).String()
	default:
		return "<unknown>"
	}
}

// Equal compares two values structurally. Values of different kinds are never equal.
func Equal(a, b RtValue) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindVoid:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindNum:
		return a.Num == b.Num
	case KindStr, KindPathBuf:
		return a.Str == b.Str
	case KindVec:
		if len(a.Vec) != len(b.Vec) {
			return false
		}
		for i := range a.Vec {
			if !Equal(a.Vec[i], b.Vec[i]) {
				return false
			}
		}
		return true
	case KindRange:
		return a.Range == b.Range
	case KindClosure:
		return a.Closure == b.Closure
	case KindNamedArgument:
		return a.Str == b.Str && Equal(a.Unnamed(), b.Unnamed())
	case KindExecuteResult:
		if a.Exec == nil || b.Exec == nil {
			return a.Exec == b.Exec
		}
		return *a.Exec == *b.Exec
	default:
		return a.Op == b.Op
	}
}
