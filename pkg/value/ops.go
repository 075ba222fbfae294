package value

import (
	"errors"
	"fmt"
)

var (
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrDivisionByZero   = errors.New("division by zero")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrUnknownOperator  = errors.New("unknown operator")
	ErrNotComparable    = errors.New("values are not comparable")
	ErrUnsupportedIndex = errors.New("value cannot be indexed")
)

type BinaryOperator int

const (
	OpAdd BinaryOperator = iota
	OpSub
	OpMul
	OpDiv
)

func (op BinaryOperator) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	default:
		return fmt.Sprintf("binop(%d)", int(op))
	}
}

type ComparisonOperator int

const (
	OpEq ComparisonOperator = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op ComparisonOperator) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return fmt.Sprintf("cmpop(%d)", int(op))
	}
}

type LogicalOperator int

const (
	OpAnd LogicalOperator = iota
	OpOr
)

func (op LogicalOperator) String() string {
	switch op {
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	default:
		return fmt.Sprintf("logop(%d)", int(op))
	}
}

// Arith applies a binary operator. Numbers support every operator; str and
// vec support concatenation with "+".
func Arith(op BinaryOperator, a, b RtValue) (RtValue, error) {
	switch {
	case a.Kind == KindNum && b.Kind == KindNum:
		switch op {
		case OpAdd:
			return Num(a.Num + b.Num), nil
		case OpSub:
			return Num(a.Num - b.Num), nil
		case OpMul:
			return Num(a.Num * b.Num), nil
		case OpDiv:
			if b.Num == 0 {
				return RtValue{}, ErrDivisionByZero
			}
			return Num(a.Num / b.Num), nil
		default:
			return RtValue{}, fmt.Errorf("%w: %s", ErrUnknownOperator, op)
		}

	case op == OpAdd && a.Kind == KindStr && b.Kind == KindStr:
		return Str(a.Str + b.Str), nil

	case op == OpAdd && a.Kind == KindVec && b.Kind == KindVec:
		items := make([]RtValue, 0, len(a.Vec)+len(b.Vec))
		items = append(items, a.Vec...)
		items = append(items, b.Vec...)
		return RtValue{Kind: KindVec, Vec: items}, nil
	}

	return RtValue{}, fmt.Errorf("%w: cannot apply %s to %s and %s", ErrTypeMismatch, op, a.Kind, b.Kind)
}

// Compare applies a comparison operator. Equality works across all kinds;
// ordering is limited to numbers and strings.
func Compare(op ComparisonOperator, a, b RtValue) (RtValue, error) {
	switch op {
	case OpEq:
		return Bool(Equal(a, b)), nil
	case OpNe:
		return Bool(!Equal(a, b)), nil
	}

	var cmp int
	switch {
	case a.Kind == KindNum && b.Kind == KindNum:
		cmp = compareOrdered(a.Num, b.Num)
	case a.Kind == KindStr && b.Kind == KindStr:
		cmp = compareOrdered(a.Str, b.Str)
	default:
		return RtValue{}, fmt.Errorf("%w: %s %s %s", ErrNotComparable, a.Kind, op, b.Kind)
	}

	switch op {
	case OpLt:
		return Bool(cmp < 0), nil
	case OpLe:
		return Bool(cmp <= 0), nil
	case OpGt:
		return Bool(cmp > 0), nil
	case OpGe:
		return Bool(cmp >= 0), nil
	default:
		return RtValue{}, fmt.Errorf("%w: %s", ErrUnknownOperator, op)
	}
}

func compareOrdered[T ~float64 | ~string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Negate returns the arithmetic negation of a number.
func Negate(v RtValue) (RtValue, error) {
	n, err := v.AsNum()
	if err != nil {
		return RtValue{}, err
	}
	return Num(-n), nil
}

// Not returns the logical negation of a bool.
func Not(v RtValue) (RtValue, error) {
	b, err := v.AsBool()
	if err != nil {
		return RtValue{}, err
	}
	return Bool(!b), nil
}

// Index returns element idx of a vec, the idx-th character of a str or the
// idx-th value of a range.
func Index(target, idx RtValue) (RtValue, error) {
	i, err := idx.AsInt()
	if err != nil {
		return RtValue{}, err
	}

	switch target.Kind {
	case KindVec:
		if i < 0 || i >= int64(len(target.Vec)) {
			return RtValue{}, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(target.Vec))
		}
		return target.Vec[i], nil
	case KindStr:
		runes := []rune(target.Str)
		if i < 0 || i >= int64(len(runes)) {
			return RtValue{}, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(runes))
		}
		return Str(string(runes[i])), nil
	case KindRange:
		if i < 0 || i >= target.Range.Len() {
			return RtValue{}, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, target.Range.Len())
		}
		return Num(float64(target.Range.From + i)), nil
	default:
		return RtValue{}, fmt.Errorf("%w: %s", ErrUnsupportedIndex, target.Kind)
	}
}

func mismatch(expected Kind, found RtValue) error {
	return fmt.Errorf("%w: expected %s, found %s", ErrTypeMismatch, expected, found.Kind)
}
