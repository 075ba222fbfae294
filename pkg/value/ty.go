package value

import "fmt"

// Ty is a declared type tag as written in source (`let x: num`, `fn f(a: str)`).
type Ty int

const (
	TyAny Ty = iota
	TyVoid
	TyBool
	TyNum
	TyStr
	TyPath
	TyVec
	TyRange
	TyClosure
	TyExecuteResult
)

var tyNames = map[string]Ty{
	"any":     TyAny,
	"void":    TyVoid,
	"bool":    TyBool,
	"num":     TyNum,
	"str":     TyStr,
	"path":    TyPath,
	"vec":     TyVec,
	"range":   TyRange,
	"closure": TyClosure,
	"result":  TyExecuteResult,
}

// ParseTy resolves a type name.
func ParseTy(name string) (Ty, bool) {
	t, ok := tyNames[name]
	return t, ok
}

func (t Ty) String() string {
	for name, ty := range tyNames {
		if ty == t {
			return name
		}
	}
	return fmt.Sprintf("ty(%d)", int(t))
}

// TyOf returns the narrowest declared type matching v.
func TyOf(v RtValue) Ty {
	switch v.Unnamed().Kind {
	case KindVoid:
		return TyVoid
	case KindBool:
		return TyBool
	case KindNum:
		return TyNum
	case KindStr:
		return TyStr
	case KindPathBuf:
		return TyPath
	case KindVec:
		return TyVec
	case KindRange:
		return TyRange
	case KindClosure:
		return TyClosure
	case KindExecuteResult:
		return TyExecuteResult
	default:
		return TyAny
	}
}

// Accepts reports whether v may be stored in a slot of type t.
func (t Ty) Accepts(v RtValue) bool {
	if t == TyAny {
		return true
	}
	return TyOf(v) == t
}

// Check returns a type mismatch error when v does not fit t.
func (t Ty) Check(v RtValue) error {
	if t.Accepts(v) {
		return nil
	}
	return fmt.Errorf("%w: expected %s, found %s", ErrTypeMismatch, t, TyOf(v))
}
