// Package ast holds the syntax tree handed from the parser to the
// interpreter. Every node carries a UUID, used as the key of the scope frame
// or loop entry it opens, and the source span it was parsed from.
package ast

import (
	"sibs/pkg/lexer"
	"sibs/pkg/value"

	"github.com/google/uuid"
)

// Span is the source range a node was parsed from.
type Span struct {
	From lexer.Position
	To   lexer.Position
}

func (s Span) String() string {
	return s.From.String()
}

// Node is implemented by every syntax tree node.
type Node interface {
	ID() uuid.UUID
	Span() Span
}

// Meta is embedded into every node.
type Meta struct {
	Uuid uuid.UUID
	Loc  Span
}

// NewMeta assigns a fresh UUID to a node spanning from..to.
func NewMeta(from, to lexer.Position) Meta {
	return Meta{Uuid: uuid.New(), Loc: Span{From: from, To: to}}
}

func (m Meta) ID() uuid.UUID { return m.Uuid }

func (m Meta) Span() Span { return m.Loc }

// Param is a declared function, task or closure parameter.
type Param struct {
	Name string
	Ty   value.Ty
}

// Script is the root node. Main is set when the source is a bare block.
type Script struct {
	Meta
	Components []*Component
	Fns        []*FnDecl
	Main       *Block
}

// FindComponent returns the component with the given name.
func (s *Script) FindComponent(name string) (*Component, bool) {
	for _, c := range s.Components {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

type Component struct {
	Meta
	Name  string
	Cwd   string
	Fns   []*FnDecl
	Tasks []*Task
}

// FindTask returns the task with the given name.
func (c *Component) FindTask(name string) (*Task, bool) {
	for _, t := range c.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

type Task struct {
	Meta
	Name   string
	Params []Param
	Body   *Block
}

type FnDecl struct {
	Meta
	Name   string
	Params []Param
	Ret    value.Ty
	Body   *Block
}

type Block struct {
	Meta
	Stmts []Node
}

type Let struct {
	Meta
	Name  string
	Ty    value.Ty
	Value Node
}

// Assign writes to an existing variable. Op is nil for plain `=`, otherwise
// the arithmetic operator of a compound assignment (`+=`, `-=`).
type Assign struct {
	Meta
	Name  string
	Op    *Operator
	Value Node
}

type Ident struct {
	Meta
	Name string
}

// Literal is a constant num, bool or plain str.
type Literal struct {
	Meta
	Val value.RtValue
}

// Interpolated is a string literal with `{expr}` parts.
type Interpolated struct {
	Meta
	Parts []Node
}

// Command is a backtick shell command; its parts are interpolated like strings.
type Command struct {
	Meta
	Parts []Node
}

type VecLit struct {
	Meta
	Items []Node
}

type RangeExpr struct {
	Meta
	From Node
	To   Node
}

// Operator evaluates to a BinaryOperator, ComparisonOperator or
// LogicalOperator value.
type Operator struct {
	Meta
	Val value.RtValue
}

// Binary covers arithmetic and comparison operators.
type Binary struct {
	Meta
	Left  Node
	Op    *Operator
	Right Node
}

// Logical is a short-circuiting && or ||.
type Logical struct {
	Meta
	Left  Node
	Op    *Operator
	Right Node
}

type Not struct {
	Meta
	Expr Node
}

type Neg struct {
	Meta
	Expr Node
}

// If has an optional Else which is either a *Block or a nested *If.
type If struct {
	Meta
	Cond Node
	Then *Block
	Else Node
}

type While struct {
	Meta
	Cond Node
	Body *Block
}

type Loop struct {
	Meta
	Body *Block
}

type For struct {
	Meta
	Var  string
	Over Node
	Body *Block
}

// Each iterates a vec. Index is empty when not requested.
type Each struct {
	Meta
	Item  string
	Index string
	Over  Node
	Body  *Block
}

type Break struct {
	Meta
}

type Continue struct {
	Meta
}

type Return struct {
	Meta
	Value Node
}

// Call invokes a function by name. Receiver is set for `expr.name(...)`.
type Call struct {
	Meta
	Name     string
	Args     []Node
	Receiver Node
}

type Index struct {
	Meta
	Target Node
	Idx    Node
}

type Closure struct {
	Meta
	Params []Param
	Body   *Block
}

// TaskCall is `:component:task(args)`.
type TaskCall struct {
	Meta
	Component string
	Task      string
	Args      []Node
}

type Join struct {
	Meta
	Items []Node
}

type NamedArg struct {
	Meta
	Name  string
	Value Node
}
