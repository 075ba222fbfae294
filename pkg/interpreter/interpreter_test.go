package interpreter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"sibs/pkg/ast"
	"sibs/pkg/diag"
	"sibs/pkg/embedded"
	"sibs/pkg/lexer"
	"sibs/pkg/parser"
	"sibs/pkg/runtime"
	"sibs/pkg/runtime/fns"
	"sibs/pkg/runtime/journal"
	"sibs/pkg/value"
)

type harness struct {
	it  *Interpreter
	out *bytes.Buffer
}

func newHarness(t *testing.T, src string, params runtime.RtParameters, opts ...Option) *harness {
	t.Helper()

	script, err := parser.ParseSource(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if params.Cwd == "" {
		params.Cwd = t.TempDir()
	}
	out := &bytes.Buffer{}
	rt, err := runtime.New(context.Background(), params,
		runtime.WithWriter(out),
		runtime.WithJournal(journal.New(journal.NewLogger(io.Discard, false))),
	)
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	t.Cleanup(rt.Destroy)

	if err := embedded.Register(rt.Context(), rt.Fns()); err != nil {
		t.Fatalf("embedded: %v", err)
	}

	it := NewInterpreter(rt, script, opts...)
	if err := it.Load(rt.Context()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return &harness{it: it, out: out}
}

func (h *harness) run() (value.RtValue, error) {
	return h.it.Run(h.it.Runtime().Context())
}

func parseStatements(src string) (*ast.Block, error) {
	p := parser.NewParser(lexer.NewLexer(src))
	block := p.ParseStatements()
	return block, p.Err()
}

func eval(t *testing.T, src string) value.RtValue {
	t.Helper()
	v, err := newHarness(t, src, runtime.RtParameters{}).run()
	if err != nil {
		t.Fatalf("%s: %v", src, err)
	}
	return v
}

func evalErr(t *testing.T, src string) error {
	t.Helper()
	_, err := newHarness(t, src, runtime.RtParameters{}).run()
	if err == nil {
		t.Fatalf("%s: expected an error", src)
	}
	return err
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected value.RtValue
	}{
		{"round trip", `{ let x = 42; x; }`, value.Num(42)},
		{"empty block", `{ }`, value.Void()},
		{"count to ten", `{ let n = 0; while n < 10 { n += 1; }; n; }`, value.Num(10)},
		{"break at ten", `{ let n = 0; while n < 20 { n += 1; if n == 10 { break; }; }; n; }`, value.Num(10)},
		{"break at five", `{ let n = 0; while n < 10 { n += 1; if n == 5 { break; }; }; n; }`, value.Num(5)},
		{"nested break", `{
			let outer = 0;
			let total = 0;
			while outer < 3 {
				outer += 1;
				let inner = 0;
				loop {
					inner += 1;
					total += 1;
					if inner == 2 { break; };
				};
			};
			total;
		}`, value.Num(6)},
		{"continue", `{ let sum = 0; for i in 1..5 { if i == 3 { continue; }; sum += i; }; sum; }`, value.Num(12)},
		{"each with index", `{ let acc = ""; each(item, idx; ["a", "b"]) { acc = acc + "{idx}{item}"; }; acc; }`, value.Str("0a1b")},
		{"loop result", `{ let n = 0; while n < 3 { n += 1; n * 10; }; }`, value.Num(30)},
		{"if else chain", `{ let n = 2; if n == 1 { "one"; } else if n == 2 { "two"; } else { "many"; }; }`, value.Str("two")},
		{"short circuit and", `{ false && missing; }`, value.Bool(false)},
		{"short circuit or", `{ true || missing; }`, value.Bool(true)},
		{"closure", `{ let double = |x: num| { x * 2; }; double(21); }`, value.Num(42)},
		{"closure named args", `{ let sub = |a: num, b: num| { a - b; }; sub(b: 1, a: 5); }`, value.Num(4)},
		{"index", `{ let v = [1, 2, 3]; v[1] + (1..3)[2]; }`, value.Num(5)},
		{"method on str", `{ "abc".upper().len(); }`, value.Num(3)},
		{"method on vec", `{ [1].push(2).len(); }`, value.Num(2)},
		{"interpolation", `{ let who = "world"; "hello {who}!"; }`, value.Str("hello world!")},
		{"negation", `{ let n = 3; if !false { -n + 10; }; }`, value.Num(7)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := eval(t, test.src)
			if !value.Equal(got, test.expected) {
				t.Errorf("expected %s, got %s", test.expected, got)
			}
		})
	}
}

func TestInnerBlockVariableIsUndefinedOutside(t *testing.T) {
	err := evalErr(t, `{ { let x = 1; }; x; }`)
	if !errors.Is(err, ErrUndefinedVariable) {
		t.Fatalf("expected ErrUndefinedVariable, got %v", err)
	}

	var linked *diag.LinkedError
	if !errors.As(err, &linked) {
		t.Fatalf("expected a linked error, got %T", err)
	}
	if linked.Span.From.Line != 1 || linked.Span.From.Column != 19 {
		t.Errorf("expected error at 1:19, got %s", linked.Span)
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		src string
		err error
	}{
		{`{ break; }`, ErrBreakOutsideLoop},
		{`{ continue; }`, ErrContinueOutsideLoop},
		{`{ let n = 1; n = "x"; }`, value.ErrTypeMismatch},
		{`{ let s: str = 1; }`, value.ErrTypeMismatch},
		{`{ 1 + "x"; }`, value.ErrTypeMismatch},
		{`{ if 1 { 2; }; }`, value.ErrTypeMismatch},
		{`{ 1 / 0; }`, value.ErrDivisionByZero},
		{`{ [1][3]; }`, value.ErrIndexOutOfRange},
		{`{ nothing(); }`, fns.ErrNotFound},
		{`{ let n = 1; n(); }`, ErrNotCallable},
		{`{ let f = |x: num| { x; }; f("x"); }`, fns.ErrArgType},
		{`{ let f = |x: num| { x; }; f(); }`, fns.ErrArgCount},
		{`{ missing = 1; }`, ErrUndefinedVariable},
	}

	for _, test := range tests {
		if err := evalErr(t, test.src); !errors.Is(err, test.err) {
			t.Errorf("%s: expected %v, got %v", test.src, test.err, err)
		}
	}
}

func TestScopeIsBalancedAfterFailure(t *testing.T) {
	h := newHarness(t, `{ let n = 0; while true { n += 1; { { missing; }; }; }; }`, runtime.RtParameters{})
	if _, err := h.run(); !errors.Is(err, ErrUndefinedVariable) {
		t.Fatalf("expected ErrUndefinedVariable, got %v", err)
	}

	rt := h.it.Runtime()
	if depth, _ := rt.Scope().Depth(rt.Context()); depth != 1 {
		t.Errorf("expected only the base frame to remain, got %d frames", depth)
	}
	if stopped, err := rt.Loops().IsStopped(rt.Context()); stopped || err != nil {
		t.Errorf("expected loop stack to be empty, got %v (%v)", stopped, err)
	}
}

const chainScript = `
fn mark() -> str { print("a"); "a"; }
fn f(s: str) -> str { print("f"); s + "f"; }
fn g(s: str) -> str { print("g"); s + "g"; }
fn boom(s: str) { missing; }

component app {
	task chain() { mark().f().g(); }
	task failing() { mark().boom().g(); }
	task shadowed() { let missing = 1; mark().boom().g(); }
}`

func TestMethodChain(t *testing.T) {
	h := newHarness(t, chainScript, runtime.RtParameters{Component: "app", Task: "chain"})
	got, err := h.run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got.Str != "afg" {
		t.Errorf("expected afg, got %s", got)
	}
	if h.out.String() != "a\nf\ng\n" {
		t.Errorf("unexpected evaluation order %q", h.out.String())
	}

	rt := h.it.Runtime()
	if _, ok, _ := rt.Scope().WithdrawParentValue(rt.Context()); ok {
		t.Errorf("parent value slot should be empty")
	}
}

func TestMethodChainFailureEmptiesSlot(t *testing.T) {
	// boom must fail even when its caller has a variable of that name
	for _, task := range []string{"failing", "shadowed"} {
		t.Run(task, func(t *testing.T) {
			h := newHarness(t, chainScript, runtime.RtParameters{Component: "app", Task: task})
			if _, err := h.run(); !errors.Is(err, ErrUndefinedVariable) {
				t.Fatalf("expected ErrUndefinedVariable, got %v", err)
			}
			if h.out.String() != "a\n" {
				t.Errorf("g must not run after boom failed, output %q", h.out.String())
			}

			rt := h.it.Runtime()
			if _, ok, _ := rt.Scope().WithdrawParentValue(rt.Context()); ok {
				t.Errorf("parent value slot should be empty")
			}
		})
	}
}

func TestFunctions(t *testing.T) {
	src := `
fn first(v: vec) {
	each(item; v) { return item; };
	0;
}
fn wrong() -> num { "x"; }

component app {
	fn local(n: num) -> num { n + 1; }
	task main(n: num, verbose: bool) {
		if verbose { [first([n, 2]), local(n)]; } else { 0; };
	}
	task bad() { wrong(); }
}`

	h := newHarness(t, src, runtime.RtParameters{Component: "app", Task: "main", Args: []string{"3", "true"}})
	got, err := h.run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !value.Equal(got, value.Vec(value.Num(3), value.Num(4))) {
		t.Errorf("expected [3, 4], got %s", got)
	}

	h = newHarness(t, src, runtime.RtParameters{Component: "app", Task: "bad"})
	if _, err := h.run(); !errors.Is(err, ErrReturnType) {
		t.Errorf("expected ErrReturnType, got %v", err)
	}

	h = newHarness(t, src, runtime.RtParameters{Component: "app", Task: "main", Args: []string{"x", "true"}})
	if _, err := h.run(); !errors.Is(err, value.ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch for a bad argument, got %v", err)
	}

	h = newHarness(t, src, runtime.RtParameters{Component: "app", Task: "nope"})
	if _, err := h.run(); !errors.Is(err, ErrUnknownTask) {
		t.Errorf("expected ErrUnknownTask, got %v", err)
	}

	h = newHarness(t, src, runtime.RtParameters{})
	if _, err := h.run(); !errors.Is(err, ErrNoEntry) {
		t.Errorf("expected ErrNoEntry, got %v", err)
	}
}

const boundaryScript = `
fn peek() { x; }
fn poke() { x = 99; }
fn stop() { break; }
fn skip() { continue; }
fn count(limit: num) {
	let n = 0;
	while true { n += 1; if n == limit { break; }; };
	n;
}

component app {
	task peeking() { let x = 1; [peek(), x]; }
	task poking() { let x = 1; poke(); x; }
	task stopping() { let n = 0; while n < 10 { n += 1; if n == 3 { stop(); }; }; n; }
	task skipping() { let n = 0; while n < 10 { n += 1; skip(); }; n; }
	task counting() { let total = 0; for i in 1..3 { total += count(i); }; total; }
	task capturing() { let base = 10; let add = |x: num| { base + x; }; add(5); }
	task closureBreak() { let n = 0; let f = || { break; }; while n < 10 { n += 1; f(); }; n; }
}`

func TestFunctionCallBoundary(t *testing.T) {
	failures := []struct {
		task string
		err  error
	}{
		{"peeking", ErrUndefinedVariable},
		{"poking", ErrUndefinedVariable},
		{"stopping", ErrBreakOutsideLoop},
		{"skipping", ErrContinueOutsideLoop},
		{"closureBreak", ErrBreakOutsideLoop},
	}
	for _, test := range failures {
		t.Run(test.task, func(t *testing.T) {
			h := newHarness(t, boundaryScript, runtime.RtParameters{Component: "app", Task: test.task})
			if _, err := h.run(); !errors.Is(err, test.err) {
				t.Errorf("expected %v, got %v", test.err, err)
			}
		})
	}

	results := []struct {
		task     string
		expected value.RtValue
	}{
		{"counting", value.Num(6)},
		{"capturing", value.Num(15)},
	}
	for _, test := range results {
		t.Run(test.task, func(t *testing.T) {
			h := newHarness(t, boundaryScript, runtime.RtParameters{Component: "app", Task: test.task})
			got, err := h.run()
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if !value.Equal(got, test.expected) {
				t.Errorf("expected %s, got %s", test.expected, got)
			}
		})
	}
}

const signalScript = `
component app {
	task waiter() { signals::wait("S"); "waited"; }
	task emitter() { time::sleep(20); signals::emit("S"); "emitted"; }
	task waitFirst() { join(:app:waiter(), :app:emitter()); }
	task emitFirst() { join(:app:emitter(), :app:waiter()); }
}`

func TestTasksSynchronizeOnSignal(t *testing.T) {
	for _, task := range []string{"waitFirst", "emitFirst"} {
		t.Run(task, func(t *testing.T) {
			h := newHarness(t, signalScript, runtime.RtParameters{Component: "app", Task: task})

			done := make(chan struct{})
			var got value.RtValue
			var err error
			go func() {
				defer close(done)
				got, err = h.run()
			}()

			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatalf("tasks did not complete")
			}

			if err != nil {
				t.Fatalf("run: %v", err)
			}
			items, _ := got.AsVec()
			if len(items) != 2 {
				t.Fatalf("expected two results, got %s", got)
			}
			for _, item := range items {
				if item.Str != "waited" && item.Str != "emitted" {
					t.Errorf("unexpected result %s", item)
				}
			}
		})
	}
}

func TestJoin(t *testing.T) {
	got := eval(t, `{ let n = 2; join(n * 2, n + 1, { let n = 10; n; }); }`)
	if !value.Equal(got, value.Vec(value.Num(4), value.Num(3), value.Num(10))) {
		t.Errorf("expected [4, 3, 10], got %s", got)
	}

	// forks do not write back
	got = eval(t, `{ let n = 1; join({ n = 5; n; }); n; }`)
	if got.Num != 1 {
		t.Errorf("expected 1, got %s", got)
	}

	err := evalErr(t, `{ join(time::sleep(2000), missing); }`)
	if !errors.Is(err, ErrUndefinedVariable) {
		t.Errorf("expected ErrUndefinedVariable, got %v", err)
	}
}

func TestCommands(t *testing.T) {
	got := eval(t, "{ let who = \"sibs\"; `echo hello {who}`.stdout(); }")
	if got.Str != "hello sibs\n" {
		t.Errorf("unexpected stdout %q", got.Str)
	}

	got = eval(t, "{ `exit 3`.code(); }")
	if got.Num != 3 {
		t.Errorf("expected exit code 3, got %s", got)
	}

	got = eval(t, "{ let res = `true`; res.success(); }")
	if !got.Bool {
		t.Errorf("expected success")
	}

	got = eval(t, `{ process::exec("pwd").stdout().trim() == path::cwd(); }`)
	if got.Kind != value.KindBool {
		t.Errorf("expected a comparison result, got %s", got)
	}
}

func TestMaxSteps(t *testing.T) {
	h := newHarness(t, `{ loop { } }`, runtime.RtParameters{}, WithMaxSteps(500))
	if _, err := h.run(); !errors.Is(err, ErrMaxStepsExceeded) {
		t.Errorf("expected ErrMaxStepsExceeded, got %v", err)
	}
	if h.it.Steps() <= 500 {
		t.Errorf("expected the step budget to be exhausted, got %d", h.it.Steps())
	}
}

func TestEvalKeepsDeclarations(t *testing.T) {
	h := newHarness(t, `{ }`, runtime.RtParameters{})
	ctx := h.it.Runtime().Context()

	for _, line := range []string{`let x = 41;`, `x += 1;`} {
		block, err := parseStatements(line)
		if err != nil {
			t.Fatalf("parse %q: %v", line, err)
		}
		if _, err := h.it.Eval(ctx, block); err != nil {
			t.Fatalf("eval %q: %v", line, err)
		}
	}

	block, _ := parseStatements(`x`)
	got, err := h.it.Eval(ctx, block)
	if err != nil || got.Num != 42 {
		t.Errorf("expected 42, got %s (%v)", got, err)
	}
}
