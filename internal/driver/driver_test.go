package driver

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sibs/internal/config"
	"sibs/pkg/color"
	"sibs/pkg/runtime"
)

func writeScript(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "build.sibs")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func newDriver(t *testing.T, src string) (*Driver, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	color.EnableColor(false)
	var out, errs bytes.Buffer
	return &Driver{
		SourceFile: writeScript(t, src),
		Params:     runtime.RtParameters{Cwd: t.TempDir()},
		Out:        &out,
		Err:        &errs,
	}, &out, &errs
}

func TestRunBlock(t *testing.T) {
	d, out, _ := newDriver(t, `{ let n = 0; while n < 3 { n += 1; }; print("n = {n}"); }`)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "n = 3\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestRunTask(t *testing.T) {
	d, out, _ := newDriver(t, `
component app {
	task greet(who: str) { print("hello {who}"); }
}`)
	d.Params.Component = "app"
	d.Params.Task = "greet"
	d.Params.Args = []string{"sibs"}

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "hello sibs\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestRunReportsRuntimeError(t *testing.T) {
	d, _, errs := newDriver(t, "{\n  let x = y;\n}")

	if err := d.Run(context.Background()); !errors.Is(err, ErrScriptFailed) {
		t.Fatalf("expected ErrScriptFailed, got %v", err)
	}
	if !strings.Contains(errs.String(), "Error at 2:11") {
		t.Errorf("expected a positioned diagnostic, got %q", errs.String())
	}
}

func TestRunReportsSyntaxError(t *testing.T) {
	d, _, errs := newDriver(t, "{ let = 1; }")

	if err := d.Run(context.Background()); err == nil || errors.Is(err, ErrScriptFailed) {
		t.Fatalf("expected a parse failure, got %v", err)
	}
	if !strings.Contains(errs.String(), "Syntax Errors") {
		t.Errorf("expected syntax errors to be printed, got %q", errs.String())
	}
}

func TestMaxSteps(t *testing.T) {
	d, _, _ := newDriver(t, "{ loop { } }")
	d.MaxSteps = 100

	if err := d.Run(context.Background()); !errors.Is(err, ErrScriptFailed) {
		t.Fatalf("expected ErrScriptFailed, got %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	d := &Driver{Params: runtime.RtParameters{Task: "test"}, Env: map[string]string{"A": "flag"}}
	d.FromConfig(&config.Config{
		Verbose:   true,
		Component: "app",
		Task:      "build",
		Workdir:   "/srv",
		Shell:     []string{"bash", "-c"},
		Env:       map[string]string{"A": "file", "B": "file"},
	})

	if !d.Verbose {
		t.Errorf("verbose should come from the file")
	}
	if d.Params.Component != "app" || d.Params.Task != "test" || d.Params.Cwd != "/srv" {
		t.Errorf("unexpected parameters %+v", d.Params)
	}
	if d.Env["A"] != "flag" || d.Env["B"] != "file" {
		t.Errorf("flags should win over the file, got %v", d.Env)
	}
	if len(d.Shell) != 2 {
		t.Errorf("unexpected shell %q", d.Shell)
	}
}
